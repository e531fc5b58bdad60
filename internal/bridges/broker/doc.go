// Package broker connects the household state to an external MQTT broker.
//
// The Bridge owns at most one live broker connection. Every configured
// channel topic is subscribed with a multi-level wildcard; inbound payloads
// are resolved to a logical channel by topic prefix, decoded, and applied to
// the device state. Payloads that fail to decode, or that the device state
// rejects, are kept in a bounded InboundLog and otherwise dropped.
//
// Connection states:
//
//	Disconnected -> Connecting -> Connected
//	Connecting   -> Disconnected   (dial or subscribe failure)
//	Connected    -> Disconnected   (operator disconnect or broker loss)
//
// The transport is hidden behind the Client and Connection interfaces. The
// paho-backed client lives in internal/infrastructure/mqtt; StubClient is a
// no-op implementation for running without a broker.
package broker
