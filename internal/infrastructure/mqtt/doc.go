// Package mqtt provides the paho-backed MQTT connection used by the broker bridge.
//
// This package manages:
//   - A single connection attempt bounded by a context and the configured timeout
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) on the status topic for offline detection
//
// # Connection Lifecycle
//
// Auto-reconnect is deliberately switched off. When the broker drops the
// connection the client reports the loss once through the callback set with
// SetOnDisconnect and stays down; the owner decides whether to dial again.
//
//	Gray Home session ↔ broker bridge ↔ mqtt.Client ↔ MQTT broker
//
// # Security Considerations
//
//   - TLS is selected with cfg.Broker.TLS (minimum TLS 1.2)
//   - Passwords are passed to paho and never logged
//
// # Usage
//
//	client, err := mqtt.Connect(ctx, cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := mqtt.NewTopics(cfg.MQTT.TopicPrefix)
//	err = client.Subscribe(mqtt.SubtreeFilter(topics.Channel("doors")), 1,
//	    func(topic string, payload []byte) {
//	        log.Printf("Received: %s = %s", topic, payload)
//	    })
package mqtt
