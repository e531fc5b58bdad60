// Package api implements the HTTP REST API and WebSocket server for the
// Gray Logic household dashboard.
//
// This package provides:
//   - Read endpoints for the household snapshot, activity feed and alerts
//   - Intent endpoints for lights, climate, security, cameras, irrigation,
//     WiFi and the message broker
//   - A WebSocket hub that relays session events to dashboards
//   - Prometheus metrics at /metrics
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Architecture
//
// The server is a thin adapter over session.Session. Every intent endpoint
// decodes a small JSON body, calls the matching session intent and returns
// its Result. Session events (state changes, ledger lines, alerts, broker
// traffic) are pushed to WebSocket clients subscribed to the event type,
// or to "*" for everything.
//
// # Errors
//
// Intent failures are mapped from package sentinel errors to HTTP status
// codes by writeIntentError. Bodies always use the {status, code, message}
// envelope.
package api
