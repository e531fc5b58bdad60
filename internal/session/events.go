package session

import (
	"time"

	"github.com/nerrad567/gray-logic-home/internal/device"
)

// EventType names a session event.
type EventType string

// Event types pushed to observers.
const (
	EventStateChanged   EventType = "state.changed"
	EventActivity       EventType = "activity.recorded"
	EventAlertRaised    EventType = "alert.raised"
	EventAlertsCleared  EventType = "alerts.cleared"
	EventNetworkChanged EventType = "network.changed"
	EventBrokerMessage  EventType = "broker.message"
	EventBrokerStatus   EventType = "broker.status"
)

// Event is one notification for observers such as the WebSocket hub.
type Event struct {
	Type      EventType `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// StateChange is the payload of EventStateChanged.
type StateChange struct {
	Channel string         `json:"channel"`
	Origin  device.Origin  `json:"origin"`
	Payload map[string]any `json:"payload"`
}

// emit delivers e to the registered observer, if any.
func (s *Session) emit(t EventType, payload any) {
	s.eventMu.RLock()
	fn := s.onEvent
	s.eventMu.RUnlock()

	if fn == nil {
		return
	}
	fn(Event{Type: t, Payload: payload, Timestamp: s.now()})
}

// OnEvent registers fn to receive every session event. fn must not block
// and must not call back into the session's intents.
func (s *Session) OnEvent(fn func(Event)) {
	s.eventMu.Lock()
	defer s.eventMu.Unlock()
	s.onEvent = fn
}
