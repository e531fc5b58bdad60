package broker

import (
	"sync"
	"time"
	"unicode/utf8"
)

// DefaultInboundCapacity is the number of inbound messages retained.
const DefaultInboundCapacity = 20

// maxLoggedPayload bounds the payload text kept per message.
const maxLoggedPayload = 512

// InboundMessage is one message received from the broker.
type InboundMessage struct {
	Topic      string    `json:"topic"`
	Channel    string    `json:"channel,omitempty"`
	Payload    string    `json:"payload"`
	ReceivedAt time.Time `json:"received_at"`
	Applied    bool      `json:"applied"`
	Error      string    `json:"error,omitempty"`
}

// InboundLog is a bounded, newest-first history of inbound messages.
//
// Thread Safety: All methods are safe for concurrent use.
type InboundLog struct {
	mu       sync.RWMutex
	capacity int
	messages []InboundMessage
}

// NewInboundLog creates a log holding at most capacity messages.
// A non-positive capacity uses DefaultInboundCapacity.
func NewInboundLog(capacity int) *InboundLog {
	if capacity <= 0 {
		capacity = DefaultInboundCapacity
	}
	return &InboundLog{capacity: capacity}
}

// Add prepends msg, evicting the oldest message when full.
func (l *InboundLog) Add(msg InboundMessage) {
	msg.Payload = truncatePayload(msg.Payload, maxLoggedPayload)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = append(l.messages, InboundMessage{})
	copy(l.messages[1:], l.messages)
	l.messages[0] = msg
	if len(l.messages) > l.capacity {
		l.messages = l.messages[:l.capacity]
	}
}

// truncatePayload cuts s to at most n bytes without splitting a rune.
func truncatePayload(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Messages returns a copy of the log, newest first.
func (l *InboundLog) Messages() []InboundMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]InboundMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len returns the number of retained messages.
func (l *InboundLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Reset empties the log.
func (l *InboundLog) Reset() {
	l.mu.Lock()
	l.messages = nil
	l.mu.Unlock()
}
