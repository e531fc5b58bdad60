package broker

import (
	"context"
	"strings"
	"sync"

	"github.com/nerrad567/gray-logic-home/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-home/internal/infrastructure/mqtt"
)

// MessageHandler receives one inbound message.
type MessageHandler = func(topic string, payload []byte)

// Client dials broker connections.
// The paho-backed implementation is adapted in main.go; StubClient needs no broker.
type Client interface {
	// Dial opens one connection using cfg. It must honour ctx cancellation.
	Dial(ctx context.Context, cfg config.MQTTConfig) (Connection, error)
}

// Connection is one live broker session. *mqtt.Client satisfies it.
type Connection interface {
	// Subscribe registers handler for a topic filter.
	Subscribe(topic string, qos byte, handler MessageHandler) error

	// Unsubscribe removes a topic filter.
	Unsubscribe(topic string) error

	// Publish sends payload to topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// IsConnected returns true while the session is usable.
	IsConnected() bool

	// SetOnDisconnect registers a callback for broker-initiated loss.
	SetOnDisconnect(fn func(err error))

	// Close ends the session and stops message delivery.
	Close() error
}

// StubClient is a Client that never touches the network. Dial always
// succeeds; publishes are discarded. Deliver injects inbound messages into
// the current connection, which is useful for demos and tests.
type StubClient struct {
	mu   sync.Mutex
	conn *stubConnection
}

// NewStubClient creates a stub client.
func NewStubClient() *StubClient {
	return &StubClient{}
}

// Dial returns a new in-memory connection.
func (s *StubClient) Dial(ctx context.Context, _ config.MQTTConfig) (Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn := &stubConnection{handlers: make(map[string]MessageHandler), open: true}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	return conn, nil
}

// Deliver invokes every handler of the current connection whose filter
// matches topic. It returns the number of handlers invoked.
func (s *StubClient) Deliver(topic string, payload []byte) int {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return 0
	}
	return conn.deliver(topic, payload)
}

// Published returns how many messages the current connection discarded.
func (s *StubClient) Published() int {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return 0
	}
	conn.mu.Lock()
	defer conn.mu.Unlock()
	return conn.published
}

type stubConnection struct {
	mu        sync.Mutex
	handlers  map[string]MessageHandler
	open      bool
	published int
}

func (c *stubConnection) Subscribe(topic string, _ byte, handler MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return mqtt.ErrNotConnected
	}
	c.handlers[topic] = handler
	return nil
}

func (c *stubConnection) Unsubscribe(topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, topic)
	return nil
}

func (c *stubConnection) Publish(topic string, _ []byte, _ byte, _ bool) error {
	if err := mqtt.ValidatePublishTopic(topic); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return mqtt.ErrNotConnected
	}
	c.published++
	return nil
}

func (c *stubConnection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *stubConnection) SetOnDisconnect(func(err error)) {}

func (c *stubConnection) Close() error {
	c.mu.Lock()
	c.open = false
	c.handlers = make(map[string]MessageHandler)
	c.mu.Unlock()
	return nil
}

func (c *stubConnection) deliver(topic string, payload []byte) int {
	c.mu.Lock()
	var matched []MessageHandler
	for filter, handler := range c.handlers {
		if mqtt.WithinSubtree(topic, strings.TrimSuffix(filter, "/#")) {
			matched = append(matched, handler)
		}
	}
	c.mu.Unlock()

	for _, handler := range matched {
		handler(topic, payload)
	}
	return len(matched)
}
