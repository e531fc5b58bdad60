package broker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-home/internal/activity"
	"github.com/nerrad567/gray-logic-home/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-home/internal/infrastructure/mqtt"
)

// ConnState is the bridge connection state.
type ConnState string

// Connection states.
const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

// Credentials authenticate against the broker. Password is never serialized.
type Credentials struct {
	Username string `json:"username,omitempty"`
	Password string `json:"-"`
}

// Status is a read-only view of the bridge connection.
type Status struct {
	State       ConnState  `json:"state"`
	Endpoint    string     `json:"endpoint,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	Topics      []string   `json:"topics"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
}

// Logger is the logging surface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Bridge relays between the broker and the device state.
//
// Thread Safety: All methods are safe for concurrent use. Connect and
// Disconnect are serialized; inbound messages are applied one at a time.
type Bridge struct {
	cfg      config.MQTTConfig
	client   Client
	state    DeviceState
	ledger   *activity.Ledger
	channels *ChannelMap
	inbound  *InboundLog
	metrics  *Metrics

	// dialMu serializes Connect and Disconnect.
	dialMu sync.Mutex

	// recvMu serializes inbound handling against generation changes, so no
	// handler is mid-flight once a connection has been torn down.
	recvMu sync.Mutex

	mu          sync.RWMutex
	conn        Connection
	connState   ConnState
	endpoint    string
	lastErr     string
	topics      []string
	generation  uint64
	connectedAt time.Time
	now         func() time.Time

	callbackMu sync.RWMutex
	onStatus   func(Status)
	onMessage  func(InboundMessage)

	logger   Logger
	loggerMu sync.RWMutex
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// Config supplies QoS, timeouts and the default endpoint.
	Config config.MQTTConfig

	// Channels maps logical channel names to topics.
	Channels map[string]string

	// Client dials broker connections.
	Client Client

	// State receives decoded inbound messages.
	State DeviceState

	// Ledger records connection events.
	Ledger *activity.Ledger

	// Metrics is optional; nil creates unregistered collectors.
	Metrics *Metrics

	// InboundCapacity bounds the InboundLog (default 20).
	InboundCapacity int

	// Logger is optional structured logger.
	Logger Logger
}

// NewBridge creates a disconnected bridge.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("broker client is required")
	}
	if opts.State == nil {
		return nil, fmt.Errorf("device state is required")
	}
	if opts.Ledger == nil {
		return nil, fmt.Errorf("activity ledger is required")
	}

	channels, err := NewChannelMap(opts.Channels)
	if err != nil {
		return nil, fmt.Errorf("channels: %w", err)
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &Bridge{
		cfg:       opts.Config,
		client:    opts.Client,
		state:     opts.State,
		ledger:    opts.Ledger,
		channels:  channels,
		inbound:   NewInboundLog(opts.InboundCapacity),
		metrics:   metrics,
		connState: StateDisconnected,
		now:       time.Now,
		logger:    opts.Logger,
	}, nil
}

// SetClock overrides the time source for inbound message timestamps.
func (b *Bridge) SetClock(now func() time.Time) {
	b.mu.Lock()
	b.now = now
	b.mu.Unlock()
}

// OnStatus registers fn to be called after every state transition.
func (b *Bridge) OnStatus(fn func(Status)) {
	b.callbackMu.Lock()
	b.onStatus = fn
	b.callbackMu.Unlock()
}

// OnMessage registers fn to be called for every inbound message after it
// has been handled.
func (b *Bridge) OnMessage(fn func(InboundMessage)) {
	b.callbackMu.Lock()
	b.onMessage = fn
	b.callbackMu.Unlock()
}

// Channels returns the channel map.
func (b *Bridge) Channels() *ChannelMap {
	return b.channels
}

// InboundLog returns the inbound message history.
func (b *Bridge) InboundLog() *InboundLog {
	return b.inbound
}

// Connect dials host:port and subscribes every channel topic. An existing
// connection is torn down first.
//
// Parameters:
//   - ctx: Bounds the dial together with cfg.ConnectTimeout
//   - host, port: Broker endpoint
//   - creds: Optional username/password
//
// Returns:
//   - error: ErrInvalidEndpoint, or ErrConnectionFailed wrapping the cause
func (b *Bridge) Connect(ctx context.Context, host string, port int, creds Credentials) error {
	if host == "" || port < 1 || port > 65535 {
		return fmt.Errorf("%w: %q port %d", ErrInvalidEndpoint, host, port)
	}

	b.dialMu.Lock()
	defer b.dialMu.Unlock()

	if b.teardown() {
		b.logInfo("superseding broker connection")
	}

	endpoint := net.JoinHostPort(host, strconv.Itoa(port))
	cfg := b.cfg
	cfg.Broker.Host = host
	cfg.Broker.Port = port
	cfg.Auth = config.MQTTAuthConfig{Username: creds.Username, Password: creds.Password}

	b.mu.Lock()
	b.generation++
	gen := b.generation
	b.connState = StateConnecting
	b.endpoint = endpoint
	b.lastErr = ""
	b.topics = nil
	b.mu.Unlock()
	b.notifyStatus()

	b.logInfo("connecting to broker", "endpoint", endpoint)

	conn, err := b.client.Dial(ctx, cfg)
	if err != nil {
		return b.failConnect(gen, endpoint, err)
	}

	conn.SetOnDisconnect(func(err error) {
		b.handleLost(gen, err)
	})

	qos := byte(cfg.QoS)
	topics := make([]string, 0, b.channels.Len())
	for _, ch := range b.channels.Channels() {
		filter := mqtt.SubtreeFilter(ch.Topic)
		if err := conn.Subscribe(filter, qos, b.handlerFor(gen)); err != nil {
			_ = conn.Close()
			return b.failConnect(gen, endpoint, fmt.Errorf("subscribe %s: %w", filter, err))
		}
		topics = append(topics, filter)
	}

	b.mu.Lock()
	b.conn = conn
	b.connState = StateConnected
	b.topics = topics
	b.connectedAt = b.now()
	b.mu.Unlock()

	b.metrics.connects.WithLabelValues("success").Inc()
	b.metrics.connected.Set(1)
	b.ledger.Record(fmt.Sprintf("Connected to broker at %s", endpoint), activity.CategoryBroker)
	b.logInfo("broker connected", "endpoint", endpoint, "topics", len(topics))
	b.notifyStatus()

	return nil
}

// failConnect returns the bridge to Disconnected after a failed attempt.
func (b *Bridge) failConnect(gen uint64, endpoint string, cause error) error {
	b.recvMu.Lock()
	b.mu.Lock()
	if b.generation == gen {
		b.generation++
		b.connState = StateDisconnected
		b.lastErr = cause.Error()
		b.topics = nil
	}
	b.mu.Unlock()
	b.recvMu.Unlock()

	b.metrics.connects.WithLabelValues("failure").Inc()
	b.ledger.Record(fmt.Sprintf("Broker connection to %s failed", endpoint), activity.CategoryAlert)
	b.logError("broker connection failed", cause)
	b.notifyStatus()

	return fmt.Errorf("%w: %w", ErrConnectionFailed, cause)
}

// Disconnect closes the live connection. It is a no-op when disconnected.
// When it returns, no inbound message of the closed connection is applied.
func (b *Bridge) Disconnect() error {
	b.dialMu.Lock()
	defer b.dialMu.Unlock()

	b.mu.RLock()
	endpoint := b.endpoint
	b.mu.RUnlock()

	if !b.teardown() {
		return nil
	}

	b.ledger.Record(fmt.Sprintf("Disconnected from broker at %s", endpoint), activity.CategoryBroker)
	b.logInfo("broker disconnected", "endpoint", endpoint)
	b.notifyStatus()
	return nil
}

// teardown unsubscribes and closes the current connection, if any.
// Callers hold dialMu. It reports whether a connection was closed.
func (b *Bridge) teardown() bool {
	b.recvMu.Lock()
	b.mu.Lock()
	conn := b.conn
	topics := b.topics
	b.conn = nil
	b.generation++
	b.connState = StateDisconnected
	b.topics = nil
	b.mu.Unlock()
	b.recvMu.Unlock()

	if conn == nil {
		return false
	}

	b.metrics.connected.Set(0)
	if conn.IsConnected() {
		for _, topic := range topics {
			if err := conn.Unsubscribe(topic); err != nil {
				b.logDebug("unsubscribe failed", "topic", topic, "error", err)
			}
		}
	}
	if err := conn.Close(); err != nil {
		b.logError("closing broker connection", err)
	}
	return true
}

// handleLost is invoked by the connection when the broker drops it.
func (b *Bridge) handleLost(gen uint64, cause error) {
	b.recvMu.Lock()
	b.mu.Lock()
	if b.generation != gen || b.conn == nil {
		b.mu.Unlock()
		b.recvMu.Unlock()
		return
	}
	conn := b.conn
	endpoint := b.endpoint
	b.conn = nil
	b.generation++
	b.connState = StateDisconnected
	b.topics = nil
	if cause != nil {
		b.lastErr = cause.Error()
	}
	b.mu.Unlock()
	b.recvMu.Unlock()

	_ = conn.Close()

	b.metrics.connected.Set(0)
	b.ledger.Record(fmt.Sprintf("Broker connection to %s lost", endpoint), activity.CategoryAlert)
	b.logError("broker connection lost", cause)
	b.notifyStatus()
}

// Publish sends payload to the topic configured for channel.
//
// Parameters:
//   - ctx: Checked before sending; the send itself is bounded by the publish timeout
//   - channel: Logical channel name
//   - payload: []byte, json.RawMessage and JSON text are sent as-is; anything else is JSON encoded
//
// Returns:
//   - error: ErrUnknownChannel, ErrInvalidPayload, ErrNotConnected, or ErrPublishFailed
func (b *Bridge) Publish(ctx context.Context, channel string, payload any) error {
	topic, ok := b.channels.Topic(channel)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}

	data, err := encodePayload(payload)
	if err != nil {
		return err
	}

	b.mu.RLock()
	conn := b.conn
	connected := b.connState == StateConnected
	b.mu.RUnlock()

	if conn == nil || !connected || !conn.IsConnected() {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	if err := conn.Publish(topic, data, byte(b.cfg.QoS), false); err != nil {
		b.metrics.published.WithLabelValues(channel, "failure").Inc()
		b.logError("broker publish failed", err)
		if errors.Is(err, mqtt.ErrNotConnected) {
			return ErrNotConnected
		}
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	b.metrics.published.WithLabelValues(channel, "success").Inc()
	b.logDebug("published", "channel", channel, "topic", topic, "bytes", len(data))
	return nil
}

// IsConnected reports whether the bridge holds a live connection.
func (b *Bridge) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connState == StateConnected && b.conn != nil && b.conn.IsConnected()
}

// Status returns the current connection status.
func (b *Bridge) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	st := Status{
		State:     b.connState,
		Endpoint:  b.endpoint,
		LastError: b.lastErr,
		Topics:    make([]string, len(b.topics)),
	}
	copy(st.Topics, b.topics)
	if b.connState == StateConnected {
		at := b.connectedAt
		st.ConnectedAt = &at
	}
	return st
}

// handlerFor returns the message handler bound to one connection generation.
func (b *Bridge) handlerFor(gen uint64) MessageHandler {
	return func(topic string, payload []byte) {
		b.handleMessage(gen, topic, payload)
	}
}

// handleMessage resolves, decodes and applies one inbound message.
// Failures are recorded in the InboundLog and never propagated.
func (b *Bridge) handleMessage(gen uint64, topic string, payload []byte) {
	b.recvMu.Lock()

	b.mu.RLock()
	current := b.generation == gen
	now := b.now
	b.mu.RUnlock()

	if !current {
		b.recvMu.Unlock()
		b.metrics.dropped.WithLabelValues(dropStale).Inc()
		return
	}

	msg := InboundMessage{
		Topic:      topic,
		Payload:    string(payload),
		ReceivedAt: now(),
	}

	channel, ok := b.channels.Resolve(topic)
	switch {
	case !ok:
		msg.Error = fmt.Sprintf("%v: %s", ErrUnknownChannel, topic)
		b.metrics.dropped.WithLabelValues(dropUnknown).Inc()
	default:
		msg.Channel = channel
		b.metrics.received.WithLabelValues(channel).Inc()

		apply, err := decodeMessage(channel, payload)
		switch {
		case err != nil:
			msg.Error = err.Error()
			b.metrics.dropped.WithLabelValues(dropDecode).Inc()
		default:
			if err := apply(b.state); err != nil {
				msg.Error = err.Error()
				b.metrics.dropped.WithLabelValues(dropReject).Inc()
			} else {
				msg.Applied = true
				b.metrics.applied.WithLabelValues(channel).Inc()
			}
		}
	}

	b.inbound.Add(msg)
	b.recvMu.Unlock()

	if !msg.Applied {
		b.logDebug("inbound message dropped", "topic", topic, "reason", msg.Error)
	}

	b.callbackMu.RLock()
	fn := b.onMessage
	b.callbackMu.RUnlock()
	if fn != nil {
		fn(msg)
	}
}

func (b *Bridge) notifyStatus() {
	b.callbackMu.RLock()
	fn := b.onStatus
	b.callbackMu.RUnlock()
	if fn != nil {
		fn(b.Status())
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
}

// logInfo logs an info message if logger is set.
func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (b *Bridge) logError(msg string, err error) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}

// logDebug logs a debug message if logger is set.
func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}
