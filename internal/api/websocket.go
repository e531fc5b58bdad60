package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-home/internal/infrastructure/config"
)

// Dashboard WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	// WSChannelAll subscribes a client to every event type.
	WSChannelAll = "*"

	// WSEventSnapshot carries the full household snapshot, sent once
	// when a client connects.
	WSEventSnapshot = "snapshot"

	// wsQueueDepth is the per-client outbound queue length.
	wsQueueDepth = 256
)

// WSMessage is the envelope for every frame in both directions.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload of subscribe and unsubscribe frames.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// wsInbound is a client frame with its payload left undecoded.
type wsInbound struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS middleware already gates cross-origin requests.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsTimings holds the keepalive settings derived from configuration.
type wsTimings struct {
	pingEvery time.Duration
	pongWait  time.Duration
	readLimit int64
}

func newWSTimings(cfg config.WebSocketConfig) wsTimings {
	return wsTimings{
		pingEvery: time.Duration(cfg.PingInterval) * time.Second,
		pongWait:  time.Duration(cfg.PongTimeout) * time.Second,
		readLimit: int64(cfg.MaxMessageSize),
	}
}

// readDeadline is how long a connection may stay silent.
func (t wsTimings) readDeadline() time.Time {
	return time.Now().Add(t.pingEvery + t.pongWait)
}

// wsPeer is one connected dashboard client.
type wsPeer struct {
	hub      *Hub
	conn     *websocket.Conn
	channels *channelSet

	mu     sync.Mutex
	out    chan []byte
	closed bool
}

// handleWebSocket upgrades the request and sends the current household
// snapshot as the first event.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	p := &wsPeer{
		hub:      s.hub,
		conn:     conn,
		channels: newChannelSet(),
		out:      make(chan []byte, wsQueueDepth),
	}

	s.hub.join(p)
	p.reply(WSMessage{
		Type:      WSTypeEvent,
		EventType: WSEventSnapshot,
		Timestamp: stamp(time.Now()),
		Payload:   s.session.Snapshot(),
	})

	timings := newWSTimings(s.wsCfg)
	go p.writeLoop(timings)
	go p.readLoop(timings)
}

// enqueue queues a frame without blocking. It reports false when the
// queue is full or the peer is already shut down.
func (p *wsPeer) enqueue(frame []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.out <- frame:
		return true
	default:
		return false
	}
}

// shutdown closes the outbound queue and the connection. Safe to call
// more than once.
func (p *wsPeer) shutdown() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.out)
	}
	p.mu.Unlock()

	if p.conn != nil {
		p.conn.Close()
	}
}

// readLoop consumes client frames until the connection fails.
func (p *wsPeer) readLoop(t wsTimings) {
	defer p.hub.leave(p)

	p.conn.SetReadLimit(t.readLimit)
	//nolint:errcheck // initial deadline; failures surface on read
	p.conn.SetReadDeadline(t.readDeadline())
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(t.readDeadline())
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				p.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		// Browsers do not always answer protocol pings; any frame counts.
		//nolint:errcheck // failures surface on the next read
		p.conn.SetReadDeadline(t.readDeadline())
		p.dispatch(data)
	}
}

// writeLoop drains the outbound queue and sends keepalive pings.
func (p *wsPeer) writeLoop(t wsTimings) {
	ticker := time.NewTicker(t.pingEvery)
	defer ticker.Stop()
	defer p.conn.Close()

	for {
		select {
		case frame, ok := <-p.out:
			//nolint:errcheck // write errors are checked below
			p.conn.SetWriteDeadline(time.Now().Add(t.pongWait))
			if !ok {
				//nolint:errcheck // peer is going away regardless
				p.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // write errors are checked below
			p.conn.SetWriteDeadline(time.Now().Add(t.pongWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch handles one client frame.
func (p *wsPeer) dispatch(data []byte) {
	var in wsInbound
	if err := json.Unmarshal(data, &in); err != nil {
		p.fail("", "invalid JSON message")
		return
	}

	switch in.Type {
	case WSTypePing:
		p.reply(WSMessage{Type: WSTypePong, ID: in.ID, Timestamp: stamp(time.Now())})
	case WSTypeSubscribe, WSTypeUnsubscribe:
		var sub WSSubscribePayload
		if len(in.Payload) == 0 || json.Unmarshal(in.Payload, &sub) != nil {
			p.fail(in.ID, "invalid "+in.Type+" payload")
			return
		}
		key := "subscribed"
		if in.Type == WSTypeSubscribe {
			p.channels.add(sub.Channels)
		} else {
			p.channels.remove(sub.Channels)
			key = "unsubscribed"
		}
		p.hub.logger.Debug("dashboard subscription changed", "action", in.Type, "channels", sub.Channels)
		p.reply(WSMessage{
			Type:      WSTypeResponse,
			ID:        in.ID,
			Timestamp: stamp(time.Now()),
			Payload:   map[string][]string{key: sub.Channels},
		})
	default:
		p.fail(in.ID, "unknown message type: "+in.Type)
	}
}

// reply queues a frame for this peer only.
func (p *wsPeer) reply(msg WSMessage) {
	frame, err := encodeFrame(msg)
	if err != nil {
		p.hub.logger.Error("encoding websocket reply", "type", msg.Type, "error", err)
		return
	}
	p.enqueue(frame)
}

// fail sends an error frame.
func (p *wsPeer) fail(id, message string) {
	p.reply(WSMessage{
		Type:      WSTypeError,
		ID:        id,
		Timestamp: stamp(time.Now()),
		Payload:   map[string]string{"message": message},
	})
}
