package api

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-home/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-home/internal/infrastructure/logging"
)

// Hub fans session events out to connected dashboard clients.
//
// Each client holds its own channel set; an event reaches a client when
// the client is subscribed to the event type or to WSChannelAll.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - The hub lock is never held while a client lock is taken.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu    sync.RWMutex
	peers map[*wsPeer]struct{}

	dropped atomic.Uint64
}

// NewHub creates an empty hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:    cfg,
		logger: logger,
		peers:  make(map[*wsPeer]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	peers := h.peers
	h.peers = make(map[*wsPeer]struct{})
	h.mu.Unlock()

	for p := range peers {
		p.shutdown()
	}
}

// join adds a peer to the fan-out set.
func (h *Hub) join(p *wsPeer) {
	h.mu.Lock()
	h.peers[p] = struct{}{}
	n := len(h.peers)
	h.mu.Unlock()

	h.logger.Debug("dashboard client connected", "clients", n)
}

// leave removes a peer. Only the caller that actually removed it closes
// the outbound queue, so a racing Run cannot close it twice.
func (h *Hub) leave(p *wsPeer) {
	h.mu.Lock()
	_, present := h.peers[p]
	delete(h.peers, p)
	n := len(h.peers)
	h.mu.Unlock()

	if present {
		p.shutdown()
	}
	h.logger.Debug("dashboard client disconnected", "clients", n)
}

// Broadcast sends an event stamped now to every interested client.
func (h *Hub) Broadcast(eventType string, payload any) {
	h.BroadcastAt(eventType, payload, time.Now())
}

// BroadcastAt sends an event carrying the given timestamp to every client
// subscribed to eventType or to WSChannelAll.
func (h *Hub) BroadcastAt(eventType string, payload any, at time.Time) {
	frame, err := encodeFrame(WSMessage{
		Type:      WSTypeEvent,
		EventType: eventType,
		Timestamp: stamp(at),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("encoding dashboard event", "event_type", eventType, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*wsPeer, 0, len(h.peers))
	for p := range h.peers {
		targets = append(targets, p)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, p := range targets {
		if !p.channels.matches(eventType) {
			continue
		}
		if p.enqueue(frame) {
			delivered++
		} else {
			h.dropped.Add(1)
		}
	}
	if delivered > 0 {
		h.logger.Debug("dashboard event relayed", "event_type", eventType, "recipients", delivered)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// DroppedFrames returns how many events were discarded because a client's
// outbound queue was full.
func (h *Hub) DroppedFrames() uint64 {
	return h.dropped.Load()
}

// channelSet is a client's subscription list.
type channelSet struct {
	mu  sync.RWMutex
	set map[string]struct{}
}

func newChannelSet() *channelSet {
	return &channelSet{set: make(map[string]struct{})}
}

func (c *channelSet) add(names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range names {
		c.set[n] = struct{}{}
	}
}

func (c *channelSet) remove(names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range names {
		delete(c.set, n)
	}
}

// matches reports whether an event type should be delivered.
func (c *channelSet) matches(eventType string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.set[WSChannelAll]; ok {
		return true
	}
	_, ok := c.set[eventType]
	return ok
}

// encodeFrame serialises one outbound message.
func encodeFrame(msg WSMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// stamp formats a timestamp for the wire.
func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
