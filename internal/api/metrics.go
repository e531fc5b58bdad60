package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics is the JSON system summary served at /api/v1/system.
// Counters for scraping live at /metrics.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	WebSocket     WSMetrics       `json:"websocket"`
	Broker        BrokerMetrics   `json:"broker"`
	Household     HouseholdCounts `json:"household"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int    `json:"connected_clients"`
	DroppedFrames    uint64 `json:"dropped_frames"`
}

// BrokerMetrics summarises the broker bridge.
type BrokerMetrics struct {
	State           string `json:"state"`
	Subscriptions   int    `json:"subscriptions"`
	InboundMessages int    `json:"inbound_messages"`
}

// HouseholdCounts summarises the session contents.
type HouseholdCounts struct {
	ActivityEntries int `json:"activity_entries"`
	ActiveAlerts    int `json:"active_alerts"`
	VisibleNetworks int `json:"visible_networks"`
}

// handleSystem returns a runtime and household summary.
func (s *Server) handleSystem(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	status := s.session.BrokerStatus()
	snap := s.session.Snapshot()

	writeJSON(w, http.StatusOK, SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
			DroppedFrames:    s.hub.DroppedFrames(),
		},
		Broker: BrokerMetrics{
			State:           string(status.State),
			Subscriptions:   len(status.Topics),
			InboundMessages: len(snap.Inbound),
		},
		Household: HouseholdCounts{
			ActivityEntries: len(snap.Activity),
			ActiveAlerts:    len(snap.Alerts),
			VisibleNetworks: len(snap.Network.Networks),
		},
	})
}

type logLevelRequest struct {
	Level string `json:"level"`
}

// handleSetLogLevel changes process-wide log filtering without a restart.
func (s *Server) handleSetLogLevel(w http.ResponseWriter, r *http.Request) {
	var req logLevelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.logger.SetLevel(req.Level); err != nil {
		writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
		return
	}
	s.logger.Info("log level changed", "level", s.logger.Level())
	writeJSON(w, http.StatusOK, map[string]string{"level": s.logger.Level()})
}
