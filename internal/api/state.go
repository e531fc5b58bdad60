package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/gray-logic-home/internal/session"
)

// decodeBody decodes a JSON request body into dst, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	return true
}

// writeResult writes the outcome of a session intent.
func writeResult(w http.ResponseWriter, res session.Result, err error) {
	if err != nil {
		writeIntentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleGetState returns the full household snapshot.
func (s *Server) handleGetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// handleGetActivity returns the activity feed, newest first.
func (s *Server) handleGetActivity(w http.ResponseWriter, _ *http.Request) {
	entries := s.session.Activity()
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// handleGetAlerts returns the active alerts.
func (s *Server) handleGetAlerts(w http.ResponseWriter, _ *http.Request) {
	alerts := s.session.Alerts()
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// handleClearAlerts clears every active alert.
func (s *Server) handleClearAlerts(w http.ResponseWriter, _ *http.Request) {
	res, err := s.session.ClearAlerts()
	writeResult(w, res, err)
}

// handleReset restores the household to its initial state.
func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.session.Reset()
	writeJSON(w, http.StatusOK, session.Result{Message: "Session reset"})
}
