package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-home/internal/infrastructure/influxdb"
)

// defaultHistoryWindow is used when no window query parameter is given.
const defaultHistoryWindow = time.Hour

// handleReadingHistory returns stored values for one reading.
//
// Query parameters:
//   - window: Go duration (e.g. "30m", "6h"); defaults to one hour
func (s *Server) handleReadingHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "reading history requires telemetry")
		return
	}

	name := chi.URLParam(r, "name")
	window := defaultHistoryWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			writeBadRequest(w, "window must be a duration such as 30m or 6h")
			return
		}
		window = d
	}

	points, err := s.history.ReadingHistory(r.Context(), name, window)
	switch {
	case errors.Is(err, influxdb.ErrInvalidQuery):
		writeBadRequest(w, err.Error())
		return
	case err != nil:
		s.logger.Warn("reading history query failed", "reading", name, "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeBadGateway, "reading history unavailable")
		return
	}

	if points == nil {
		points = []influxdb.ReadingPoint{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":   name,
		"window": window.String(),
		"points": points,
	})
}
