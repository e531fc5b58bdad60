package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/gray-logic-home/internal/panel"
)

// defaultWSPath is used when the WebSocket path is not configured.
const defaultWSPath = "/ws"

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.withRequestID)
	r.Use(middleware.RealIP)
	r.Use(s.withAccessLog)
	r.Use(s.withRecovery)
	r.Use(s.withCORS)
	r.Use(s.withBodyLimit)

	// Household dashboard
	r.Handle("/panel/*", http.StripPrefix("/panel", panel.Handler(s.cfg.PanelDir)))
	r.Handle("/panel", http.RedirectHandler("/panel/", http.StatusMovedPermanently))
	r.Handle("/", http.RedirectHandler("/panel/", http.StatusFound))

	// Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/system", s.handleSystem)
		r.Put("/system/log-level", s.handleSetLogLevel)

		// Read surface
		r.Get("/state", s.handleGetState)
		r.Get("/activity", s.handleGetActivity)
		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", s.handleGetAlerts)
			r.Delete("/", s.handleClearAlerts)
		})
		r.Post("/reset", s.handleReset)
		r.Get("/readings/{name}/history", s.handleReadingHistory)

		// Household intents
		r.Post("/lights/{room}/toggle", s.handleToggleLight)
		r.Put("/thermostat", s.handleSetThermostat)
		r.Put("/fan", s.handleSetFan)
		r.Post("/cameras/{id}/toggle", s.handleToggleCamera)
		r.Put("/doors/{id}", s.handleSetDoor)
		r.Put("/security", s.handleSetSecurity)
		r.Route("/irrigation/{zone}", func(r chi.Router) {
			r.Post("/toggle", s.handleToggleIrrigation)
			r.Put("/schedule", s.handleSetIrrigationSchedule)
		})

		// WiFi
		r.Route("/network", func(r chi.Router) {
			r.Get("/", s.handleGetNetwork)
			r.Post("/scan", s.handleScan)
			r.Post("/connect", s.handleRequestConnect)
			r.Post("/credentials", s.handleSubmitCredentials)
			r.Post("/disconnect", s.handleWifiDisconnect)
			r.Put("/enabled", s.handleSetWifiEnabled)
		})

		// Message broker
		r.Route("/broker", func(r chi.Router) {
			r.Get("/", s.handleGetBroker)
			r.Get("/messages", s.handleGetInbound)
			r.Post("/connect", s.handleConnectBroker)
			r.Post("/disconnect", s.handleDisconnectBroker)
			r.Post("/publish", s.handlePublish)
		})

		r.Get(s.wsPath(), s.handleWebSocket)
	})

	return r
}

// wsPath returns the configured WebSocket route, relative to /api/v1.
func (s *Server) wsPath() string {
	switch {
	case s.wsCfg.Path == "":
		return defaultWSPath
	case !strings.HasPrefix(s.wsCfg.Path, "/"):
		return "/" + s.wsCfg.Path
	default:
		return s.wsCfg.Path
	}
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"broker":  s.session.BrokerStatus().State,
	})
}
