package api

import (
	"net/http"

	"github.com/nerrad567/gray-logic-home/internal/bridges/broker"
)

// brokerConnectRequest is the optional body of POST /broker/connect.
// An empty host connects to the configured broker.
type brokerConnectRequest struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// publishRequest is the body of POST /broker/publish.
type publishRequest struct {
	Channel string `json:"channel"`
	Payload any    `json:"payload"`
}

// handleGetBroker returns the bridge status and channel map.
func (s *Server) handleGetBroker(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   s.session.BrokerStatus(),
		"channels": s.session.BrokerChannels(),
	})
}

// handleGetInbound returns recently received broker messages, newest first.
func (s *Server) handleGetInbound(w http.ResponseWriter, _ *http.Request) {
	msgs := s.session.InboundMessages()
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": msgs,
		"count":    len(msgs),
	})
}

func (s *Server) handleConnectBroker(w http.ResponseWriter, r *http.Request) {
	var req brokerConnectRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	if req.Host == "" {
		res, err := s.session.ConnectConfiguredBroker(r.Context())
		writeResult(w, res, err)
		return
	}

	res, err := s.session.ConnectBroker(r.Context(), req.Host, req.Port, broker.Credentials{
		Username: req.Username,
		Password: req.Password,
	})
	writeResult(w, res, err)
}

func (s *Server) handleDisconnectBroker(w http.ResponseWriter, _ *http.Request) {
	res, err := s.session.DisconnectBroker()
	writeResult(w, res, err)
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Channel == "" {
		writeBadRequest(w, "channel is required")
		return
	}
	res, err := s.session.Publish(r.Context(), req.Channel, req.Payload)
	writeResult(w, res, err)
}
