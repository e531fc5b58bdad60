package api

import (
	"net/http"
)

// connectRequest is the body of POST /network/connect.
type connectRequest struct {
	SSID string `json:"ssid"`
}

// credentialsRequest is the body of POST /network/credentials.
type credentialsRequest struct {
	SSID   string `json:"ssid"`
	Secret string `json:"secret"`
}

// enabledRequest is the body of PUT /network/enabled.
type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// handleGetNetwork returns the WiFi state, visible networks and history.
func (s *Server) handleGetNetwork(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Network())
}

func (s *Server) handleScan(w http.ResponseWriter, _ *http.Request) {
	res, err := s.session.Scan()
	writeResult(w, res, err)
}

func (s *Server) handleRequestConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SSID == "" {
		writeBadRequest(w, "ssid is required")
		return
	}
	res, err := s.session.RequestConnect(req.SSID)
	writeResult(w, res, err)
}

func (s *Server) handleSubmitCredentials(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SSID == "" {
		writeBadRequest(w, "ssid is required")
		return
	}
	res, err := s.session.SubmitCredentials(req.SSID, req.Secret)
	writeResult(w, res, err)
}

func (s *Server) handleWifiDisconnect(w http.ResponseWriter, _ *http.Request) {
	res, err := s.session.Disconnect()
	writeResult(w, res, err)
}

func (s *Server) handleSetWifiEnabled(w http.ResponseWriter, r *http.Request) {
	var req enabledRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		writeBadRequest(w, "enabled is required")
		return
	}
	res, err := s.session.SetWifiEnabled(*req.Enabled)
	writeResult(w, res, err)
}
