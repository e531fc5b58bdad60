package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// thermostatRequest is the body of PUT /thermostat.
type thermostatRequest struct {
	TargetC *int `json:"target_c"`
}

// fanRequest is the body of PUT /fan.
type fanRequest struct {
	Level string `json:"level"`
}

// doorRequest is the body of PUT /doors/{id}.
type doorRequest struct {
	Status string `json:"status"`
}

// securityRequest is the body of PUT /security.
type securityRequest struct {
	Mode string `json:"mode"`
}

// scheduleRequest is the body of PUT /irrigation/{zone}/schedule.
type scheduleRequest struct {
	ScheduleTime    string `json:"schedule_time"`
	DurationMinutes int    `json:"duration_minutes"`
}

func (s *Server) handleToggleLight(w http.ResponseWriter, r *http.Request) {
	res, err := s.session.ToggleLight(chi.URLParam(r, "room"))
	writeResult(w, res, err)
}

func (s *Server) handleSetThermostat(w http.ResponseWriter, r *http.Request) {
	var req thermostatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TargetC == nil {
		writeBadRequest(w, "target_c is required")
		return
	}
	res, err := s.session.SetThermostat(*req.TargetC)
	writeResult(w, res, err)
}

func (s *Server) handleSetFan(w http.ResponseWriter, r *http.Request) {
	var req fanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.session.SetFanLevel(req.Level)
	writeResult(w, res, err)
}

func (s *Server) handleToggleCamera(w http.ResponseWriter, r *http.Request) {
	res, err := s.session.ToggleCamera(chi.URLParam(r, "id"))
	writeResult(w, res, err)
}

func (s *Server) handleSetDoor(w http.ResponseWriter, r *http.Request) {
	var req doorRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.session.SetDoor(chi.URLParam(r, "id"), req.Status)
	writeResult(w, res, err)
}

func (s *Server) handleSetSecurity(w http.ResponseWriter, r *http.Request) {
	var req securityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.session.SetSecurityMode(req.Mode)
	writeResult(w, res, err)
}

func (s *Server) handleToggleIrrigation(w http.ResponseWriter, r *http.Request) {
	res, err := s.session.ToggleIrrigation(chi.URLParam(r, "zone"))
	writeResult(w, res, err)
}

func (s *Server) handleSetIrrigationSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.session.SetIrrigationSchedule(chi.URLParam(r, "zone"), req.ScheduleTime, req.DurationMinutes)
	writeResult(w, res, err)
}
