package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-home/internal/bridges/broker"
	"github.com/nerrad567/gray-logic-home/internal/device"
	"github.com/nerrad567/gray-logic-home/internal/network"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeUnauthorized   = "unauthorised"
	ErrCodeConflict       = "conflict"
	ErrCodeInternal       = "internal_error"
	ErrCodeValidation     = "validation_error"
	ErrCodeNotConnected   = "not_connected"
	ErrCodeBadGateway     = "bad_gateway"
	ErrCodeUnavailable    = "unavailable"
	ErrCodeMethodNotAllow = "method_not_allowed"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeIntentError maps an intent failure onto a status code.
//
// Validation problems are 422, unknown entities 404, state conflicts
// (no pending request, WiFi disabled, broker offline) 409, a rejected
// WiFi secret 401 and a broker that could not be reached or refused a
// publish 502. Anything else is a 500.
func writeIntentError(w http.ResponseWriter, err error) {
	status, code := intentStatus(err)
	writeError(w, status, code, err.Error())
}

func intentStatus(err error) (int, string) {
	switch {
	case errors.Is(err, device.ErrOutOfRange),
		errors.Is(err, device.ErrInvalidValue),
		errors.Is(err, broker.ErrInvalidEndpoint),
		errors.Is(err, broker.ErrInvalidPayload):
		return http.StatusUnprocessableEntity, ErrCodeValidation
	case errors.Is(err, device.ErrUnknownEntity),
		errors.Is(err, network.ErrUnknownNetwork),
		errors.Is(err, broker.ErrUnknownChannel):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, broker.ErrNotConnected):
		return http.StatusConflict, ErrCodeNotConnected
	case errors.Is(err, network.ErrNoPendingRequest),
		errors.Is(err, network.ErrDisabled):
		return http.StatusConflict, ErrCodeConflict
	case errors.Is(err, network.ErrAuthenticationFailed):
		return http.StatusUnauthorized, ErrCodeUnauthorized
	case errors.Is(err, broker.ErrConnectionFailed),
		errors.Is(err, broker.ErrPublishFailed):
		return http.StatusBadGateway, ErrCodeBadGateway
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}
