package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pbel78/scratch2/internal/bridges/zigbee"
	"github.com/pbel78/scratch2/internal/command"
	"github.com/pbel78/scratch2/internal/infrastructure/mqtt"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeUnavailable  = "unavailable"
	ErrCodeBadGateway   = "bad_gateway"
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

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// httpStatusFor maps bridge errors to HTTP status codes.
func httpStatusFor(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, mqtt.ErrTransportUnavailable):
		return http.StatusServiceUnavailable, ErrCodeUnavailable
	case errors.Is(err, mqtt.ErrTimeout):
		return http.StatusGatewayTimeout, ErrCodeBadGateway
	case errors.Is(err, mqtt.ErrNotConnected):
		return http.StatusConflict, ErrCodeConflict
	case errors.Is(err, mqtt.ErrPublishFailed),
		errors.Is(err, mqtt.ErrSubscribeFailed),
		errors.Is(err, mqtt.ErrConnectionFailed):
		return http.StatusBadGateway, ErrCodeBadGateway
	case errors.Is(err, zigbee.ErrMalformedCommandPayload),
		errors.Is(err, zigbee.ErrUnknownPreset),
		errors.Is(err, command.ErrInvalidCommand),
		errors.Is(err, mqtt.ErrInvalidTopic),
		errors.Is(err, mqtt.ErrInvalidTarget),
		errors.Is(err, mqtt.ErrPayloadTooLarge):
		return http.StatusBadRequest, ErrCodeBadRequest
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}

// writeFailure writes err using httpStatusFor.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := httpStatusFor(err)
	writeError(w, status, code, err.Error())
}
