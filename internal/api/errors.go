package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-caseta/internal/hub"
)

// Error is the body of every non-2xx response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeConflict       = "conflict"
	ErrCodeInternal       = "internal_error"
	ErrCodeValidation     = "validation_error"
	ErrCodeMethodNotAllow = "method_not_allowed"

	// ErrCodeBridge reports a command the bridge did not carry out.
	ErrCodeBridge = "bridge_error"
)

// hubResponse is the response for one class of hub error. An empty
// message echoes the error text.
type hubResponse struct {
	status  int
	code    string
	message string
}

// hubErrors maps the hub's sentinel errors to responses.
var hubErrors = []struct {
	err  error
	resp hubResponse
}{
	{hub.ErrIntegrationNotFound, hubResponse{http.StatusNotFound, ErrCodeNotFound, "integration not found"}},
	{hub.ErrFlowNotFound, hubResponse{http.StatusNotFound, ErrCodeNotFound, "flow not found"}},
	{hub.ErrEntryNotFound, hubResponse{http.StatusNotFound, ErrCodeNotFound, "config entry not found"}},
	{hub.ErrEntityNotFound, hubResponse{http.StatusNotFound, ErrCodeNotFound, "entity not found"}},
	{hub.ErrEntryExists, hubResponse{http.StatusConflict, ErrCodeConflict, "config entry already exists"}},
	{hub.ErrAlreadyConfigured, hubResponse{http.StatusConflict, ErrCodeConflict, ""}},
	{hub.ErrNotCommandable, hubResponse{http.StatusBadRequest, ErrCodeValidation, ""}},
	{hub.ErrUnknownCommand, hubResponse{http.StatusBadRequest, ErrCodeValidation, ""}},
	{hub.ErrInvalidCommand, hubResponse{http.StatusBadRequest, ErrCodeValidation, ""}},
}

// Fallbacks for errors the hub does not classify.
var (
	flowFailed    = hubResponse{http.StatusInternalServerError, ErrCodeInternal, "config flow failed"}
	entryFailed   = hubResponse{http.StatusInternalServerError, ErrCodeInternal, "config entry operation failed"}
	commandFailed = hubResponse{http.StatusBadGateway, ErrCodeBridge, ""}
)

// writeHubError answers err from a hub call. Errors without a mapping are
// logged and answered with fallback.
func (s *Server) writeHubError(w http.ResponseWriter, err error, fallback hubResponse) {
	resp := fallback
	mapped := false
	for _, m := range hubErrors {
		if errors.Is(err, m.err) {
			resp, mapped = m.resp, true
			break
		}
	}

	if !mapped {
		if resp.status == http.StatusInternalServerError {
			s.logger.Error("hub call failed", "error", err)
		} else {
			s.logger.Warn("hub call failed", "status", resp.status, "error", err)
		}
	}

	message := resp.message
	if message == "" {
		message = err.Error()
	}
	writeError(w, resp.status, resp.code, message)
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{Status: status, Code: code, Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}
