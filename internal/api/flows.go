package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-caseta/internal/audit"
	"github.com/nerrad567/gray-logic-caseta/internal/hub"
)

// maxPathParamLen limits path parameter length.
const maxPathParamLen = 100

// startFlowRequest is the body of POST /flows.
type startFlowRequest struct {
	Domain string `json:"domain"`
}

// handleListFlows returns the IDs of flows awaiting input.
func (s *Server) handleListFlows(w http.ResponseWriter, _ *http.Request) {
	flows := s.hub.Flows()
	writeJSON(w, http.StatusOK, map[string]any{"flows": flows, "count": len(flows)})
}

// handleStartFlow starts a configuration flow and returns its first step.
func (s *Server) handleStartFlow(w http.ResponseWriter, r *http.Request) {
	var req startFlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Domain == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "domain is required")
		return
	}

	result, err := s.hub.StartFlow(r.Context(), req.Domain)
	if err != nil {
		s.writeHubError(w, err, flowFailed)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleConfigureFlow submits user input to a running flow.
//
// The body is a flat JSON object of strings, e.g.
//
//	{"host": "192.168.1.20", "keyfile": "...", "certfile": "...", "ca_certs": "..."}
func (s *Server) handleConfigureFlow(w http.ResponseWriter, r *http.Request) {
	flowID := chi.URLParam(r, "flow_id")
	if flowID == "" || len(flowID) > maxPathParamLen {
		writeBadRequest(w, "invalid flow ID")
		return
	}

	input := map[string]string{}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "body must be a JSON object of strings")
		return
	}

	result, err := s.hub.ConfigureFlow(r.Context(), flowID, input)
	if err != nil {
		s.writeHubError(w, err, flowFailed)
		return
	}
	if result.Type == hub.FlowCreateEntry {
		s.auditLog(audit.ActionCreate, audit.EntityConfigEntry, result.EntryID, map[string]any{
			"domain": result.Domain,
			"title":  result.Title,
		})
	}
	writeJSON(w, http.StatusOK, result)
}

// handleAbortFlow abandons a running flow.
func (s *Server) handleAbortFlow(w http.ResponseWriter, r *http.Request) {
	flowID := chi.URLParam(r, "flow_id")
	if flowID == "" || len(flowID) > maxPathParamLen {
		writeBadRequest(w, "invalid flow ID")
		return
	}

	if err := s.hub.AbortFlow(flowID); err != nil {
		s.writeHubError(w, err, flowFailed)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
