package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-caseta/internal/audit"
	"github.com/nerrad567/gray-logic-caseta/internal/hub"
)

// commandTimeout bounds a command sent through the API.
const commandTimeout = 10 * time.Second

// commandRequest is the body of POST /entities/{unique_id}/command.
type commandRequest struct {
	Command    string         `json:"command"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// handleListEntities returns registered entities with their last state.
//
// Query parameters:
//   - entry_id: only entities of this config entry
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	var entities []hub.EntitySnapshot
	if entryID := r.URL.Query().Get("entry_id"); entryID != "" {
		if len(entryID) > maxPathParamLen {
			writeBadRequest(w, "entry_id exceeds maximum length")
			return
		}
		entities = s.hub.EntitiesForEntry(entryID)
	} else {
		entities = s.hub.Entities()
	}
	writeJSON(w, http.StatusOK, map[string]any{"entities": entities, "count": len(entities)})
}

// handleGetEntity returns one entity.
func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	uniqueID := chi.URLParam(r, "unique_id")
	if uniqueID == "" || len(uniqueID) > maxPathParamLen {
		writeBadRequest(w, "invalid unique ID")
		return
	}

	entity, err := s.hub.Entity(uniqueID)
	if err != nil {
		writeNotFound(w, "entity not found")
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

// handleEntityCommand sends a command to an entity and waits for the
// bridge to accept it.
func (s *Server) handleEntityCommand(w http.ResponseWriter, r *http.Request) {
	uniqueID := chi.URLParam(r, "unique_id")
	if uniqueID == "" || len(uniqueID) > maxPathParamLen {
		writeBadRequest(w, "invalid unique ID")
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Command == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "command is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()

	if err := s.hub.HandleCommand(ctx, uniqueID, hub.Command{Name: req.Command, Params: req.Parameters}); err != nil {
		s.writeHubError(w, err, commandFailed)
		return
	}
	s.auditLog(audit.ActionCommand, audit.EntityEntity, uniqueID, map[string]any{
		"command":    req.Command,
		"parameters": req.Parameters,
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "accepted", "unique_id": uniqueID, "command": req.Command})
}
