package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-caseta/internal/audit"
)

// handleListEntries returns config entries with their runtime state.
//
// Query parameters:
//   - domain: filter by integration domain
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	domain := r.URL.Query().Get("domain")
	if len(domain) > maxPathParamLen {
		writeBadRequest(w, "domain exceeds maximum length")
		return
	}

	entries := s.hub.EntryStatuses(domain)
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

// handleGetEntry returns a single config entry.
func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	entry, err := s.hub.Entry(id)
	if err != nil {
		s.writeHubError(w, err, entryFailed)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleDeleteEntry unloads and removes a config entry.
func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	if err := s.hub.RemoveEntry(r.Context(), id); err != nil {
		s.writeHubError(w, err, entryFailed)
		return
	}
	s.auditLog(audit.ActionDelete, audit.EntityConfigEntry, id, nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleReloadEntry unloads and sets up a config entry again. The
// response carries the resulting state; a failed setup is not an HTTP error.
func (s *Server) handleReloadEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	entry, err := s.hub.ReloadEntry(r.Context(), id)
	if err != nil {
		s.writeHubError(w, err, entryFailed)
		return
	}
	s.auditLog(audit.ActionReload, audit.EntityConfigEntry, id, map[string]any{"state": string(entry.State)})
	writeJSON(w, http.StatusOK, entry)
}

func entryID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxPathParamLen {
		writeBadRequest(w, "invalid entry ID")
		return "", false
	}
	return id, true
}
