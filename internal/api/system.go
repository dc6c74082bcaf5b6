package api

import (
	"context"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-caseta/internal/hub"
)

// healthCheckTimeout bounds the database probe in the health endpoint.
const healthCheckTimeout = 2 * time.Second

// Health status values.
const (
	healthOK       = "ok"
	healthDegraded = "degraded"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string          `json:"status"`
	Version  string          `json:"version"`
	MQTT     *bool           `json:"mqtt_connected,omitempty"`
	Database string          `json:"database,omitempty"`
	Entries  hub.EntryCounts `json:"entries"`
	Entities int             `json:"entities"`
}

// handleHealth reports service health. It always answers 200 so that
// probes can read the body; a failing dependency or entry marks the
// service degraded.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	entries, entities := s.hub.Counts()
	resp := HealthResponse{
		Status:   healthOK,
		Version:  s.version,
		Entries:  entries,
		Entities: entities,
	}

	if s.mqtt != nil {
		connected := s.mqtt.IsConnected()
		resp.MQTT = &connected
		if !connected {
			resp.Status = healthDegraded
		}
	}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		resp.Database = healthOK
		if err := s.db.HealthCheck(ctx); err != nil {
			s.logger.Warn("database health check failed", "error", err)
			resp.Database = "error"
			resp.Status = healthDegraded
		}
	}

	if entries.Failed > 0 {
		resp.Status = healthDegraded
	}

	writeJSON(w, http.StatusOK, resp)
}
