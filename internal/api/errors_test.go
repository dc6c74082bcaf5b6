package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nerrad567/gray-logic-caseta/internal/hub"
	"github.com/nerrad567/gray-logic-caseta/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-caseta/internal/infrastructure/logging"
)

func TestWriteHubError(t *testing.T) {
	s := &Server{logger: logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")}
	bridgeDown := errors.New("turn_on 12345: bridge offline")

	tests := []struct {
		name        string
		err         error
		fallback    hubResponse
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{"wrapped flow not found", fmt.Errorf("%w: f-1", hub.ErrFlowNotFound), flowFailed, http.StatusNotFound, ErrCodeNotFound, "flow not found"},
		{"entry not found", hub.ErrEntryNotFound, entryFailed, http.StatusNotFound, ErrCodeNotFound, "config entry not found"},
		{"already configured echoes error", fmt.Errorf("%w: lutron_caseta host=h", hub.ErrAlreadyConfigured), flowFailed, http.StatusConflict, ErrCodeConflict, "hub: already configured: lutron_caseta host=h"},
		{"invalid command echoes error", fmt.Errorf("set_level x: %w", hub.ErrInvalidCommand), commandFailed, http.StatusBadRequest, ErrCodeValidation, "set_level x: hub: invalid command"},
		{"unmapped flow error", errors.New("disk full"), flowFailed, http.StatusInternalServerError, ErrCodeInternal, "config flow failed"},
		{"unmapped entry error", errors.New("disk full"), entryFailed, http.StatusInternalServerError, ErrCodeInternal, "config entry operation failed"},
		{"unmapped command error", bridgeDown, commandFailed, http.StatusBadGateway, ErrCodeBridge, bridgeDown.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.writeHubError(rec, tt.err, tt.fallback)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body Error
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if body.Status != tt.wantStatus || body.Code != tt.wantCode || body.Message != tt.wantMessage {
				t.Errorf("body = %+v, want {%d %s %q}", body, tt.wantStatus, tt.wantCode, tt.wantMessage)
			}
		})
	}
}
