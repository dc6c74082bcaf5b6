package hub_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-caseta/internal/hub"
)

func TestHealthReporter_Status(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHub(t)
	integ := newFakeIntegration()
	require.NoError(t, h.RegisterIntegration(integ))
	client := newFakeMQTT()

	r := hub.NewHealthReporter(hub.HealthReporterConfig{Protocol: "caseta", Version: "test", Publisher: client, Hub: h})

	status, reason := r.Status()
	assert.Equal(t, hub.HealthHealthy, status)
	assert.Empty(t, reason)

	integ.setupErr = errors.New("offline")
	_, err := h.CreateEntry(ctx, testDomain, "Bridge", hub.SourceUser, nil)
	require.NoError(t, err)
	status, _ = r.Status()
	assert.Equal(t, hub.HealthDegraded, status)

	client.mu.Lock()
	client.connected = false
	client.mu.Unlock()
	status, reason = r.Status()
	assert.Equal(t, hub.HealthDegraded, status)
	assert.Equal(t, "MQTT disconnected", reason)
}

func TestHealthReporter_Publishes(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHub(t)
	require.NoError(t, h.RegisterIntegration(newFakeIntegration()))
	_, err := h.CreateEntry(ctx, testDomain, "Bridge", hub.SourceUser, nil)
	require.NoError(t, err)

	client := newFakeMQTT()
	r := hub.NewHealthReporter(hub.HealthReporterConfig{
		Protocol:  "caseta",
		Version:   "1.2.3",
		Interval:  time.Hour,
		Publisher: client,
		Hub:       h,
	})

	require.NoError(t, r.PublishStarting())
	p := client.last(t)
	assert.Equal(t, "graylogic/health/caseta", p.topic)
	assert.True(t, p.retained)

	r.Start(ctx)
	eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return len(client.published) >= 2
	})
	r.Stop()
	r.Stop()

	var msg hub.HealthMessage
	require.NoError(t, json.Unmarshal(client.last(t).payload, &msg))
	assert.Equal(t, hub.HealthStopping, msg.Status)
	assert.Equal(t, "caseta", msg.Bridge)
	assert.Equal(t, "1.2.3", msg.Version)
	assert.Equal(t, hub.EntryCounts{Total: 1, Loaded: 1}, msg.Entries)
}

func TestHealthReporter_NoPublisher(t *testing.T) {
	r := hub.NewHealthReporter(hub.HealthReporterConfig{Protocol: "caseta"})
	assert.NoError(t, r.PublishNow())
	status, _ := r.Status()
	assert.Equal(t, hub.HealthDegraded, status)
}
