package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	MQTT          MQTTMetrics     `json:"mqtt"`
	Bridges       BridgeMetrics   `json:"bridges"`
	Entries       EntryMetrics    `json:"entries"`
	Entities      EntityMetrics   `json:"entities"`
	Database      DatabaseMetrics `json:"database"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

// BridgeMetrics counts connected Caséta bridges.
type BridgeMetrics struct {
	Connected int `json:"connected"`
}

// EntryMetrics summarises config entries.
type EntryMetrics struct {
	Total    int            `json:"total"`
	Loaded   int            `json:"loaded"`
	Failed   int            `json:"failed"`
	ByDomain map[string]int `json:"by_domain"`
}

// EntityMetrics summarises registered entities.
type EntityMetrics struct {
	Total      int            `json:"total"`
	ByPlatform map[string]int `json:"by_platform"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns comprehensive system metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
	}

	if s.mqtt != nil {
		metrics.MQTT = MQTTMetrics{Connected: s.mqtt.IsConnected()}
	}
	if s.bridges != nil {
		metrics.Bridges = BridgeMetrics{Connected: s.bridges.Len()}
	}

	counts, _ := s.hub.Counts()
	metrics.Entries = EntryMetrics{
		Total:    counts.Total,
		Loaded:   counts.Loaded,
		Failed:   counts.Failed,
		ByDomain: make(map[string]int),
	}
	for _, e := range s.hub.Entries("") {
		metrics.Entries.ByDomain[e.Domain]++
	}

	entities := s.hub.Entities()
	metrics.Entities = EntityMetrics{
		Total:      len(entities),
		ByPlatform: make(map[string]int),
	}
	for _, e := range entities {
		metrics.Entities.ByPlatform[e.Platform]++
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
