package hub

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-caseta/internal/infrastructure/mqtt"
)

const defaultHealthInterval = 30 * time.Second

// HealthPublisher publishes health messages. Implemented by *mqtt.Client.
type HealthPublisher interface {
	JSONPublisher
	IsConnected() bool
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	// Protocol names the bridge in the topic and payload.
	Protocol string

	// Version is the service version.
	Version string

	// Interval is how often to publish. Default: 30 seconds.
	Interval time.Duration

	Publisher HealthPublisher
	Hub       *Hub
}

// HealthReporter periodically publishes the hub's entry and entity counts
// to graylogic/health/{protocol}.
type HealthReporter struct {
	protocol  string
	version   string
	startTime time.Time
	interval  time.Duration
	publisher HealthPublisher
	hub       *Hub

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewHealthReporter creates a reporter. Call Start to begin reporting.
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	return &HealthReporter{
		protocol:  cfg.Protocol,
		version:   cfg.Version,
		startTime: time.Now(),
		interval:  interval,
		publisher: cfg.Publisher,
		hub:       cfg.Hub,
		done:      make(chan struct{}),
	}
}

// Start begins periodic reporting until ctx ends or Stop is called.
func (r *HealthReporter) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.reportLoop(ctx)
}

// Stop ends reporting and publishes a final "stopping" status.
// Safe to call multiple times.
func (r *HealthReporter) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
		r.publish(HealthStopping, "") //nolint:errcheck // Best-effort during shutdown
	})
}

// PublishStarting publishes a "starting" status.
func (r *HealthReporter) PublishStarting() error {
	return r.publish(HealthStarting, "bridge starting")
}

// PublishNow publishes the current status immediately.
func (r *HealthReporter) PublishNow() error {
	status, reason := r.Status()
	return r.publish(status, reason)
}

// Status evaluates the current service status.
func (r *HealthReporter) Status() (HealthStatus, string) {
	if r.publisher == nil || !r.publisher.IsConnected() {
		return HealthDegraded, "MQTT disconnected"
	}
	if r.hub != nil {
		if counts, _ := r.hub.Counts(); counts.Failed > 0 {
			return HealthDegraded, "config entry setup failed"
		}
	}
	return HealthHealthy, ""
}

func (r *HealthReporter) reportLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.publishLogged()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-ticker.C:
			r.publishLogged()
		}
	}
}

func (r *HealthReporter) publishLogged() {
	if err := r.PublishNow(); err != nil && r.hub != nil {
		r.hub.logger.Warn("failed to publish health", "error", err)
	}
}

func (r *HealthReporter) publish(status HealthStatus, reason string) error {
	if r.publisher == nil {
		return nil
	}

	msg := HealthMessage{
		Bridge:        r.protocol,
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Version:       r.version,
		UptimeSeconds: int64(time.Since(r.startTime).Seconds()),
		Reason:        reason,
	}
	if r.hub != nil {
		msg.Entries, msg.Entities = r.hub.Counts()
	}
	return r.publisher.PublishJSON(mqtt.Topics{}.BridgeHealth(r.protocol), msg, true)
}
