package caseta

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-caseta/internal/leap"
)

// DefaultConnectTimeout bounds one connection attempt when none is configured.
const DefaultConnectTimeout = 10 * time.Second

// Smartbridge is the connection handle of one bridge.
// Implemented by *leap.Smartbridge.
type Smartbridge interface {
	Connect(ctx context.Context) error
	IsConnected() bool
	Close() error

	Device(id string) (leap.Device, bool)
	DevicesByDomain(domain string) []leap.Device
	Scenes() []leap.Scene
	OccupancyGroups() []leap.OccupancyGroup
	OccupancyGroup(id string) (leap.OccupancyGroup, bool)

	AddSubscriber(deviceID string, callback func())
	AddOccupancySubscriber(groupID string, callback func())

	SetValue(ctx context.Context, deviceID string, value int) error
	TurnOn(ctx context.Context, deviceID string) error
	TurnOff(ctx context.Context, deviceID string) error
	SetFanSpeed(ctx context.Context, deviceID string, speed leap.FanSpeed) error
	StopCover(ctx context.Context, deviceID string) error
	ActivateScene(ctx context.Context, sceneID string) error
}

// Factory builds an unconnected handle from a configuration.
type Factory func(cfg BridgeConfig) (Smartbridge, error)

// LEAPFactory returns a Factory creating TLS LEAP clients.
func LEAPFactory(opts ...leap.Option) Factory {
	return func(cfg BridgeConfig) (Smartbridge, error) {
		bridge, err := leap.NewTLS(cfg.Host, cfg.Keyfile, cfg.Certfile, cfg.CACerts, opts...)
		if err != nil {
			return nil, err
		}
		return bridge, nil
	}
}

// Connector opens bridge connections. It never retries.
type Connector struct {
	factory Factory
	timeout time.Duration
}

// NewConnector returns a connector using factory. A nil factory selects
// LEAPFactory; a non-positive timeout selects DefaultConnectTimeout.
func NewConnector(factory Factory, timeout time.Duration) *Connector {
	if factory == nil {
		factory = LEAPFactory()
	}
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	return &Connector{factory: factory, timeout: timeout}
}

// Connect builds a handle for cfg and connects it. Configuration problems
// wrap ErrInvalidConfig; everything else wraps ErrCannotConnect. The handle
// is closed on failure.
func (c *Connector) Connect(ctx context.Context, cfg BridgeConfig) (Smartbridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	bridge, err := c.factory(cfg)
	if err != nil {
		if errors.Is(err, leap.ErrInvalidCertificate) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrCannotConnect, cfg.Host, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := bridge.Connect(ctx); err != nil {
		bridge.Close() //nolint:errcheck // Already failing
		return nil, fmt.Errorf("%w: %s: %w", ErrCannotConnect, cfg.Host, err)
	}
	if !bridge.IsConnected() {
		bridge.Close() //nolint:errcheck // Already failing
		return nil, fmt.Errorf("%w: %s", ErrCannotConnect, cfg.Host)
	}
	return bridge, nil
}

// ValidationStatus is the outcome of Validate.
type ValidationStatus int

const (
	// ValidationOK means the bridge accepted the connection.
	ValidationOK ValidationStatus = iota

	// ValidationConfigError means the configuration itself is unusable.
	ValidationConfigError

	// ValidationConnectError means the bridge could not be reached.
	ValidationConnectError
)

// String returns the flow error code of the status.
func (s ValidationStatus) String() string {
	switch s {
	case ValidationOK:
		return "ok"
	case ValidationConfigError:
		return "invalid_config"
	case ValidationConnectError:
		return "cannot_connect"
	default:
		return fmt.Sprintf("ValidationStatus(%d)", int(s))
	}
}

// ValidationResult reports whether a configuration can connect.
type ValidationResult struct {
	Status ValidationStatus
	Err    error
}

// OK reports whether validation succeeded.
func (r ValidationResult) OK() bool { return r.Status == ValidationOK }

// Validate connects to the bridge described by cfg and closes the
// connection again, whatever the outcome.
func Validate(ctx context.Context, connector *Connector, cfg BridgeConfig) ValidationResult {
	bridge, err := connector.Connect(ctx, cfg)
	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ValidationResult{Status: ValidationConfigError, Err: err}
	case err != nil:
		return ValidationResult{Status: ValidationConnectError, Err: err}
	}

	bridge.Close() //nolint:errcheck // Only the connect result matters here
	return ValidationResult{Status: ValidationOK}
}
