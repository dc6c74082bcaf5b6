package caseta

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-caseta/internal/hub"
)

// Domain is the integration domain of config entries and flows.
const Domain = "lutron_caseta"

// Protocol names the integration in MQTT topics.
const Protocol = "caseta"

// Platforms are set up for every connected bridge.
var Platforms = []string{
	PlatformLight,
	PlatformSwitch,
	PlatformCover,
	PlatformScene,
	PlatformFan,
	PlatformBinarySensor,
}

// Logger defines the logging interface used by the integration.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Host is the part of the hub the integration drives. Implemented by *hub.Hub.
type Host interface {
	Entries(domain string) []hub.ConfigEntry
	ForwardEntrySetups(ctx context.Context, entry hub.ConfigEntry, platforms []string) *hub.SetupGroup
	RemoveEntities(entryID string) int
	StartImportFlow(ctx context.Context, domain string, data map[string]string) (hub.FlowResult, error)
}

// EntryLoader loads persisted config entries and sets them up.
// Implemented by *hub.Hub.
type EntryLoader interface {
	Load(ctx context.Context) error
	SetupEntries(ctx context.Context) int
}

// Options configures an Integration.
type Options struct {
	Host      Host
	Registry  *BridgeRegistry
	Connector *Connector

	// AwaitPlatforms makes SetupEntry wait for every platform and fail when
	// any of them fails.
	AwaitPlatforms bool

	Logger Logger
}

// Integration connects config entries of the lutron_caseta domain to their
// bridges. It implements hub.Integration.
type Integration struct {
	host           Host
	registry       *BridgeRegistry
	connector      *Connector
	awaitPlatforms bool
	logger         Logger

	// legacy holds static bridge configuration by host, for entries that
	// only persist the host. static keeps the configured order for import.
	legacyMu sync.RWMutex
	legacy   map[string]BridgeConfig
	static   []BridgeConfig

	// setups holds the platform setups still owned by each loaded entry.
	setupsMu sync.Mutex
	setups   map[string]*hub.SetupGroup
}

// New creates the integration.
func New(opts Options) *Integration {
	i := &Integration{
		host:           opts.Host,
		registry:       opts.Registry,
		connector:      opts.Connector,
		awaitPlatforms: opts.AwaitPlatforms,
		logger:         opts.Logger,
		legacy:         make(map[string]BridgeConfig),
		setups:         make(map[string]*hub.SetupGroup),
	}
	if i.registry == nil {
		i.registry = NewBridgeRegistry()
	}
	if i.connector == nil {
		i.connector = NewConnector(nil, 0)
	}
	if i.logger == nil {
		i.logger = noopLogger{}
	}
	return i
}

// Domain returns the integration domain.
func (i *Integration) Domain() string { return Domain }

// Registry returns the registry of live bridge handles.
func (i *Integration) Registry() *BridgeRegistry { return i.registry }

// Start brings up the bridges at boot. Static bridges are recorded before
// persisted entries are set up, so host-only entries resolve, and imported
// afterwards. It returns the number of entries loaded; only a failure to
// load persisted entries is returned as an error.
func (i *Integration) Start(ctx context.Context, loader EntryLoader, bridges []BridgeConfig) (int, error) {
	i.LoadStatic(bridges)

	if err := loader.Load(ctx); err != nil {
		return 0, err
	}
	loaded := loader.SetupEntries(ctx)

	if err := i.ImportStatic(ctx); err != nil {
		i.logger.Warn("static bridge import incomplete", "error", err)
	}
	return loaded, nil
}

// LoadStatic records statically configured bridges by host. A later call
// replaces the configuration of a host it lists again.
func (i *Integration) LoadStatic(bridges []BridgeConfig) {
	i.legacyMu.Lock()
	defer i.legacyMu.Unlock()

	for _, b := range bridges {
		if _, ok := i.legacy[b.Host]; !ok {
			i.static = append(i.static, b)
		} else {
			for n := range i.static {
				if i.static[n].Host == b.Host {
					i.static[n] = b
				}
			}
		}
		i.legacy[b.Host] = b
	}
}

// ImportStatic imports every recorded static bridge as a config entry.
// Bridges whose host is already configured are skipped by the import flow.
func (i *Integration) ImportStatic(ctx context.Context) error {
	i.legacyMu.RLock()
	bridges := append([]BridgeConfig(nil), i.static...)
	i.legacyMu.RUnlock()

	var errs []error
	for _, b := range bridges {
		result, err := i.host.StartImportFlow(ctx, Domain, b.Data())
		if err != nil {
			errs = append(errs, fmt.Errorf("importing bridge %s: %w", b.Host, err))
			continue
		}
		switch result.Type {
		case hub.FlowCreateEntry:
			i.logger.Info("imported Lutron Caseta bridge", "host", b.Host, "entry_id", result.EntryID)
		case hub.FlowAbort:
			i.logger.Debug("Lutron Caseta bridge not imported", "host", b.Host, "reason", result.Reason)
		}
	}
	return errors.Join(errs...)
}

// SetupEntry connects to the bridge of entry, registers the handle and
// forwards the entry to every platform.
func (i *Integration) SetupEntry(ctx context.Context, entry hub.ConfigEntry) error {
	cfg, err := i.bridgeConfig(entry)
	if err != nil {
		i.logger.Error("invalid Lutron Caseta bridge configuration", "entry_id", entry.ID, "error", err)
		return err
	}

	bridge, err := i.connector.Connect(ctx, cfg)
	if err != nil {
		i.logger.Error("Unable to connect to Lutron Caseta bridge", "host", cfg.Host, "error", err)
		return err
	}
	i.logger.Debug("connected to Lutron Caseta bridge", "host", cfg.Host)

	if err := i.registry.Register(entry.ID, bridge); err != nil {
		bridge.Close() //nolint:errcheck // Already failing
		return err
	}

	group := i.host.ForwardEntrySetups(ctx, entry, Platforms)
	if !i.awaitPlatforms {
		i.setupsMu.Lock()
		i.setups[entry.ID] = group
		i.setupsMu.Unlock()
		return nil
	}
	if err := group.Wait(); err != nil {
		i.release(entry.ID)
		return err
	}
	return nil
}

// UnloadEntry removes the entities of entry and closes its bridge. Platform
// setups still running for entry are waited for first, so none of them adds
// entities after the removal.
func (i *Integration) UnloadEntry(_ context.Context, entry hub.ConfigEntry) error {
	i.setupsMu.Lock()
	group := i.setups[entry.ID]
	delete(i.setups, entry.ID)
	i.setupsMu.Unlock()
	if group != nil {
		group.Wait() //nolint:errcheck // Failures were logged by the hub
	}

	if err := i.release(entry.ID); err != nil {
		return fmt.Errorf("closing bridge for entry %s: %w", entry.ID, err)
	}
	return nil
}

// NewFlow returns a handler for one config flow.
func (i *Integration) NewFlow() hub.FlowHandler {
	return NewFlowHandler(i.host, i.connector, i.logger)
}

func (i *Integration) release(entryID string) error {
	i.host.RemoveEntities(entryID)
	bridge, ok := i.registry.Unregister(entryID)
	if !ok {
		return nil
	}
	return bridge.Close()
}

// bridgeConfig resolves the configuration of entry, falling back to the
// static configuration for host-only entries.
func (i *Integration) bridgeConfig(entry hub.ConfigEntry) (BridgeConfig, error) {
	cfg := BridgeConfigFromData(entry.Data)
	if cfg.Host != "" && cfg.hostOnly() {
		i.legacyMu.RLock()
		legacy, ok := i.legacy[cfg.Host]
		i.legacyMu.RUnlock()
		if !ok {
			return BridgeConfig{}, fmt.Errorf("%w: no static configuration for host %s", ErrInvalidConfig, cfg.Host)
		}
		cfg = legacy
	}
	if err := cfg.Validate(); err != nil {
		return BridgeConfig{}, err
	}
	return cfg, nil
}
