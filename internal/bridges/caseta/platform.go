package caseta

import (
	"context"
	"fmt"
	"math"

	"github.com/nerrad567/gray-logic-caseta/internal/hub"
)

// Platform names.
const (
	PlatformLight        = "light"
	PlatformSwitch       = "switch"
	PlatformCover        = "cover"
	PlatformScene        = "scene"
	PlatformFan          = "fan"
	PlatformBinarySensor = "binary_sensor"
)

// PlatformRegistrar accepts platform implementations. Implemented by *hub.Hub.
type PlatformRegistrar interface {
	RegisterPlatform(domain, name string, p hub.Platform)
}

// RegisterPlatforms registers every platform of the integration. The
// platforms find their bridge in registry by config entry ID.
func RegisterPlatforms(r PlatformRegistrar, registry *BridgeRegistry) {
	for _, name := range Platforms {
		r.RegisterPlatform(Domain, name, NewPlatform(name, registry))
	}
}

// NewPlatform returns the platform called name. It panics on an unknown
// name.
func NewPlatform(name string, registry *BridgeRegistry) hub.Platform {
	build, ok := platformEntities[name]
	if !ok {
		panic(fmt.Sprintf("caseta: unknown platform %q", name))
	}
	return &platform{registry: registry, entities: build}
}

var platformEntities = map[string]func(entryID string, bridge Smartbridge) []hub.Entity{
	PlatformLight:        lightEntities,
	PlatformSwitch:       switchEntities,
	PlatformCover:        coverEntities,
	PlatformScene:        sceneEntities,
	PlatformFan:          fanEntities,
	PlatformBinarySensor: occupancyEntities,
}

type platform struct {
	registry *BridgeRegistry
	entities func(entryID string, bridge Smartbridge) []hub.Entity
}

// SetupEntry adds the entities of the entry's bridge.
func (p *platform) SetupEntry(_ context.Context, entry hub.ConfigEntry, add hub.AddEntitiesFunc) error {
	bridge, err := p.registry.Get(entry.ID)
	if err != nil {
		return err
	}
	entities := p.entities(entry.ID, bridge)
	if len(entities) == 0 {
		return nil
	}
	return add(entities...)
}

// unknownCommand reports a command the entity does not support.
func unknownCommand(cmd hub.Command) error {
	return fmt.Errorf("%w: %s", hub.ErrUnknownCommand, cmd.Name)
}

// intParam reads an optional numeric parameter in [lo, hi]. JSON numbers
// arrive as float64 and are rounded.
func intParam(params map[string]any, key string, lo, hi int) (value int, ok bool, err error) {
	raw, present := params[key]
	if !present || raw == nil {
		return 0, false, nil
	}

	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	default:
		return 0, false, fmt.Errorf("%w: %s: %w: not a number", hub.ErrInvalidCommand, key, ErrInvalidParameter)
	}

	if math.IsNaN(v) || v < float64(lo) || v > float64(hi) {
		return 0, false, fmt.Errorf("%w: %s: %w: %v outside %d..%d", hub.ErrInvalidCommand, key, ErrInvalidParameter, v, lo, hi)
	}
	return int(math.Round(v)), true, nil
}

// requiredIntParam is intParam for parameters that must be present.
func requiredIntParam(params map[string]any, key string, lo, hi int) (int, error) {
	v, ok, err := intParam(params, key, lo, hi)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s: %w: missing", hub.ErrInvalidCommand, key, ErrInvalidParameter)
	}
	return v, nil
}
