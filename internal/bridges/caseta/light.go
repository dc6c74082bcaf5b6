package caseta

import (
	"context"

	"github.com/nerrad567/gray-logic-caseta/internal/hub"
	"github.com/nerrad567/gray-logic-caseta/internal/leap"
)

// Light is a dimmer.
type Light struct {
	*Device
}

func lightEntities(_ string, bridge Smartbridge) []hub.Entity {
	devices := bridge.DevicesByDomain(leap.DomainLight)
	out := make([]hub.Entity, 0, len(devices))
	for _, d := range devices {
		out = append(out, &Light{Device: NewDevice(d, bridge)})
	}
	return out
}

// Platform returns "light".
func (l *Light) Platform() string { return PlatformLight }

// State returns on and brightness (0-100).
func (l *Light) State() map[string]any {
	level := l.current().Level
	return map[string]any{
		"on":         level > 0,
		"brightness": level,
	}
}

// HandleCommand supports turn_on with an optional brightness, and turn_off.
func (l *Light) HandleCommand(ctx context.Context, cmd hub.Command) error {
	switch cmd.Name {
	case "turn_on":
		brightness, ok, err := intParam(cmd.Params, "brightness", 0, 100)
		if err != nil {
			return err
		}
		if ok {
			return l.bridge.SetValue(ctx, l.DeviceID(), brightness)
		}
		return l.bridge.TurnOn(ctx, l.DeviceID())
	case "turn_off":
		return l.bridge.TurnOff(ctx, l.DeviceID())
	default:
		return unknownCommand(cmd)
	}
}
