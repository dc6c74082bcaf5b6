package caseta

import (
	"context"

	"github.com/nerrad567/gray-logic-caseta/internal/hub"
	"github.com/nerrad567/gray-logic-caseta/internal/leap"
)

// Switch is an on/off load.
type Switch struct {
	*Device
}

func switchEntities(_ string, bridge Smartbridge) []hub.Entity {
	devices := bridge.DevicesByDomain(leap.DomainSwitch)
	out := make([]hub.Entity, 0, len(devices))
	for _, d := range devices {
		out = append(out, &Switch{Device: NewDevice(d, bridge)})
	}
	return out
}

// Platform returns "switch".
func (s *Switch) Platform() string { return PlatformSwitch }

// State returns on.
func (s *Switch) State() map[string]any {
	return map[string]any{"on": s.current().Level > 0}
}

// HandleCommand supports turn_on and turn_off.
func (s *Switch) HandleCommand(ctx context.Context, cmd hub.Command) error {
	switch cmd.Name {
	case "turn_on":
		return s.bridge.TurnOn(ctx, s.DeviceID())
	case "turn_off":
		return s.bridge.TurnOff(ctx, s.DeviceID())
	default:
		return unknownCommand(cmd)
	}
}
