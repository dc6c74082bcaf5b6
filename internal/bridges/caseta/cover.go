package caseta

import (
	"context"

	"github.com/nerrad567/gray-logic-caseta/internal/hub"
	"github.com/nerrad567/gray-logic-caseta/internal/leap"
)

// Cover is a shade. Position 0 is closed, 100 fully open.
type Cover struct {
	*Device
}

func coverEntities(_ string, bridge Smartbridge) []hub.Entity {
	devices := bridge.DevicesByDomain(leap.DomainCover)
	out := make([]hub.Entity, 0, len(devices))
	for _, d := range devices {
		out = append(out, &Cover{Device: NewDevice(d, bridge)})
	}
	return out
}

// Platform returns "cover".
func (c *Cover) Platform() string { return PlatformCover }

// State returns position and closed.
func (c *Cover) State() map[string]any {
	position := c.current().Level
	return map[string]any{
		"position": position,
		"closed":   position < 1,
	}
}

// HandleCommand supports open, close, stop and set_position.
func (c *Cover) HandleCommand(ctx context.Context, cmd hub.Command) error {
	switch cmd.Name {
	case "open":
		return c.bridge.SetValue(ctx, c.DeviceID(), 100)
	case "close":
		return c.bridge.SetValue(ctx, c.DeviceID(), 0)
	case "stop":
		return c.bridge.StopCover(ctx, c.DeviceID())
	case "set_position":
		position, err := requiredIntParam(cmd.Params, "position", 0, 100)
		if err != nil {
			return err
		}
		return c.bridge.SetValue(ctx, c.DeviceID(), position)
	default:
		return unknownCommand(cmd)
	}
}
