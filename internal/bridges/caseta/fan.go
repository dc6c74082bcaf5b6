package caseta

import (
	"context"
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-caseta/internal/hub"
	"github.com/nerrad567/gray-logic-caseta/internal/leap"
)

// Fan is a fan speed controller.
type Fan struct {
	*Device
}

// defaultFanSpeed is used by turn_on without a speed.
const defaultFanSpeed = leap.FanMedium

var fanPercentages = map[leap.FanSpeed]int{
	leap.FanOff:        0,
	leap.FanLow:        25,
	leap.FanMedium:     50,
	leap.FanMediumHigh: 75,
	leap.FanHigh:       100,
}

// fanSpeedNames maps command values to LEAP speeds.
var fanSpeedNames = map[string]leap.FanSpeed{
	"off":         leap.FanOff,
	"low":         leap.FanLow,
	"medium":      leap.FanMedium,
	"medium_high": leap.FanMediumHigh,
	"mediumhigh":  leap.FanMediumHigh,
	"high":        leap.FanHigh,
}

func fanEntities(_ string, bridge Smartbridge) []hub.Entity {
	devices := bridge.DevicesByDomain(leap.DomainFan)
	out := make([]hub.Entity, 0, len(devices))
	for _, d := range devices {
		out = append(out, &Fan{Device: NewDevice(d, bridge)})
	}
	return out
}

// Platform returns "fan".
func (f *Fan) Platform() string { return PlatformFan }

// State returns on, speed and percentage.
func (f *Fan) State() map[string]any {
	speed := f.current().FanSpeed
	if speed == "" {
		speed = leap.FanOff
	}
	return map[string]any{
		"on":         speed != leap.FanOff,
		"speed":      string(speed),
		"percentage": fanPercentages[speed],
	}
}

// HandleCommand supports turn_on with an optional speed, turn_off and
// set_speed.
func (f *Fan) HandleCommand(ctx context.Context, cmd hub.Command) error {
	switch cmd.Name {
	case "turn_on":
		speed := defaultFanSpeed
		if _, ok := cmd.Params["speed"]; ok {
			parsed, err := fanSpeedParam(cmd.Params)
			if err != nil {
				return err
			}
			speed = parsed
		}
		return f.bridge.SetFanSpeed(ctx, f.DeviceID(), speed)
	case "turn_off":
		return f.bridge.SetFanSpeed(ctx, f.DeviceID(), leap.FanOff)
	case "set_speed":
		speed, err := fanSpeedParam(cmd.Params)
		if err != nil {
			return err
		}
		return f.bridge.SetFanSpeed(ctx, f.DeviceID(), speed)
	default:
		return unknownCommand(cmd)
	}
}

func fanSpeedParam(params map[string]any) (leap.FanSpeed, error) {
	raw, _ := params["speed"].(string)
	speed, ok := fanSpeedNames[strings.ToLower(raw)]
	if !ok {
		return "", fmt.Errorf("%w: speed: %w: %q", hub.ErrInvalidCommand, ErrInvalidParameter, raw)
	}
	return speed, nil
}
