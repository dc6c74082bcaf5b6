package leap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Device is one device reported by the bridge, with its last known zone state.
type Device struct {
	ID       string
	Name     string
	Serial   SerialNumber
	Zone     string
	Type     string
	Model    string
	Level    int
	FanSpeed FanSpeed
}

// SerialNumber is a device serial. The bridge reports it as a JSON number,
// some firmware as a string; both decode to the same value.
type SerialNumber string

// UnmarshalJSON accepts a number, a string or null.
func (s *SerialNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("decoding serial number: %w", err)
		}
		*s = SerialNumber(str)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("decoding serial number: %w", err)
		}
		*s = SerialNumber(n.String())
		return nil
	}
}

// MarshalJSON writes numeric serials as numbers, anything else as a string.
// A serial is numeric only in its canonical decimal form, so "0123" stays a
// string.
func (s SerialNumber) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseUint(string(s), 10, 64); err == nil && strconv.FormatUint(n, 10) == string(s) {
		return []byte(s), nil
	}
	return json.Marshal(string(s))
}

// String returns the serial in decimal (or the bridge's string form).
func (s SerialNumber) String() string {
	return string(s)
}

// FanSpeed is a LEAP fan speed level.
type FanSpeed string

// Fan speeds in increasing order.
const (
	FanOff        FanSpeed = "Off"
	FanLow        FanSpeed = "Low"
	FanMedium     FanSpeed = "Medium"
	FanMediumHigh FanSpeed = "MediumHigh"
	FanHigh       FanSpeed = "High"
)

// Scene is a programmed virtual button on the bridge.
type Scene struct {
	ID   string
	Name string
}

// OccupancyStatus is the state of an occupancy group.
type OccupancyStatus string

// Occupancy states.
const (
	Occupied   OccupancyStatus = "Occupied"
	Unoccupied OccupancyStatus = "Unoccupied"
	Unknown    OccupancyStatus = "Unknown"
)

// OccupancyGroup is a set of occupancy sensors covering one or more areas.
type OccupancyGroup struct {
	ID     string
	Name   string
	Status OccupancyStatus
}

// Device domains understood by DevicesByDomain.
const (
	DomainLight  = "light"
	DomainSwitch = "switch"
	DomainCover  = "cover"
	DomainFan    = "fan"
)

// deviceTypes maps a domain to the LEAP device types that belong to it.
var deviceTypes = map[string][]string{
	DomainLight: {
		"WallDimmer",
		"PlugInDimmer",
		"InLineDimmer",
		"SunnataDimmer",
		"TempInWallPaddleDimmer",
		"WallDimmerWithPreset",
		"Dimmed",
	},
	DomainSwitch: {
		"WallSwitch",
		"OutdoorPlugInSwitch",
		"PlugInSwitch",
		"InLineSwitch",
		"PowPakSwitch",
		"SunnataSwitch",
	},
	DomainCover: {
		"SerenaHoneycombShade",
		"SerenaRollerShade",
		"TriathlonHoneycombShade",
		"TriathlonRollerShade",
		"QsWirelessShade",
		"QsWirelessHorizontalSheerBlind",
		"Shade",
	},
	DomainFan: {
		"CasetaFanSpeedController",
		"MaestroFanSpeedController",
		"FanSpeed",
	},
}

// DomainOf returns the domain of a LEAP device type, or "" when the type
// is not controllable (bridges, remotes, sensors).
func DomainOf(deviceType string) string {
	for domain, types := range deviceTypes {
		for _, t := range types {
			if t == deviceType {
				return domain
			}
		}
	}
	return ""
}
