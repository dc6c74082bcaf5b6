package caseta

import (
	"context"

	"github.com/nerrad567/gray-logic-caseta/internal/leap"
)

// Device is the common base of every entity backed by a bridge device.
// State is read from the handle on demand; pushes from the bridge arrive
// through the subscriber registered in AddedToHub.
type Device struct {
	device leap.Device
	bridge Smartbridge
}

// NewDevice wraps d, reported by bridge.
func NewDevice(d leap.Device, bridge Smartbridge) *Device {
	return &Device{device: d, bridge: bridge}
}

// DeviceID returns the bridge's device ID, used for commands.
func (d *Device) DeviceID() string { return d.device.ID }

// Name returns the device name.
func (d *Device) Name() string { return d.device.Name }

// Serial returns the device serial number.
func (d *Device) Serial() leap.SerialNumber { return d.device.Serial }

// ZoneID returns the zone the device controls, or "".
func (d *Device) ZoneID() string { return d.device.Zone }

// UniqueID returns the serial as a string.
func (d *Device) UniqueID() string { return d.Serial().String() }

// Attributes returns the bridge identifiers of the device.
func (d *Device) Attributes() map[string]any {
	return map[string]any{
		"device_id": d.DeviceID(),
		"zone_id":   d.ZoneID(),
	}
}

// ShouldPoll is false: state arrives by push.
func (d *Device) ShouldPoll() bool { return false }

// AddedToHub subscribes refresh to state changes of the device.
func (d *Device) AddedToHub(_ context.Context, refresh func()) {
	d.bridge.AddSubscriber(d.DeviceID(), refresh)
}

// current returns the latest descriptor known to the bridge.
func (d *Device) current() leap.Device {
	if latest, ok := d.bridge.Device(d.device.ID); ok {
		return latest
	}
	return d.device
}
