package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementDeviceState is the measurement entity state is recorded under.
const MeasurementDeviceState = "device_state"

// WriteDeviceState records one entity state change.
//
// Only numeric and boolean fields are kept; booleans are stored as 0/1 so
// on/off history can be graphed next to levels. Points without a usable
// field are dropped. The write is batched and non-blocking.
func (c *Client) WriteDeviceState(uniqueID, platform, entryID string, state map[string]any) {
	c.WriteDeviceStateAt(uniqueID, platform, entryID, state, time.Now())
}

// WriteDeviceStateAt is WriteDeviceState with an explicit timestamp.
func (c *Client) WriteDeviceStateAt(uniqueID, platform, entryID string, state map[string]any, ts time.Time) {
	if !c.IsConnected() {
		return
	}

	point := DeviceStatePoint(uniqueID, platform, entryID, state, ts)
	if point == nil {
		return
	}
	c.writeAPI.WritePoint(point)
}

// DeviceStatePoint builds the device_state point for an entity state, or
// nil when the state carries no numeric field.
func DeviceStatePoint(uniqueID, platform, entryID string, state map[string]any, ts time.Time) *write.Point {
	fields := make(map[string]any, len(state))
	for k, v := range state {
		switch val := v.(type) {
		case bool:
			if val {
				fields[k] = 1
			} else {
				fields[k] = 0
			}
		case int:
			fields[k] = val
		case int64:
			fields[k] = val
		case float64:
			fields[k] = val
		}
	}
	if len(fields) == 0 {
		return nil
	}

	return write.NewPoint(
		MeasurementDeviceState,
		map[string]string{
			"unique_id": uniqueID,
			"platform":  platform,
			"entry_id":  entryID,
		},
		fields,
		ts,
	)
}
