// Package influxdb records Caséta entity state history in InfluxDB.
//
// It wraps influxdb-client-go v2 with the non-blocking, batched write API.
// Every state written to the hub is mirrored as a device_state point tagged
// with unique_id, platform and entry_id:
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteDeviceState("12345", "light", entryID, map[string]any{"on": true, "brightness": 75})
//
// The package is optional: Connect returns ErrDisabled when influxdb.enabled
// is false and callers skip history. Batch failures arrive asynchronously
// through SetOnError.
package influxdb
