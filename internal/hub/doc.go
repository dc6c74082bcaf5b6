// Package hub is the host framework that integrations plug into.
//
// It owns:
//   - Config entries: persisted integration instances (SQLite), each with a
//     runtime state (not_loaded, loaded, setup_error)
//   - Flows: step-wise configuration wizards that end by creating an entry
//     or aborting
//   - Platforms: per-kind entity factories an integration forwards entry
//     setup to, each run in its own goroutine
//   - Entities: the registry of everything platforms exposed, with the last
//     state written and fan-out to state sinks (MQTT, InfluxDB)
//
// Commands arrive over MQTT through CommandRouter and are acknowledged on
// graylogic/ack/{protocol}/{unique_id}. HealthReporter publishes entry and
// entity counts.
//
// Usage:
//
//	h := hub.New(hub.Options{Repo: hub.NewSQLiteRepository(db.DB), Logger: log})
//	h.RegisterIntegration(integration)
//	h.RegisterPlatform("lutron_caseta", "light", lightPlatform)
//	if err := h.Load(ctx); err != nil {
//	    return err
//	}
//	h.SetupEntries(ctx)
package hub
