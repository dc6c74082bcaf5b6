// Package api implements the HTTP REST API of the Caséta bridge service.
//
// This package provides:
//   - Config flow endpoints for adding bridges interactively
//   - Config entry listing, reload and removal
//   - Entity listing and command dispatch
//   - Health and metrics endpoints for monitoring
//
// # Architecture
//
// The API sits beside the MQTT command bus. Both paths end in the hub:
// flows create config entries, entries set up bridges, and entity
// commands are routed to the platform entity that owns the unique ID.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// # Graceful Degradation
//
// The server operates without MQTT or a database handle. Health reports
// only the dependencies it was given.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
