// Package caseta integrates Lutron Caséta Smart Bridges with the hub.
//
// Each bridge is one config entry of the lutron_caseta domain. Entries are
// created by the interactive config flow (FlowHandler) or imported from the
// static caseta.bridges configuration. Setting up an entry connects to the
// bridge over TLS (Connector), stores the handle in the BridgeRegistry under
// the entry ID and forwards the entry to the light, switch, cover, scene,
// fan and binary_sensor platforms, which create one entity per device.
//
// Entities never poll. Device entities embed Device, which subscribes the
// hub's refresh callback to push updates from the bridge.
//
// Usage:
//
//	registry := caseta.NewBridgeRegistry()
//	integration := caseta.New(caseta.Options{
//	    Host:      h,
//	    Registry:  registry,
//	    Connector: caseta.NewConnector(nil, 10*time.Second),
//	})
//	h.RegisterIntegration(integration)
//	caseta.RegisterPlatforms(h, registry)
package caseta
