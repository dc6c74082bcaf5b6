// Package leap is a client for the Lutron Extensible Application Protocol
// spoken by Caséta Smart Bridges.
//
// A Smartbridge holds one TLS connection to a bridge. Requests are JSON
// lines correlated with their responses by a per-request ClientTag; the
// bridge also pushes zone and occupancy status on the same connection,
// which the client applies to its device cache before calling the
// subscriber registered for that device.
//
// Usage:
//
//	bridge, err := leap.NewTLS(host, "caseta.key", "caseta.crt", "caseta-bridge.crt")
//	if err != nil {
//	    return err // wraps leap.ErrInvalidCertificate
//	}
//	if err := bridge.Connect(ctx); err != nil {
//	    return err
//	}
//	defer bridge.Close()
//
//	for _, d := range bridge.DevicesByDomain(leap.DomainLight) {
//	    bridge.AddSubscriber(d.ID, func() { ... })
//	}
//	err = bridge.SetValue(ctx, "2", 75)
//
// Pairing (issuing the client certificate) is done once with the vendor
// tooling and is not part of this package.
package leap
