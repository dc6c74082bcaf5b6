package caseta

import "errors"

// Domain errors for the Caséta integration.
var (
	// ErrCannotConnect is returned when a bridge cannot be reached, the TLS
	// handshake fails or the bridge does not report itself connected.
	ErrCannotConnect = errors.New("caseta: cannot connect to bridge")

	// ErrInvalidConfig is returned when a bridge configuration is incomplete
	// or its certificate files cannot be used.
	ErrInvalidConfig = errors.New("caseta: invalid bridge configuration")

	// ErrAlreadyRegistered is returned when a handle is already registered
	// for a config entry.
	ErrAlreadyRegistered = errors.New("caseta: bridge already registered for entry")

	// ErrBridgeNotFound is returned when no handle is registered for a
	// config entry.
	ErrBridgeNotFound = errors.New("caseta: no bridge registered for entry")

	// ErrInvalidParameter is returned when a command parameter is missing or
	// out of range.
	ErrInvalidParameter = errors.New("caseta: invalid command parameter")
)
