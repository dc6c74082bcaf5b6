package leap

import "errors"

var (
	// ErrInvalidCertificate is returned by NewTLS when the client key pair or
	// the CA bundle cannot be read or parsed.
	ErrInvalidCertificate = errors.New("leap: invalid certificate")

	// ErrConnectionFailed is returned when dialling, the TLS handshake or the
	// initial device load fails.
	ErrConnectionFailed = errors.New("leap: connection failed")

	// ErrNotConnected is returned for requests on a bridge that is not connected.
	ErrNotConnected = errors.New("leap: not connected")

	// ErrClosed is returned to requests pending when the connection closes.
	ErrClosed = errors.New("leap: connection closed")

	// ErrRequestFailed is returned when the bridge answers with a non-2xx status.
	ErrRequestFailed = errors.New("leap: request failed")

	// ErrUnknownDevice is returned when a command names a device the bridge
	// did not report.
	ErrUnknownDevice = errors.New("leap: unknown device")

	// ErrNoZone is returned when a command targets a device without a zone.
	ErrNoZone = errors.New("leap: device has no zone")
)
