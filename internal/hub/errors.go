package hub

import "errors"

// Domain errors for the hub package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, hub.ErrEntryNotFound) {
//	    // handle not found case
//	}
var (
	// ErrEntryNotFound is returned when a config entry ID does not exist.
	ErrEntryNotFound = errors.New("hub: config entry not found")

	// ErrEntryExists is returned when creating an entry with an ID that already exists.
	ErrEntryExists = errors.New("hub: config entry already exists")

	// ErrAlreadyConfigured is returned when a flow creates an entry whose
	// unique data value another entry of the domain already holds.
	ErrAlreadyConfigured = errors.New("hub: already configured")

	// ErrIntegrationNotFound is returned when no integration is registered for a domain.
	ErrIntegrationNotFound = errors.New("hub: integration not found")

	// ErrIntegrationExists is returned when an integration domain is registered twice.
	ErrIntegrationExists = errors.New("hub: integration already registered")

	// ErrPlatformNotFound is returned when an entry forwards to an unregistered platform.
	ErrPlatformNotFound = errors.New("hub: platform not found")

	// ErrFlowNotFound is returned when a flow ID does not exist or has finished.
	ErrFlowNotFound = errors.New("hub: flow not found")

	// ErrEntityExists is returned when a platform adds a unique ID that is already registered.
	ErrEntityExists = errors.New("hub: entity already registered")

	// ErrEntityNotFound is returned when a command targets an unknown unique ID.
	ErrEntityNotFound = errors.New("hub: entity not found")

	// ErrNotCommandable is returned when a command targets an entity that accepts none.
	ErrNotCommandable = errors.New("hub: entity does not accept commands")

	// ErrUnknownCommand is returned by entities for commands they do not implement.
	ErrUnknownCommand = errors.New("hub: unknown command")

	// ErrInvalidCommand is returned when a command payload cannot be decoded
	// or its parameters are invalid.
	ErrInvalidCommand = errors.New("hub: invalid command")
)
