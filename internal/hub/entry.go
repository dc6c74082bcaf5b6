package hub

import (
	"maps"
	"time"
)

// Source identifies how a config entry was created.
type Source string

const (
	// SourceUser is an entry created through the interactive flow.
	SourceUser Source = "user"

	// SourceImport is an entry imported from static configuration.
	SourceImport Source = "import"
)

// EntryState is the runtime state of a config entry.
type EntryState string

const (
	// EntryNotLoaded means the entry has not been set up, or was unloaded.
	EntryNotLoaded EntryState = "not_loaded"

	// EntryLoaded means the integration accepted the entry.
	EntryLoaded EntryState = "loaded"

	// EntrySetupError means the integration failed to set the entry up.
	EntrySetupError EntryState = "setup_error"

	// EntryNoIntegration means no integration is registered for the entry's domain.
	EntryNoIntegration EntryState = "no_integration"
)

// ConfigEntry is one persisted instance of an integration, such as one
// configured bridge.
type ConfigEntry struct {
	ID        string            `json:"entry_id"`
	Domain    string            `json:"domain"`
	Title     string            `json:"title"`
	Source    Source            `json:"source"`
	Data      map[string]string `json:"data"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Clone returns a copy whose Data can be modified independently.
func (e ConfigEntry) Clone() ConfigEntry {
	e.Data = maps.Clone(e.Data)
	if e.Data == nil {
		e.Data = map[string]string{}
	}
	return e
}

// EntryStatus is a config entry with its runtime state.
type EntryStatus struct {
	ConfigEntry
	State EntryState `json:"state"`
	Error string     `json:"error,omitempty"`
}
