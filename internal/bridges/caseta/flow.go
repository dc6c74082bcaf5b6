package caseta

import (
	"context"
	"sync"

	"github.com/nerrad567/gray-logic-caseta/internal/hub"
)

// Flow reasons and errors.
const (
	StepUser = "user"

	AbortAlreadyConfigured = hub.ReasonAlreadyConfigured
	AbortCannotConnect     = "cannot_connect"
	AbortFlowFinished      = "flow_finished"

	ErrorCannotConnect = "cannot_connect"
	ErrorInvalidConfig = "invalid_config"
)

// EntryTitle is the title of every entry created by the flow.
const EntryTitle = "Caséta bridge"

// EntryLister lists config entries. Implemented by *hub.Hub.
type EntryLister interface {
	Entries(domain string) []hub.ConfigEntry
}

// FlowHandler collects and validates a bridge configuration. Once it has
// created an entry or aborted it stays finished.
type FlowHandler struct {
	entries   EntryLister
	connector *Connector
	logger    Logger

	mu       sync.Mutex
	finished bool
}

// NewFlowHandler returns a handler for one flow.
func NewFlowHandler(entries EntryLister, connector *Connector, logger Logger) *FlowHandler {
	if logger == nil {
		logger = noopLogger{}
	}
	return &FlowHandler{entries: entries, connector: connector, logger: logger}
}

// StepUser shows the form when input is nil, otherwise validates input.
func (f *FlowHandler) StepUser(ctx context.Context, input map[string]string) hub.FlowResult {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.finished {
		return hub.Abort(AbortFlowFinished)
	}
	if input == nil {
		return hub.Form(StepUser, formFields, nil)
	}

	cfg := BridgeConfigFromData(input)
	if f.configured(cfg.Host) {
		return f.finish(hub.Abort(AbortAlreadyConfigured))
	}

	result := Validate(ctx, f.connector, cfg)
	switch result.Status {
	case ValidationOK:
		return f.finish(hub.CreateEntry(EntryTitle, cfg.Data()).UniqueBy(KeyHost))
	case ValidationConfigError:
		f.logger.Error("invalid Lutron Caseta bridge configuration", "host", cfg.Host, "error", result.Err)
		return hub.Form(StepUser, formFields, map[string]string{"base": ErrorInvalidConfig})
	default:
		f.logger.Warn("cannot connect to Lutron Caseta bridge", "host", cfg.Host, "error", result.Err)
		return hub.Form(StepUser, formFields, map[string]string{"base": ErrorCannotConnect})
	}
}

// StepImport creates an entry for a statically configured bridge.
func (f *FlowHandler) StepImport(ctx context.Context, data map[string]string) hub.FlowResult {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.finished {
		return hub.Abort(AbortFlowFinished)
	}

	cfg := BridgeConfigFromData(data)
	if f.configured(cfg.Host) {
		return f.finish(hub.Abort(AbortAlreadyConfigured))
	}
	if result := Validate(ctx, f.connector, cfg); !result.OK() {
		f.logger.Error("Unable to connect to Lutron Caseta bridge", "host", cfg.Host, "error", result.Err)
		return f.finish(hub.Abort(AbortCannotConnect))
	}
	return f.finish(hub.CreateEntry(EntryTitle, cfg.Data()).UniqueBy(KeyHost))
}

func (f *FlowHandler) configured(host string) bool {
	for _, entry := range f.entries.Entries(Domain) {
		if entry.Data[KeyHost] == host {
			return true
		}
	}
	return false
}

func (f *FlowHandler) finish(result hub.FlowResult) hub.FlowResult {
	f.finished = true
	return result
}
