package hub

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/google/uuid"
)

// FlowResultType is the outcome of one flow step.
type FlowResultType string

const (
	// FlowForm asks the user for (more) input.
	FlowForm FlowResultType = "form"

	// FlowCreateEntry finishes the flow by creating a config entry.
	FlowCreateEntry FlowResultType = "create_entry"

	// FlowAbort finishes the flow without creating anything.
	FlowAbort FlowResultType = "abort"
)

// ReasonAlreadyConfigured aborts a flow whose entry would duplicate an
// existing one.
const ReasonAlreadyConfigured = "already_configured"

// FlowResult is returned by every flow step.
type FlowResult struct {
	Type   FlowResultType `json:"type"`
	FlowID string         `json:"flow_id,omitempty"`
	Domain string         `json:"domain,omitempty"`

	// Form results.
	StepID string            `json:"step_id,omitempty"`
	Fields []string          `json:"data_schema,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`

	// Abort results.
	Reason string `json:"reason,omitempty"`

	// Create entry results.
	Title   string            `json:"title,omitempty"`
	Data    map[string]string `json:"data,omitempty"`
	EntryID string            `json:"entry_id,omitempty"`

	// UniqueKey names the data key whose value identifies the entry within
	// its domain. Empty means no check.
	UniqueKey string `json:"-"`
}

// Form returns a form result for stepID.
func Form(stepID string, fields []string, errs map[string]string) FlowResult {
	return FlowResult{Type: FlowForm, StepID: stepID, Fields: fields, Errors: errs}
}

// Abort returns an abort result.
func Abort(reason string) FlowResult {
	return FlowResult{Type: FlowAbort, Reason: reason}
}

// CreateEntry returns a result that creates an entry with title and data.
func CreateEntry(title string, data map[string]string) FlowResult {
	return FlowResult{Type: FlowCreateEntry, Title: title, Data: maps.Clone(data)}
}

// UniqueBy marks a create entry result as unique on data[key]. The hub
// aborts with ReasonAlreadyConfigured instead of creating a second entry
// with the same value, even when two flows race.
func (r FlowResult) UniqueBy(key string) FlowResult {
	r.UniqueKey = key
	return r
}

// FlowHandler drives the configuration wizard of one integration. A new
// handler is created for each flow.
type FlowHandler interface {
	// StepUser handles the interactive step. A nil input asks for the
	// initial form.
	StepUser(ctx context.Context, input map[string]string) FlowResult

	// StepImport handles configuration imported from a static file.
	StepImport(ctx context.Context, data map[string]string) FlowResult
}

type flow struct {
	id      string
	domain  string
	source  Source
	handler FlowHandler
}

// StartFlow begins an interactive flow for domain and returns its first step.
func (h *Hub) StartFlow(ctx context.Context, domain string) (FlowResult, error) {
	f, err := h.newFlow(domain, SourceUser)
	if err != nil {
		return FlowResult{}, err
	}
	return h.finishStep(ctx, f, f.handler.StepUser(ctx, nil))
}

// ConfigureFlow submits input to a running flow.
func (h *Hub) ConfigureFlow(ctx context.Context, flowID string, input map[string]string) (FlowResult, error) {
	h.flowsMu.Lock()
	f, ok := h.flows[flowID]
	h.flowsMu.Unlock()
	if !ok {
		return FlowResult{}, fmt.Errorf("%w: %s", ErrFlowNotFound, flowID)
	}
	if input == nil {
		input = map[string]string{}
	}
	return h.finishStep(ctx, f, f.handler.StepUser(ctx, input))
}

// AbortFlow abandons a running flow.
func (h *Hub) AbortFlow(flowID string) error {
	h.flowsMu.Lock()
	defer h.flowsMu.Unlock()
	if _, ok := h.flows[flowID]; !ok {
		return fmt.Errorf("%w: %s", ErrFlowNotFound, flowID)
	}
	delete(h.flows, flowID)
	return nil
}

// StartImportFlow runs the import step of domain with data from static
// configuration.
func (h *Hub) StartImportFlow(ctx context.Context, domain string, data map[string]string) (FlowResult, error) {
	f, err := h.newFlow(domain, SourceImport)
	if err != nil {
		return FlowResult{}, err
	}
	return h.finishStep(ctx, f, f.handler.StepImport(ctx, data))
}

// Flows returns the IDs of the flows awaiting input.
func (h *Hub) Flows() []string {
	h.flowsMu.Lock()
	defer h.flowsMu.Unlock()
	ids := make([]string, 0, len(h.flows))
	for id := range h.flows {
		ids = append(ids, id)
	}
	return ids
}

func (h *Hub) newFlow(domain string, source Source) (*flow, error) {
	integration, err := h.integration(domain)
	if err != nil {
		return nil, err
	}

	f := &flow{
		id:      uuid.NewString(),
		domain:  domain,
		source:  source,
		handler: integration.NewFlow(),
	}
	h.flowsMu.Lock()
	h.flows[f.id] = f
	h.flowsMu.Unlock()
	return f, nil
}

// finishStep persists created entries and drops finished flows.
func (h *Hub) finishStep(ctx context.Context, f *flow, result FlowResult) (FlowResult, error) {
	result.FlowID = f.id
	result.Domain = f.domain

	switch result.Type {
	case FlowForm:
		return result, nil
	case FlowCreateEntry:
		h.dropFlow(f.id)
		entry, err := h.createEntry(ctx, f.domain, result.Title, f.source, result.Data, result.UniqueKey)
		if errors.Is(err, ErrAlreadyConfigured) {
			h.logger.Info("flow aborted, entry already configured", "flow_id", f.id, "domain", f.domain, "error", err)
			abort := Abort(ReasonAlreadyConfigured)
			abort.FlowID, abort.Domain = f.id, f.domain
			return abort, nil
		}
		if err != nil {
			return FlowResult{}, err
		}
		result.EntryID = entry.ID
		return result, nil
	default:
		h.dropFlow(f.id)
		return result, nil
	}
}

func (h *Hub) dropFlow(id string) {
	h.flowsMu.Lock()
	delete(h.flows, id)
	h.flowsMu.Unlock()
}
