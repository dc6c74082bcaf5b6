package hub

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger defines the logging interface used by the Hub.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Integration is a device integration that owns config entries of one domain.
type Integration interface {
	Domain() string

	// SetupEntry connects whatever the entry describes. An error leaves the
	// entry in EntrySetupError; the hub does not retry.
	SetupEntry(ctx context.Context, entry ConfigEntry) error

	// UnloadEntry releases the resources of a loaded entry.
	UnloadEntry(ctx context.Context, entry ConfigEntry) error

	// NewFlow returns a handler for a new configuration flow.
	NewFlow() FlowHandler
}

// Options configures a Hub.
type Options struct {
	// Repo persists config entries. Required.
	Repo Repository

	// Logger defaults to a no-op logger.
	Logger Logger

	// Sinks receive every entity state written.
	Sinks []StateSink
}

type entryRecord struct {
	entry ConfigEntry
	state EntryState
	err   string
}

// Hub hosts integrations: it persists their config entries, runs their
// configuration flows, forwards entry setup to platforms and tracks the
// resulting entities.
//
// All public methods are thread-safe.
type Hub struct {
	repo   Repository
	logger Logger
	sinks  []StateSink

	mu           sync.RWMutex
	integrations map[string]Integration
	platforms    map[string]map[string]Platform
	entries      map[string]*entryRecord

	flowsMu sync.Mutex
	flows   map[string]*flow

	entities *entityRegistry
}

// New creates a Hub.
func New(opts Options) *Hub {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Hub{
		repo:         opts.Repo,
		logger:       logger,
		sinks:        opts.Sinks,
		integrations: make(map[string]Integration),
		platforms:    make(map[string]map[string]Platform),
		entries:      make(map[string]*entryRecord),
		flows:        make(map[string]*flow),
		entities:     newEntityRegistry(),
	}
}

// RegisterIntegration adds an integration.
func (h *Hub) RegisterIntegration(i Integration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.integrations[i.Domain()]; ok {
		return fmt.Errorf("%w: %s", ErrIntegrationExists, i.Domain())
	}
	h.integrations[i.Domain()] = i
	return nil
}

// RegisterPlatform adds the named platform of an integration domain.
func (h *Hub) RegisterPlatform(domain, name string, p Platform) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.platforms[domain] == nil {
		h.platforms[domain] = make(map[string]Platform)
	}
	h.platforms[domain][name] = p
}

func (h *Hub) integration(domain string) (Integration, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	i, ok := h.integrations[domain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIntegrationNotFound, domain)
	}
	return i, nil
}

func (h *Hub) platform(domain, name string) (Platform, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.platforms[domain][name]
	return p, ok
}

// =============================================================================
// Config entries
// =============================================================================

// Load reads the persisted entries. It does not set them up.
func (h *Hub) Load(ctx context.Context) error {
	entries, err := h.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading config entries: %w", err)
	}

	h.mu.Lock()
	for _, e := range entries {
		if _, ok := h.entries[e.ID]; !ok {
			h.entries[e.ID] = &entryRecord{entry: e, state: EntryNotLoaded}
		}
	}
	h.mu.Unlock()

	h.logger.Info("config entries loaded", "count", len(entries))
	return nil
}

// SetupEntries sets up every entry that is not loaded yet. Failures are
// recorded per entry; the loaded count is returned.
func (h *Hub) SetupEntries(ctx context.Context) int {
	h.mu.RLock()
	ids := make([]string, 0, len(h.entries))
	for id, rec := range h.entries {
		if rec.state != EntryLoaded {
			ids = append(ids, id)
		}
	}
	h.mu.RUnlock()
	sort.Strings(ids)

	loaded := 0
	for _, id := range ids {
		if h.setupEntry(ctx, id) == nil {
			loaded++
		}
	}
	return loaded
}

// CreateEntry persists a new entry and sets it up. A setup failure does
// not remove the entry; it is reported through the entry state.
func (h *Hub) CreateEntry(ctx context.Context, domain, title string, source Source, data map[string]string) (ConfigEntry, error) {
	return h.createEntry(ctx, domain, title, source, data, "")
}

// createEntry is CreateEntry with an optional uniqueness check on
// data[uniqueKey]. The check and the reservation of the entry happen under
// one lock.
func (h *Hub) createEntry(ctx context.Context, domain, title string, source Source, data map[string]string, uniqueKey string) (ConfigEntry, error) {
	entry := ConfigEntry{
		ID:        uuid.NewString(),
		Domain:    domain,
		Title:     title,
		Source:    source,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}.Clone()

	h.mu.Lock()
	if value := entry.Data[uniqueKey]; uniqueKey != "" && value != "" {
		for _, rec := range h.entries {
			if rec.entry.Domain == domain && rec.entry.Data[uniqueKey] == value {
				h.mu.Unlock()
				return ConfigEntry{}, fmt.Errorf("%w: %s %s=%s", ErrAlreadyConfigured, domain, uniqueKey, value)
			}
		}
	}
	h.entries[entry.ID] = &entryRecord{entry: entry, state: EntryNotLoaded}
	h.mu.Unlock()

	if err := h.repo.Create(ctx, &entry); err != nil {
		h.mu.Lock()
		delete(h.entries, entry.ID)
		h.mu.Unlock()
		return ConfigEntry{}, fmt.Errorf("creating config entry: %w", err)
	}

	h.mu.Lock()
	if rec, ok := h.entries[entry.ID]; ok {
		rec.entry = entry.Clone()
	}
	h.mu.Unlock()

	h.logger.Info("config entry created", "entry_id", entry.ID, "domain", domain, "title", title, "source", source)
	h.setupEntry(ctx, entry.ID) //nolint:errcheck // Recorded in entry state
	return entry.Clone(), nil
}

// RemoveEntry unloads an entry and deletes it.
func (h *Hub) RemoveEntry(ctx context.Context, id string) error {
	if err := h.unloadEntry(ctx, id); err != nil {
		return err
	}
	if err := h.repo.Delete(ctx, id); err != nil && !errors.Is(err, ErrEntryNotFound) {
		return fmt.Errorf("deleting config entry: %w", err)
	}

	h.mu.Lock()
	delete(h.entries, id)
	h.mu.Unlock()

	h.logger.Info("config entry removed", "entry_id", id)
	return nil
}

// ReloadEntry unloads and sets up an entry again.
func (h *Hub) ReloadEntry(ctx context.Context, id string) (EntryStatus, error) {
	if err := h.unloadEntry(ctx, id); err != nil {
		return EntryStatus{}, err
	}
	h.setupEntry(ctx, id) //nolint:errcheck // Recorded in entry state
	return h.Entry(id)
}

// Entries returns the entries of domain (all entries when domain is
// empty), oldest first.
func (h *Hub) Entries(domain string) []ConfigEntry {
	statuses := h.EntryStatuses(domain)
	out := make([]ConfigEntry, len(statuses))
	for i, s := range statuses {
		out[i] = s.ConfigEntry
	}
	return out
}

// EntryStatuses is Entries with runtime state.
func (h *Hub) EntryStatuses(domain string) []EntryStatus {
	h.mu.RLock()
	out := make([]EntryStatus, 0, len(h.entries))
	for _, rec := range h.entries {
		if domain == "" || rec.entry.Domain == domain {
			out = append(out, rec.status())
		}
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Entry returns one entry with its runtime state.
func (h *Hub) Entry(id string) (EntryStatus, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rec, ok := h.entries[id]
	if !ok {
		return EntryStatus{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	return rec.status(), nil
}

func (r *entryRecord) status() EntryStatus {
	return EntryStatus{ConfigEntry: r.entry.Clone(), State: r.state, Error: r.err}
}

func (h *Hub) setupEntry(ctx context.Context, id string) error {
	h.mu.RLock()
	rec, ok := h.entries[id]
	var entry ConfigEntry
	if ok {
		entry = rec.entry.Clone()
	}
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	integration, err := h.integration(entry.Domain)
	if err != nil {
		h.setEntryState(id, EntryNoIntegration, err)
		h.logger.Warn("no integration for config entry", "entry_id", id, "domain", entry.Domain)
		return err
	}

	if err := integration.SetupEntry(ctx, entry); err != nil {
		h.setEntryState(id, EntrySetupError, err)
		h.logger.Error("config entry setup failed", "entry_id", id, "domain", entry.Domain, "error", err)
		return err
	}

	h.setEntryState(id, EntryLoaded, nil)
	h.logger.Info("config entry loaded", "entry_id", id, "domain", entry.Domain, "title", entry.Title)
	return nil
}

func (h *Hub) unloadEntry(ctx context.Context, id string) error {
	status, err := h.Entry(id)
	if err != nil {
		return err
	}
	if status.State != EntryLoaded {
		h.entities.removeEntry(id)
		return nil
	}

	integration, err := h.integration(status.Domain)
	if err != nil {
		return err
	}
	if err := integration.UnloadEntry(ctx, status.ConfigEntry); err != nil {
		return fmt.Errorf("unloading config entry %s: %w", id, err)
	}
	h.entities.removeEntry(id)
	h.setEntryState(id, EntryNotLoaded, nil)
	return nil
}

func (h *Hub) setEntryState(id string, state EntryState, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rec, ok := h.entries[id]; ok {
		rec.state = state
		rec.err = ""
		if err != nil {
			rec.err = err.Error()
		}
	}
}

// UnloadAll unloads every loaded entry, for shutdown.
func (h *Hub) UnloadAll(ctx context.Context) {
	for _, s := range h.EntryStatuses("") {
		if s.State != EntryLoaded {
			continue
		}
		if err := h.unloadEntry(ctx, s.ID); err != nil {
			h.logger.Warn("unloading config entry", "entry_id", s.ID, "error", err)
		}
	}
}

// =============================================================================
// Entities
// =============================================================================

// WriteState records e's current state and forwards it to every sink.
// Entities that are no longer registered are ignored.
func (h *Hub) WriteState(e Entity) {
	now := time.Now().UTC()
	state := e.State()

	entryID, ok := h.entities.setState(e.UniqueID(), state, now)
	if !ok {
		return
	}

	update := StateUpdate{
		UniqueID:   e.UniqueID(),
		EntryID:    entryID,
		Platform:   e.Platform(),
		Name:       e.Name(),
		State:      state,
		Attributes: e.Attributes(),
		Timestamp:  now,
	}
	for _, sink := range h.sinks {
		if err := sink.WriteState(update); err != nil {
			h.logger.Warn("state sink failed", "unique_id", update.UniqueID, "error", err)
		}
	}
}

// Entities returns every registered entity, ordered by unique ID.
func (h *Hub) Entities() []EntitySnapshot {
	return h.entities.snapshots("")
}

// EntitiesForEntry returns the entities created for one entry.
func (h *Hub) EntitiesForEntry(entryID string) []EntitySnapshot {
	return h.entities.snapshots(entryID)
}

// Entity returns one registered entity.
func (h *Hub) Entity(uniqueID string) (EntitySnapshot, error) {
	re, ok := h.entities.get(uniqueID)
	if !ok {
		return EntitySnapshot{}, fmt.Errorf("%w: %s", ErrEntityNotFound, uniqueID)
	}
	for _, s := range h.entities.snapshots(re.entryID) {
		if s.UniqueID == uniqueID {
			return s, nil
		}
	}
	return EntitySnapshot{}, fmt.Errorf("%w: %s", ErrEntityNotFound, uniqueID)
}

// RemoveEntities drops the entities of an entry and returns how many were removed.
func (h *Hub) RemoveEntities(entryID string) int {
	return h.entities.removeEntry(entryID)
}

// HandleCommand sends cmd to the entity with uniqueID.
func (h *Hub) HandleCommand(ctx context.Context, uniqueID string, cmd Command) error {
	re, ok := h.entities.get(uniqueID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, uniqueID)
	}
	c, ok := re.entity.(Commandable)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotCommandable, uniqueID)
	}
	if err := c.HandleCommand(ctx, cmd); err != nil {
		return fmt.Errorf("%s %s: %w", cmd.Name, uniqueID, err)
	}
	return nil
}

// Counts summarises entries and entities for health reporting.
func (h *Hub) Counts() (EntryCounts, int) {
	var counts EntryCounts
	h.mu.RLock()
	for _, rec := range h.entries {
		counts.Total++
		switch rec.state {
		case EntryLoaded:
			counts.Loaded++
		case EntrySetupError, EntryNoIntegration:
			counts.Failed++
		}
	}
	h.mu.RUnlock()
	return counts, h.entities.count()
}
