package hub_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-caseta/internal/hub"
	"github.com/nerrad567/gray-logic-caseta/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-caseta/internal/infrastructure/mqtt"
	_ "github.com/nerrad567/gray-logic-caseta/migrations"
)

const testDomain = "test_domain"

// newTestDB opens an in-memory database with the schema migrated.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(context.Background(), database.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	require.NoError(t, db.Migrate(context.Background()))
	return db.DB
}

func newTestHub(t *testing.T, sinks ...hub.StateSink) (*hub.Hub, *hub.SQLiteRepository) {
	t.Helper()
	repo := hub.NewSQLiteRepository(newTestDB(t))
	return hub.New(hub.Options{Repo: repo, Sinks: sinks}), repo
}

// storedEntry returns the persisted entry with id.
func storedEntry(t *testing.T, repo hub.Repository, id string) (hub.ConfigEntry, bool) {
	t.Helper()
	entries, err := repo.List(context.Background())
	require.NoError(t, err)
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return hub.ConfigEntry{}, false
}

// =============================================================================
// Integration
// =============================================================================

type fakeIntegration struct {
	domain   string
	setupErr error
	flow     func() hub.FlowHandler
	onSetup  func(ctx context.Context, entry hub.ConfigEntry) error

	mu       sync.Mutex
	setups   []string
	unloads  []string
	setupCtx context.Context
}

func newFakeIntegration() *fakeIntegration {
	return &fakeIntegration{domain: testDomain}
}

func (f *fakeIntegration) Domain() string { return f.domain }

func (f *fakeIntegration) SetupEntry(ctx context.Context, entry hub.ConfigEntry) error {
	f.mu.Lock()
	f.setups = append(f.setups, entry.ID)
	f.setupCtx = ctx
	f.mu.Unlock()
	if f.onSetup != nil {
		return f.onSetup(ctx, entry)
	}
	return f.setupErr
}

func (f *fakeIntegration) UnloadEntry(_ context.Context, entry hub.ConfigEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unloads = append(f.unloads, entry.ID)
	return nil
}

func (f *fakeIntegration) NewFlow() hub.FlowHandler {
	if f.flow != nil {
		return f.flow()
	}
	return &scriptedFlow{}
}

func (f *fakeIntegration) setupCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.setups)
}

func (f *fakeIntegration) unloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.unloads)
}

// scriptedFlow asks for a host, then creates an entry or aborts on
// "duplicate".
type scriptedFlow struct {
	steps     int
	uniqueKey string
}

func (s *scriptedFlow) StepUser(_ context.Context, input map[string]string) hub.FlowResult {
	s.steps++
	if input == nil {
		return hub.Form("user", []string{"host"}, nil)
	}
	switch input["host"] {
	case "":
		return hub.Form("user", []string{"host"}, map[string]string{"base": "missing_host"})
	case "duplicate":
		return hub.Abort("already_configured")
	default:
		return hub.CreateEntry("Bridge "+input["host"], input).UniqueBy(s.uniqueKey)
	}
}

func (s *scriptedFlow) StepImport(_ context.Context, data map[string]string) hub.FlowResult {
	return hub.CreateEntry("Imported "+data["host"], data)
}

// =============================================================================
// Platforms and entities
// =============================================================================

type fakePlatform struct {
	err      error
	entities func(entry hub.ConfigEntry) []hub.Entity
	block    chan struct{}

	mu      sync.Mutex
	entries []string
	ctxErr  error
}

func (p *fakePlatform) SetupEntry(ctx context.Context, entry hub.ConfigEntry, add hub.AddEntitiesFunc) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	p.entries = append(p.entries, entry.ID)
	p.ctxErr = ctx.Err()
	p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	if p.entities != nil {
		return add(p.entities(entry)...)
	}
	return nil
}

func (p *fakePlatform) calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.entries...)
}

type fakeEntity struct {
	id       string
	platform string

	mu       sync.Mutex
	state    map[string]any
	refresh  func()
	commands []hub.Command
	cmdErr   error
}

func newFakeEntity(id, platform string) *fakeEntity {
	return &fakeEntity{id: id, platform: platform, state: map[string]any{"on": false}}
}

func (e *fakeEntity) UniqueID() string { return e.id }
func (e *fakeEntity) Name() string     { return "Entity " + e.id }
func (e *fakeEntity) Platform() string { return e.platform }
func (e *fakeEntity) ShouldPoll() bool { return false }

func (e *fakeEntity) State() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]any, len(e.state))
	for k, v := range e.state {
		out[k] = v
	}
	return out
}

func (e *fakeEntity) Attributes() map[string]any {
	return map[string]any{"device_id": e.id}
}

func (e *fakeEntity) AddedToHub(_ context.Context, refresh func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refresh = refresh
}

func (e *fakeEntity) HandleCommand(_ context.Context, cmd hub.Command) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commands = append(e.commands, cmd)
	return e.cmdErr
}

// set changes the state and pushes it like a bridge callback would.
func (e *fakeEntity) set(key string, v any) {
	e.mu.Lock()
	e.state[key] = v
	refresh := e.refresh
	e.mu.Unlock()
	if refresh != nil {
		refresh()
	}
}

// passiveEntity accepts no commands and pushes nothing.
type passiveEntity struct{ id string }

func (e passiveEntity) UniqueID() string           { return e.id }
func (e passiveEntity) Name() string               { return e.id }
func (e passiveEntity) Platform() string           { return "scene" }
func (e passiveEntity) State() map[string]any      { return map[string]any{} }
func (e passiveEntity) Attributes() map[string]any { return nil }
func (e passiveEntity) ShouldPoll() bool           { return false }

// =============================================================================
// Sinks and MQTT
// =============================================================================

type recordingSink struct {
	mu      sync.Mutex
	updates []hub.StateUpdate
	err     error
}

func (s *recordingSink) WriteState(u hub.StateUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, u)
	return s.err
}

func (s *recordingSink) all() []hub.StateUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]hub.StateUpdate(nil), s.updates...)
}

type published struct {
	topic    string
	payload  []byte
	retained bool
}

type fakeMQTT struct {
	mu        sync.Mutex
	published []published
	handlers  map[string]mqtt.MessageHandler
	connected bool
	err       error
}

func newFakeMQTT() *fakeMQTT {
	return &fakeMQTT{handlers: make(map[string]mqtt.MessageHandler), connected: true}
}

func (m *fakeMQTT) PublishJSON(topic string, v any, retained bool) error {
	if m.err != nil {
		return m.err
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, published{topic: topic, payload: payload, retained: retained})
	return nil
}

func (m *fakeMQTT) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

func (m *fakeMQTT) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.handlers[topic]; !ok {
		return errors.New("not subscribed")
	}
	delete(m.handlers, topic)
	return nil
}

func (m *fakeMQTT) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *fakeMQTT) deliver(t *testing.T, subscription, topic string, payload []byte) error {
	t.Helper()
	m.mu.Lock()
	handler, ok := m.handlers[subscription]
	m.mu.Unlock()
	require.True(t, ok, "no handler for %s", subscription)
	return handler(topic, payload)
}

func (m *fakeMQTT) last(t *testing.T) published {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.published)
	return m.published[len(m.published)-1]
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 5*time.Second, 10*time.Millisecond)
}
