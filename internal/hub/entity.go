package hub

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"
)

// Entity is one controllable or observable thing exposed by a platform.
type Entity interface {
	// UniqueID is stable across restarts and unique across the hub.
	UniqueID() string
	Name() string
	Platform() string
	State() map[string]any
	Attributes() map[string]any

	// ShouldPoll reports whether the hub has to poll for state. Entities
	// that push their own updates return false.
	ShouldPoll() bool
}

// Subscriber is implemented by entities that push state changes. The hub
// calls AddedToHub once after registering the entity; refresh writes the
// entity's current state.
type Subscriber interface {
	AddedToHub(ctx context.Context, refresh func())
}

// Commandable is implemented by entities that accept commands.
type Commandable interface {
	HandleCommand(ctx context.Context, cmd Command) error
}

// Command is an action addressed to one entity, such as "turn_on" with
// {"brightness": 50}.
type Command struct {
	Name   string
	Params map[string]any
}

// AddEntitiesFunc registers entities created by a platform.
type AddEntitiesFunc func(entities ...Entity) error

// EntitySnapshot is the externally visible view of a registered entity.
type EntitySnapshot struct {
	UniqueID   string         `json:"unique_id"`
	EntryID    string         `json:"entry_id"`
	Platform   string         `json:"platform"`
	Name       string         `json:"name"`
	State      map[string]any `json:"state"`
	Attributes map[string]any `json:"attributes,omitempty"`
	ShouldPoll bool           `json:"should_poll"`
	UpdatedAt  time.Time      `json:"updated_at,omitzero"`
}

type registeredEntity struct {
	entity    Entity
	entryID   string
	state     map[string]any
	updatedAt time.Time
}

// entityRegistry tracks entities by unique ID along with the last state
// written for each.
type entityRegistry struct {
	mu       sync.RWMutex
	entities map[string]*registeredEntity
}

func newEntityRegistry() *entityRegistry {
	return &entityRegistry{entities: make(map[string]*registeredEntity)}
}

func (r *entityRegistry) add(entryID string, e Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := e.UniqueID()
	if _, ok := r.entities[id]; ok {
		return fmt.Errorf("%w: %s", ErrEntityExists, id)
	}
	r.entities[id] = &registeredEntity{entity: e, entryID: entryID}
	return nil
}

func (r *entityRegistry) get(id string) (*registeredEntity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	re, ok := r.entities[id]
	return re, ok
}

// setState records the last written state. It reports false when the
// entity has been removed in the meantime.
func (r *entityRegistry) setState(id string, state map[string]any, at time.Time) (entryID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	re, ok := r.entities[id]
	if !ok {
		return "", false
	}
	re.state = maps.Clone(state)
	re.updatedAt = at
	return re.entryID, true
}

func (r *entityRegistry) removeEntry(entryID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, re := range r.entities {
		if re.entryID == entryID {
			delete(r.entities, id)
			removed++
		}
	}
	return removed
}

func (r *entityRegistry) snapshots(entryID string) []EntitySnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]EntitySnapshot, 0, len(r.entities))
	for id, re := range r.entities {
		if entryID != "" && re.entryID != entryID {
			continue
		}
		out = append(out, EntitySnapshot{
			UniqueID:   id,
			EntryID:    re.entryID,
			Platform:   re.entity.Platform(),
			Name:       re.entity.Name(),
			State:      maps.Clone(re.state),
			Attributes: re.entity.Attributes(),
			ShouldPoll: re.entity.ShouldPoll(),
			UpdatedAt:  re.updatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UniqueID < out[j].UniqueID })
	return out
}

func (r *entityRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}
