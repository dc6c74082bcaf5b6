package caseta

import (
	"fmt"
	"sort"
	"sync"
)

// BridgeRegistry maps config entry IDs to live bridge handles. It is
// created by the host process and shared by the integration and its
// platforms.
type BridgeRegistry struct {
	mu      sync.RWMutex
	bridges map[string]Smartbridge
}

// NewBridgeRegistry returns an empty registry.
func NewBridgeRegistry() *BridgeRegistry {
	return &BridgeRegistry{bridges: make(map[string]Smartbridge)}
}

// Register stores bridge under entryID. At most one handle is kept per entry.
func (r *BridgeRegistry) Register(entryID string, bridge Smartbridge) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bridges[entryID]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, entryID)
	}
	r.bridges[entryID] = bridge
	return nil
}

// Get returns the handle of entryID.
func (r *BridgeRegistry) Get(entryID string) (Smartbridge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bridge, ok := r.bridges[entryID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBridgeNotFound, entryID)
	}
	return bridge, nil
}

// Unregister removes and returns the handle of entryID.
func (r *BridgeRegistry) Unregister(entryID string) (Smartbridge, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bridge, ok := r.bridges[entryID]
	delete(r.bridges, entryID)
	return bridge, ok
}

// EntryIDs returns the registered entry IDs, sorted.
func (r *BridgeRegistry) EntryIDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.bridges))
	for id := range r.bridges {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered handles.
func (r *BridgeRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bridges)
}
