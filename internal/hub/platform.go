package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Platform sets up the entities of one kind (light, switch, ...) for a
// config entry.
type Platform interface {
	SetupEntry(ctx context.Context, entry ConfigEntry, add AddEntitiesFunc) error
}

// SetupGroup tracks the platform setups scheduled for one entry. Each
// platform runs in its own goroutine; there is no ordering between them.
type SetupGroup struct {
	entryID   string
	platforms []string

	g    errgroup.Group
	mu   sync.Mutex
	errs []error
}

// Platforms returns the platform names that were scheduled.
func (s *SetupGroup) Platforms() []string {
	return append([]string(nil), s.platforms...)
}

// Wait blocks until every scheduled platform finished and returns their
// errors joined.
func (s *SetupGroup) Wait() error {
	s.g.Wait() //nolint:errcheck // Tasks report through s.errs
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.errs...)
}

func (s *SetupGroup) record(err error) {
	s.mu.Lock()
	s.errs = append(s.errs, err)
	s.mu.Unlock()
}

// ForwardEntrySetups schedules the setup of each named platform for entry
// and returns without waiting. The tasks outlive ctx cancellation but keep
// its values. Failures are logged here and also reported by Wait.
func (h *Hub) ForwardEntrySetups(ctx context.Context, entry ConfigEntry, platforms []string) *SetupGroup {
	group := &SetupGroup{
		entryID:   entry.ID,
		platforms: append([]string(nil), platforms...),
	}
	taskCtx := context.WithoutCancel(ctx)

	for _, name := range platforms {
		platform, ok := h.platform(entry.Domain, name)
		entry := entry.Clone()
		group.g.Go(func() error {
			var err error
			if !ok {
				err = fmt.Errorf("%w: %s.%s", ErrPlatformNotFound, entry.Domain, name)
			} else {
				err = platform.SetupEntry(taskCtx, entry, h.addEntitiesFunc(taskCtx, entry.ID))
			}
			if err != nil {
				err = fmt.Errorf("setting up %s for entry %s: %w", name, entry.ID, err)
				h.logger.Error("platform setup failed",
					"domain", entry.Domain,
					"platform", name,
					"entry_id", entry.ID,
					"error", err,
				)
				group.record(err)
			}
			return nil
		})
	}
	return group
}

// addEntitiesFunc registers entities for entryID, attaches subscribers and
// writes their initial state.
func (h *Hub) addEntitiesFunc(ctx context.Context, entryID string) AddEntitiesFunc {
	return func(entities ...Entity) error {
		var errs []error
		for _, e := range entities {
			if err := h.entities.add(entryID, e); err != nil {
				h.logger.Warn("skipping entity", "unique_id", e.UniqueID(), "error", err)
				errs = append(errs, err)
				continue
			}
			if sub, ok := e.(Subscriber); ok {
				sub.AddedToHub(ctx, func() { h.WriteState(e) })
			}
			h.WriteState(e)
		}
		return errors.Join(errs...)
	}
}
