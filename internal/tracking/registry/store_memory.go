package registry

import (
	"context"
	"fmt"
	"sync"

	"trackgen/internal/tracking/models"
	"trackgen/pkg/platform/sentinel"
)

// InMemoryRegistry implements ports.Registry for a single process.
// Entries are lost on restart.
type InMemoryRegistry struct {
	mu    sync.RWMutex
	codes map[models.TrackingNumber]struct{}
}

// NewInMemory creates a registry pre-populated with seed codes.
func NewInMemory(seed ...models.TrackingNumber) *InMemoryRegistry {
	r := &InMemoryRegistry{codes: make(map[models.TrackingNumber]struct{}, len(seed))}
	for _, code := range seed {
		r.codes[code] = struct{}{}
	}
	return r
}

func (r *InMemoryRegistry) Exists(_ context.Context, code models.TrackingNumber) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.codes[code]
	return ok, nil
}

func (r *InMemoryRegistry) Record(ctx context.Context, code models.TrackingNumber) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("record tracking number %s: %w: %w", code, sentinel.ErrUnavailable, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.codes[code]; ok {
		return fmt.Errorf("record tracking number %s: %w", code, sentinel.ErrConflict)
	}
	r.codes[code] = struct{}{}
	return nil
}

// Len returns the number of recorded codes.
func (r *InMemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.codes)
}
