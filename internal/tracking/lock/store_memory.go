package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"trackgen/internal/tracking/models"
	"trackgen/pkg/platform/sentinel"
)

// InMemoryLocker implements ports.Locker for a single process.
// Expired entries are treated as absent, matching Redis key expiry.
type InMemoryLocker struct {
	mu    sync.Mutex
	locks map[string]memoryLock
	now   func() time.Time
}

type memoryLock struct {
	token     string
	expiresAt time.Time
}

// InMemoryOption configures an InMemoryLocker.
type InMemoryOption func(*InMemoryLocker)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) InMemoryOption {
	return func(l *InMemoryLocker) {
		if now != nil {
			l.now = now
		}
	}
}

// NewInMemory creates an empty in-memory locker.
func NewInMemory(opts ...InMemoryOption) *InMemoryLocker {
	l := &InMemoryLocker{
		locks: make(map[string]memoryLock),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *InMemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (*models.LockHandle, error) {
	if err := validateTTL(ttl); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if held, ok := l.locks[key]; ok && now.Before(held.expiresAt) {
		return nil, fmt.Errorf("acquire lock %s: %w", key, sentinel.ErrConflict)
	}
	token := uuid.NewString()
	l.locks[key] = memoryLock{token: token, expiresAt: now.Add(ttl)}
	return &models.LockHandle{Key: key, Token: token, AcquiredAt: now, TTL: ttl}, nil
}

func (l *InMemoryLocker) Release(_ context.Context, handle *models.LockHandle) error {
	if handle == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	held, ok := l.locks[handle.Key]
	if !ok || held.token != handle.Token {
		return nil
	}
	delete(l.locks, handle.Key)
	return nil
}

// Held reports whether key is currently locked.
func (l *InMemoryLocker) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	held, ok := l.locks[key]
	return ok && l.now().Before(held.expiresAt)
}
