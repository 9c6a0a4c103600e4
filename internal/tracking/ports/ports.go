// Package ports defines the store and sink interfaces the tracking module depends on.
package ports

import (
	"context"
	"time"

	"trackgen/internal/tracking/models"
)

//go:generate mockgen -source=ports.go -destination=../service/mocks/mocks.go -package=mocks Locker,Registry,IssuancePublisher

// Locker is a distributed set-if-absent lock with TTL.
type Locker interface {
	// Acquire takes key for ttl without waiting. Returns sentinel.ErrConflict if
	// the key is held and sentinel.ErrUnavailable if the store cannot answer.
	Acquire(ctx context.Context, key string, ttl time.Duration) (*models.LockHandle, error)

	// Release drops the lock if it is still owned by handle. Releasing an
	// expired or re-acquired lock is a no-op.
	Release(ctx context.Context, handle *models.LockHandle) error
}

// Registry records issued tracking numbers.
type Registry interface {
	// Exists reports whether code was already recorded.
	Exists(ctx context.Context, code models.TrackingNumber) (bool, error)

	// Record atomically stores code. Returns sentinel.ErrConflict if it was
	// already recorded; concurrent calls for one code never both succeed.
	Record(ctx context.Context, code models.TrackingNumber) error
}

// IssuancePublisher emits an event for every accepted tracking number.
type IssuancePublisher interface {
	Publish(ctx context.Context, event models.IssuanceEvent) error
}
