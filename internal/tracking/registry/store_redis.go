package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"trackgen/internal/tracking/models"
	"trackgen/pkg/platform/sentinel"
)

// existsMarker is the payload of a registry entry; only key existence matters.
const existsMarker = "exists"

// RedisRegistry implements ports.Registry on the same store as the lock.
type RedisRegistry struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// RedisOption configures a RedisRegistry.
type RedisOption func(*RedisRegistry)

// WithEntryTTL bounds how long issued codes are remembered. Zero keeps them forever.
func WithEntryTTL(ttl time.Duration) RedisOption {
	return func(r *RedisRegistry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// NewRedis constructs a Redis-backed registry. Client lifecycle is managed externally.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *RedisRegistry {
	r := &RedisRegistry{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *RedisRegistry) Exists(ctx context.Context, code models.TrackingNumber) (bool, error) {
	n, err := r.client.Exists(ctx, models.RegistryKey(code)).Result()
	if err != nil {
		return false, fmt.Errorf("check tracking number %s: %w: %w", code, sentinel.ErrUnavailable, err)
	}
	return n > 0, nil
}

// Record uses SET NX so two concurrent records of one code cannot both win.
func (r *RedisRegistry) Record(ctx context.Context, code models.TrackingNumber) error {
	ok, err := r.client.SetNX(ctx, models.RegistryKey(code), existsMarker, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("record tracking number %s: %w: %w", code, sentinel.ErrUnavailable, err)
	}
	if !ok {
		return fmt.Errorf("record tracking number %s: %w", code, sentinel.ErrConflict)
	}
	return nil
}
