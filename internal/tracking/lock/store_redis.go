package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"trackgen/internal/tracking/models"
	"trackgen/pkg/platform/sentinel"
)

// releaseScript deletes the key only while it still holds our token, so a
// release that arrives after expiry cannot drop a lock someone else now owns.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements ports.Locker with SET NX PX.
type RedisLocker struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedis constructs a Redis-backed locker. Client lifecycle is managed externally.
func NewRedis(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client, now: time.Now}
}

// Acquire sets key to a fresh token with ttl attached atomically.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (*models.LockHandle, error) {
	if err := validateTTL(ttl); err != nil {
		return nil, err
	}
	token := uuid.NewString()
	acquiredAt := l.now()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	if !ok {
		return nil, fmt.Errorf("acquire lock %s: %w", key, sentinel.ErrConflict)
	}
	return &models.LockHandle{Key: key, Token: token, AcquiredAt: acquiredAt, TTL: ttl}, nil
}

// Release deletes the key if handle still owns it.
func (l *RedisLocker) Release(ctx context.Context, handle *models.LockHandle) error {
	if handle == nil {
		return nil
	}
	if _, err := releaseScript.Run(ctx, l.client, []string{handle.Key}, handle.Token).Int(); err != nil {
		return fmt.Errorf("release lock %s: %w: %w", handle.Key, sentinel.ErrUnavailable, err)
	}
	return nil
}
