package lock

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackgen/internal/tracking/models"
	"trackgen/pkg/platform/sentinel"
)

// unreachableClient points at a port nothing listens on.
func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisLockerUnreachableStoreFailsClosed(t *testing.T) {
	locker := NewRedis(unreachableClient(t))
	ctx := context.Background()

	h, err := locker.Acquire(ctx, "tracking_number_lock", time.Second)
	require.Error(t, err)
	assert.Nil(t, h)
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	assert.NotErrorIs(t, err, sentinel.ErrConflict)

	err = locker.Release(ctx, &models.LockHandle{Key: "tracking_number_lock", Token: "t"})
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestRedisLockerRejectsNonPositiveTTL(t *testing.T) {
	locker := NewRedis(unreachableClient(t))
	_, err := locker.Acquire(context.Background(), "tracking_number_lock", 0)
	assert.ErrorIs(t, err, ErrInvalidTTL)
}

func TestRedisLockerReleaseNilHandle(t *testing.T) {
	locker := NewRedis(unreachableClient(t))
	assert.NoError(t, locker.Release(context.Background(), nil))
}
