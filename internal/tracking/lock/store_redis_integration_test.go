//go:build integration

package lock_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trackgen/internal/tracking/lock"
	"trackgen/internal/tracking/models"
	"trackgen/pkg/platform/sentinel"
	"trackgen/pkg/testutil/containers"
)

type RedisLockerSuite struct {
	suite.Suite
	redis  *containers.RedisContainer
	locker *lock.RedisLocker
}

func TestRedisLockerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLockerSuite))
}

func (s *RedisLockerSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.locker = lock.NewRedis(s.redis.Client)
}

func (s *RedisLockerSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushPrefix(context.Background(), models.LockKeyPrefix))
}

func (s *RedisLockerSuite) TestAcquireSetsTTLAtomically() {
	ctx := context.Background()
	h, err := s.locker.Acquire(ctx, "tracking_number_lock", 500*time.Millisecond)
	s.Require().NoError(err)

	ttl, err := s.redis.Client.PTTL(ctx, h.Key).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
	s.LessOrEqual(ttl, 500*time.Millisecond)

	token, err := s.redis.Client.Get(ctx, h.Key).Result()
	s.Require().NoError(err)
	s.Equal(h.Token, token)
}

func (s *RedisLockerSuite) TestHeldKeyIsBusy() {
	ctx := context.Background()
	_, err := s.locker.Acquire(ctx, "tracking_number_lock", time.Second)
	s.Require().NoError(err)

	_, err = s.locker.Acquire(ctx, "tracking_number_lock", time.Second)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *RedisLockerSuite) TestSelfReleaseAfterTTL() {
	ctx := context.Background()
	_, err := s.locker.Acquire(ctx, "tracking_number_lock", 100*time.Millisecond)
	s.Require().NoError(err)

	s.Eventually(func() bool {
		_, err := s.locker.Acquire(ctx, "tracking_number_lock", 100*time.Millisecond)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
}

func (s *RedisLockerSuite) TestStaleReleaseIsNoOp() {
	ctx := context.Background()
	stale, err := s.locker.Acquire(ctx, "tracking_number_lock", 50*time.Millisecond)
	s.Require().NoError(err)

	time.Sleep(120 * time.Millisecond)
	fresh, err := s.locker.Acquire(ctx, "tracking_number_lock", 5*time.Second)
	s.Require().NoError(err)

	s.NoError(s.locker.Release(ctx, stale))
	token, err := s.redis.Client.Get(ctx, "tracking_number_lock").Result()
	s.Require().NoError(err)
	s.Equal(fresh.Token, token)

	s.NoError(s.locker.Release(ctx, fresh))
	n, err := s.redis.Client.Exists(ctx, "tracking_number_lock").Result()
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *RedisLockerSuite) TestConcurrentAcquireHasOneWinner() {
	ctx := context.Background()
	const goroutines = 50
	var (
		wg       sync.WaitGroup
		winners  atomic.Int32
		conflict atomic.Int32
		other    atomic.Int32
	)
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.locker.Acquire(ctx, "tracking_number_lock", 5*time.Second)
			switch {
			case err == nil:
				winners.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflict.Add(1)
			default:
				other.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), winners.Load())
	s.Equal(int32(goroutines-1), conflict.Load())
	s.Zero(other.Load())

	keys, err := s.redis.KeysWithPrefix(ctx, models.LockKeyPrefix)
	s.Require().NoError(err)
	s.Equal([]string{"tracking_number_lock"}, keys)
}
