package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trackgen/pkg/platform/sentinel"
)

const testKey = "tracking_number_lock:customer:test"

type InMemoryLockerSuite struct {
	suite.Suite
	ctx    context.Context
	now    time.Time
	locker *InMemoryLocker
}

func TestInMemoryLockerSuite(t *testing.T) {
	suite.Run(t, new(InMemoryLockerSuite))
}

func (s *InMemoryLockerSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2024, 11, 7, 4, 0, 0, 0, time.UTC)
	s.locker = NewInMemory(WithClock(func() time.Time { return s.now }))
}

func (s *InMemoryLockerSuite) TestAcquire() {
	s.Run("free key is acquired", func() {
		h, err := s.locker.Acquire(s.ctx, "k:free", 100*time.Millisecond)
		s.Require().NoError(err)
		s.Equal("k:free", h.Key)
		s.NotEmpty(h.Token)
		s.Equal(s.now.Add(100*time.Millisecond), h.ExpiresAt())
	})

	s.Run("held key is busy without waiting", func() {
		_, err := s.locker.Acquire(s.ctx, "k:held", time.Second)
		s.Require().NoError(err)

		_, err = s.locker.Acquire(s.ctx, "k:held", time.Second)
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("distinct keys do not contend", func() {
		_, err := s.locker.Acquire(s.ctx, "k:a", time.Second)
		s.Require().NoError(err)
		_, err = s.locker.Acquire(s.ctx, "k:b", time.Second)
		s.NoError(err)
	})

	s.Run("non-positive ttl rejected", func() {
		_, err := s.locker.Acquire(s.ctx, "k:ttl", 0)
		s.ErrorIs(err, ErrInvalidTTL)
	})

	s.Run("cancelled context fails closed", func() {
		ctx, cancel := context.WithCancel(s.ctx)
		cancel()
		_, err := s.locker.Acquire(ctx, "k:cancel", time.Second)
		s.ErrorIs(err, sentinel.ErrUnavailable)
		s.False(s.locker.Held("k:cancel"))
	})
}

func (s *InMemoryLockerSuite) TestSelfReleaseAfterTTL() {
	_, err := s.locker.Acquire(s.ctx, testKey, 100*time.Millisecond)
	s.Require().NoError(err)

	s.now = s.now.Add(99 * time.Millisecond)
	_, err = s.locker.Acquire(s.ctx, testKey, 100*time.Millisecond)
	s.ErrorIs(err, sentinel.ErrConflict)

	s.now = s.now.Add(time.Millisecond)
	_, err = s.locker.Acquire(s.ctx, testKey, 100*time.Millisecond)
	s.NoError(err, "lock expires without an explicit release")
}

func (s *InMemoryLockerSuite) TestRelease() {
	s.Run("release frees the key", func() {
		h, err := s.locker.Acquire(s.ctx, "r:free", time.Second)
		s.Require().NoError(err)
		s.Require().NoError(s.locker.Release(s.ctx, h))
		s.False(s.locker.Held("r:free"))
	})

	s.Run("stale handle does not release the new holder", func() {
		stale, err := s.locker.Acquire(s.ctx, "r:stale", 100*time.Millisecond)
		s.Require().NoError(err)

		s.now = s.now.Add(200 * time.Millisecond)
		fresh, err := s.locker.Acquire(s.ctx, "r:stale", time.Second)
		s.Require().NoError(err)

		s.NoError(s.locker.Release(s.ctx, stale), "expired release is a no-op")
		s.True(s.locker.Held("r:stale"))

		s.NoError(s.locker.Release(s.ctx, fresh))
		s.False(s.locker.Held("r:stale"))
	})

	s.Run("nil handle is a no-op", func() {
		s.NoError(s.locker.Release(s.ctx, nil))
	})
}

func TestInMemoryLockerRealClockExpiry(t *testing.T) {
	locker := NewInMemory()
	ctx := context.Background()

	_, err := locker.Acquire(ctx, testKey, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	time.Sleep(40 * time.Millisecond)
	if _, err := locker.Acquire(ctx, testKey, 20*time.Millisecond); err != nil {
		t.Fatalf("expected lock to self-expire, got %v", err)
	}
}

func TestInMemoryLockerMutualExclusion(t *testing.T) {
	locker := NewInMemory()
	ctx := context.Background()

	const goroutines = 32
	var (
		wg       sync.WaitGroup
		inside   atomic.Int32
		maxSeen  atomic.Int32
		acquired atomic.Int32
	)
	start := make(chan struct{})
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			h, err := locker.Acquire(ctx, testKey, time.Second)
			if err != nil {
				return
			}
			acquired.Add(1)
			n := inside.Add(1)
			for {
				m := maxSeen.Load()
				if n <= m || maxSeen.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			_ = locker.Release(ctx, h)
		}()
	}
	close(start)
	wg.Wait()

	if maxSeen.Load() != 1 {
		t.Fatalf("expected at most one holder at a time, saw %d", maxSeen.Load())
	}
	if acquired.Load() < 1 {
		t.Fatalf("expected at least one acquisition")
	}
}
