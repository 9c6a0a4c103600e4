package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerStartsClosed(t *testing.T) {
	b := New("issuance-publisher")
	assert.False(t, b.IsOpen())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "issuance-publisher", b.Name())
	assert.True(t, b.Allow())
}

func TestBreakerOpening(t *testing.T) {
	t.Run("opens on the threshold failure only", func(t *testing.T) {
		b := New("issuance-publisher", WithFailureThreshold(3))
		for i := 1; i < 3; i++ {
			fallback, change := b.RecordFailure()
			require.False(t, fallback, "failure %d", i)
			require.False(t, change.Opened, "failure %d", i)
		}
		fallback, change := b.RecordFailure()
		assert.True(t, fallback)
		assert.True(t, change.Opened)
		assert.True(t, b.IsOpen())
	})

	t.Run("further failures report no transition", func(t *testing.T) {
		b := New("issuance-publisher", WithFailureThreshold(1))
		b.RecordFailure()
		fallback, change := b.RecordFailure()
		assert.True(t, fallback)
		assert.False(t, change.Opened)
	})

	t.Run("a success clears the failure streak", func(t *testing.T) {
		b := New("issuance-publisher", WithFailureThreshold(3))
		b.RecordFailure()
		b.RecordFailure()
		b.RecordSuccess()
		b.RecordFailure()
		b.RecordFailure()
		assert.False(t, b.IsOpen())
		b.RecordFailure()
		assert.True(t, b.IsOpen())
	})
}

func TestBreakerClosing(t *testing.T) {
	t.Run("closes after consecutive successes", func(t *testing.T) {
		b := New("issuance-publisher", WithFailureThreshold(1), WithSuccessThreshold(2))
		b.RecordFailure()

		primary, change := b.RecordSuccess()
		assert.False(t, primary)
		assert.False(t, change.Closed)

		primary, change = b.RecordSuccess()
		assert.True(t, primary)
		assert.True(t, change.Closed)
		assert.Equal(t, StateClosed, b.State())
	})

	t.Run("a failure while open restarts the success streak", func(t *testing.T) {
		b := New("issuance-publisher", WithFailureThreshold(1), WithSuccessThreshold(2))
		b.RecordFailure()
		b.RecordSuccess()
		b.RecordFailure()
		b.RecordSuccess()
		assert.True(t, b.IsOpen())
		b.RecordSuccess()
		assert.False(t, b.IsOpen())
	})

	t.Run("reset closes immediately", func(t *testing.T) {
		b := New("issuance-publisher", WithFailureThreshold(1))
		b.RecordFailure()
		b.Reset()
		assert.Equal(t, StateClosed, b.State())
	})
}

func TestBreakerAllowProbesAfterCooldown(t *testing.T) {
	now := time.Date(2024, 11, 7, 4, 0, 0, 0, time.UTC)
	b := New("issuance-publisher",
		WithFailureThreshold(1),
		WithCooldown(10*time.Second),
		WithClock(func() time.Time { return now }),
	)

	b.RecordFailure()
	assert.False(t, b.Allow(), "open circuit rejects before cooldown")

	now = now.Add(11 * time.Second)
	assert.True(t, b.Allow(), "one probe after cooldown")
	assert.False(t, b.Allow(), "second probe waits for the next cooldown")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
}
