package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrackingNumberValid(t *testing.T) {
	assert.True(t, TrackingNumber("0A1B2C3D4E5F6789").Valid())
	assert.False(t, TrackingNumber("0a1b2c3d4e5f6789").Valid(), "lowercase")
	assert.False(t, TrackingNumber("0A1B2C3D4E5F678").Valid(), "short")
	assert.False(t, TrackingNumber("0A1B2C3D4E5F6789A").Valid(), "long")
	assert.False(t, TrackingNumber("0A1B2C3D-E5F6789").Valid(), "punctuation")
}

func TestLockHandleExpiresAt(t *testing.T) {
	at := time.Date(2024, 11, 7, 4, 0, 0, 0, time.UTC)
	h := LockHandle{AcquiredAt: at, TTL: 100 * time.Millisecond}
	assert.Equal(t, at.Add(100*time.Millisecond), h.ExpiresAt())
}

func TestLockKeys(t *testing.T) {
	req := GenerationRequest{CustomerID: "123e4567-e89b-12d3-a456-426614174000"}

	assert.Equal(t, "tracking_number_lock", GlobalLockKey()(req))
	assert.Equal(t, "tracking_number_lock:customer:123e4567-e89b-12d3-a456-426614174000", CustomerLockKey()(req))

	t.Run("customer key segment is sanitized", func(t *testing.T) {
		evil := GenerationRequest{CustomerID: "a:bucket:1"}
		assert.Equal(t, "tracking_number_lock:customer:a_bucket_1", CustomerLockKey()(evil))
	})

	t.Run("bucket key is stable and bounded", func(t *testing.T) {
		fn := BucketLockKey(8)
		first := fn(req)
		assert.Equal(t, first, fn(req))
		assert.Regexp(t, `^tracking_number_lock:bucket:[0-7]$`, first)
	})

	t.Run("non-positive bucket count collapses to one bucket", func(t *testing.T) {
		assert.Equal(t, "tracking_number_lock:bucket:0", BucketLockKey(0)(req))
	})
}

func TestRegistryKey(t *testing.T) {
	assert.Equal(t, "tracking_number:0A1B2C3D4E5F6789", RegistryKey("0A1B2C3D4E5F6789"))
}
