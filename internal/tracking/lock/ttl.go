package lock

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTTL is returned for non-positive lock durations; a lock without
// expiry could outlive a crashed holder.
var ErrInvalidTTL = errors.New("lock ttl must be positive")

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidTTL, ttl)
	}
	return nil
}
