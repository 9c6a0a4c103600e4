package models

import (
	"errors"
	"time"
)

// GenerationRequest carries the shipment attributes a tracking number is derived from.
// Fields arrive already validated by the transport layer and are treated as opaque text.
type GenerationRequest struct {
	OriginCountryID      string
	DestinationCountryID string
	// Weight is the decimal text exactly as received, so identical requests hash identically.
	Weight       string
	CreatedAt    string
	CustomerID   string
	CustomerName string
	CustomerSlug string
}

// TrackingNumberLength is the fixed length of every issued code.
const TrackingNumberLength = 16

// TrackingNumber is a 16 character code over [A-Z0-9].
type TrackingNumber string

func (t TrackingNumber) String() string {
	return string(t)
}

// Valid reports whether t has the issued shape.
func (t TrackingNumber) Valid() bool {
	if len(t) != TrackingNumberLength {
		return false
	}
	for i := 0; i < len(t); i++ {
		c := t[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// IssuedTrackingNumber is what Generate hands back to the transport.
type IssuedTrackingNumber struct {
	TrackingNumber TrackingNumber
	// IssuedAt is captured after the critical section completes.
	IssuedAt time.Time
	Attempts int
	LockKey  string
}

// LockHandle proves ownership of a lock key until its TTL elapses or it is released.
type LockHandle struct {
	Key        string
	Token      string
	AcquiredAt time.Time
	TTL        time.Duration
}

// ExpiresAt is when the store drops the key on its own.
func (h LockHandle) ExpiresAt() time.Time {
	return h.AcquiredAt.Add(h.TTL)
}

// IssuanceEvent is published after a tracking number is accepted.
type IssuanceEvent struct {
	TrackingNumber       string    `json:"tracking_number"`
	CustomerID           string    `json:"customer_id"`
	CustomerSlug         string    `json:"customer_slug"`
	OriginCountryID      string    `json:"origin_country_id"`
	DestinationCountryID string    `json:"destination_country_id"`
	Attempts             int       `json:"attempts"`
	LockKey              string    `json:"lock_key"`
	RequestID            string    `json:"request_id,omitempty"`
	IssuedAt             time.Time `json:"issued_at"`
}

// Generation failures. The service wraps these in coded domain errors;
// errors.Is works against either form.
var (
	// ErrLockBusy: another caller holds the critical section. Safe to retry.
	ErrLockBusy = errors.New("tracking number generator busy")
	// ErrRegistryExhausted: every attempt collided with an already issued code.
	ErrRegistryExhausted = errors.New("unable to allocate unique tracking number")
	// ErrStoreUnavailable: the lock or registry store gave no trustworthy answer.
	ErrStoreUnavailable = errors.New("tracking number store unavailable")
)
