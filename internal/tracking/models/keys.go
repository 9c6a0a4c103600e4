package models

import (
	"fmt"
	"hash/fnv"
	"strings"
)

const (
	// LockKeyPrefix is the reference single-key critical section.
	LockKeyPrefix = "tracking_number_lock"
	// RegistryKeyPrefix namespaces issued codes in the shared store.
	RegistryKeyPrefix = "tracking_number:"
)

// SanitizeKeySegment escapes delimiter characters in key segments so a
// caller-controlled identifier cannot address a neighbouring lock.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// LockKeyFunc derives the lock key guarding a request's critical section.
type LockKeyFunc func(req GenerationRequest) string

// GlobalLockKey serializes every request behind one key.
func GlobalLockKey() LockKeyFunc {
	return func(GenerationRequest) string {
		return LockKeyPrefix
	}
}

// CustomerLockKey serializes requests per customer.
func CustomerLockKey() LockKeyFunc {
	return func(req GenerationRequest) string {
		return LockKeyPrefix + ":customer:" + SanitizeKeySegment(req.CustomerID)
	}
}

// BucketLockKey spreads customers over a fixed number of keys.
func BucketLockKey(buckets int) LockKeyFunc {
	if buckets <= 0 {
		buckets = 1
	}
	return func(req GenerationRequest) string {
		h := fnv.New32a()
		_, _ = h.Write([]byte(req.CustomerID))
		return fmt.Sprintf("%s:bucket:%d", LockKeyPrefix, h.Sum32()%uint32(buckets))
	}
}

// RegistryKey is the store key for an issued code.
func RegistryKey(code TrackingNumber) string {
	return RegistryKeyPrefix + string(code)
}
