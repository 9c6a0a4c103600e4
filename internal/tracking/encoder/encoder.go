// Package encoder turns shipment attributes plus a tiebreaker into a tracking number.
//
// The raw input is the seven request fields followed by the tiebreaker in
// decimal, concatenated without separators in a fixed order. The SHA-256 digest
// of its UTF-8 bytes is rendered as hex and the first 16 characters, uppercased,
// form the code. Truncation keeps 64 bits of the digest.
package encoder

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"trackgen/internal/tracking/models"
)

// prefixBytes is the number of digest bytes rendered: two hex characters each.
const prefixBytes = models.TrackingNumberLength / 2

// Encode is deterministic and side-effect free.
func Encode(req models.GenerationRequest, tiebreaker int64) models.TrackingNumber {
	sum := sha256.Sum256([]byte(RawInput(req, tiebreaker)))
	return models.TrackingNumber(strings.ToUpper(hex.EncodeToString(sum[:prefixBytes])))
}

// RawInput is the exact string that gets hashed.
func RawInput(req models.GenerationRequest, tiebreaker int64) string {
	var b strings.Builder
	b.Grow(len(req.OriginCountryID) + len(req.DestinationCountryID) + len(req.Weight) +
		len(req.CreatedAt) + len(req.CustomerID) + len(req.CustomerName) + len(req.CustomerSlug) + 20)
	b.WriteString(req.OriginCountryID)
	b.WriteString(req.DestinationCountryID)
	b.WriteString(req.Weight)
	b.WriteString(req.CreatedAt)
	b.WriteString(req.CustomerID)
	b.WriteString(req.CustomerName)
	b.WriteString(req.CustomerSlug)
	b.WriteString(strconv.FormatInt(tiebreaker, 10))
	return b.String()
}
