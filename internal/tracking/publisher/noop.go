package publisher

import (
	"context"

	"trackgen/internal/tracking/models"
)

// Noop discards events; used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, models.IssuanceEvent) error {
	return nil
}
