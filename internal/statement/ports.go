// Package statement renders period statements and delivers them to a
// configured backend.
package statement

import (
	"context"

	"posto/internal/core"
)

// Writer delivers the statement for one settled period. Delivery must be
// safe to repeat: the queue feeding it is at-least-once.
type Writer interface {
	Write(ctx context.Context, s core.Settlement, bookings []core.Booking) error
}
