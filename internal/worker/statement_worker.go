// Package worker processes queued statement requests.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"posto/internal/amqp"
	"posto/internal/billing"
	"posto/internal/core"
	"posto/internal/statement"
)

// Store is the slice of the repository the worker needs.
type Store interface {
	ListBookings(ctx context.Context) ([]core.Booking, error)
	ListStatuses(ctx context.Context) ([]core.PeriodStatus, error)
}

// StatementWorker recomputes the settlement for a requested period from the
// store and hands it to the statement writer.
type StatementWorker struct {
	store  Store
	tariff billing.Tariff
	writer statement.Writer
}

func NewStatementWorker(store Store, tariff billing.Tariff, writer statement.Writer) *StatementWorker {
	return &StatementWorker{
		store:  store,
		tariff: tariff,
		writer: writer,
	}
}

// HandleStatementRequest processes a single statement request message.
func (w *StatementWorker) HandleStatementRequest(ctx context.Context, msg *amqp.StatementRequestMessage) error {
	period, err := msg.Period()
	if err != nil {
		return fmt.Errorf("decode period: %w", err)
	}

	slog.InfoContext(ctx, "Processing statement request", "period", period.String())

	bookings, err := w.store.ListBookings(ctx)
	if err != nil {
		return fmt.Errorf("list bookings: %w", err)
	}
	statuses, err := w.store.ListStatuses(ctx)
	if err != nil {
		return fmt.Errorf("list statuses: %w", err)
	}

	s := w.tariff.Settle(period, bookings, billing.PaidFlag(period, statuses))
	if err := w.writer.Write(ctx, s, bookings); err != nil {
		return fmt.Errorf("deliver statement: %w", err)
	}

	return nil
}
