package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type (
	Money struct {
		Cents int64
	}

	// Booking is one party's exclusive claim on one calendar date. At most
	// one booking exists per date across the whole store. Bookings are
	// never mutated: they are created and deleted, nothing else.
	Booking struct {
		ID        string
		Date      Date
		Occupant  string
		CreatedAt time.Time
	}

	// Period is a derived half-open interval [Start, End), exactly one
	// calendar month long. Periods are generated, never persisted.
	Period struct {
		Start Date
		End   Date
	}

	// PeriodStatus is the persisted paid flag for one period, keyed by the
	// period boundaries.
	PeriodStatus struct {
		Start Date
		End   Date
		Paid  bool
	}

	// Settlement is the computed cost split for one period: how many days
	// the rate-paying party used the spot, what they owe (capped at the
	// monthly rent) and what the other party covers.
	Settlement struct {
		Period    Period
		UsedDays  int
		Usage     Money
		Remainder Money
		Paid      bool
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrUnknownOccupant  = errors.New("unknown occupant")
	ErrDateTaken        = errors.New("date already booked")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("booking belongs to the other occupant")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Contains reports whether d falls inside the half-open interval [Start, End).
func (p Period) Contains(d Date) bool {
	return !d.Before(p.Start) && d.Before(p.End)
}

// Equal reports whether both boundaries match.
func (p Period) Equal(other Period) bool {
	return p.Start.Equal(other.Start) && p.End.Equal(other.End)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + ")"
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return errors.New("negative amount")
	}
	return nil
}

// OwnedBy checks that occupant holds this booking's claim. A mismatch is a
// conflict with the recorded claim, reported as ErrForbidden.
func (b Booking) OwnedBy(occupant string) error {
	if b.Occupant != occupant {
		return fmt.Errorf("booking %s is held by %s: %w", b.ID, b.Occupant, ErrForbidden)
	}
	return nil
}

func (b Booking) Validate() error {
	if err := b.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(b.Occupant) == "" {
		return ErrUnknownOccupant
	}
	return nil
}
