package billing

import (
	"posto/internal/core"
)

// Tariff holds the fixed cost constants of the parking contract. The payer is
// the occupant charged per day of use; the other party covers the remainder of
// the monthly rent.
type Tariff struct {
	DailyRate   core.Money
	MonthlyRent core.Money
	Payer       string
}

// Settle computes the cost split for one period. Days used by the payer are
// charged at the daily rate, capped at the monthly rent; the remainder is what
// the other party owes. The two amounts always sum to the monthly rent.
// Bookings by the other occupant never affect the amounts, and bookings
// outside the period are ignored.
func (t Tariff) Settle(period core.Period, bookings []core.Booking, paid bool) core.Settlement {
	used := 0
	for _, b := range bookings {
		if b.Occupant == t.Payer && period.Contains(b.Date) {
			used++
		}
	}

	usage := int64(used) * t.DailyRate.Cents
	if usage > t.MonthlyRent.Cents {
		usage = t.MonthlyRent.Cents
	}
	remainder := t.MonthlyRent.Cents - usage
	if remainder < 0 {
		remainder = 0
	}

	return core.Settlement{
		Period:    period,
		UsedDays:  used,
		Usage:     core.Money{Cents: usage},
		Remainder: core.Money{Cents: remainder},
		Paid:      paid,
	}
}

// SettleAll computes one settlement per generated period, merging in the
// persisted paid flags.
func (t Tariff) SettleAll(periods []core.Period, bookings []core.Booking, statuses []core.PeriodStatus) []core.Settlement {
	settlements := make([]core.Settlement, len(periods))
	for i, p := range periods {
		settlements[i] = t.Settle(p, bookings, PaidFlag(p, statuses))
	}
	return settlements
}
