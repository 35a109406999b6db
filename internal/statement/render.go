package statement

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"posto/internal/core"
)

// FormatAmount renders cents as a decimal amount, e.g. 2500 -> "25.00".
func FormatAmount(m core.Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := fmt.Sprintf("%d.%02d", cents/100, cents%100)
	if neg {
		return "-" + s
	}
	return s
}

// Filename returns the canonical file name for a period's statement.
func Filename(p core.Period) string {
	return fmt.Sprintf("statement_%s_%s.csv", p.Start, p.End)
}

// Render serializes one settlement plus the bookings inside its period as a
// CSV document: a summary block followed by one row per booked day.
// Deterministic for a given input, so re-rendering after a duplicate delivery
// produces identical bytes.
func Render(s core.Settlement, bookings []core.Booking) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	summary := [][]string{
		{"period_start", s.Period.Start.String()},
		{"period_end", s.Period.End.String()},
		{"used_days", fmt.Sprintf("%d", s.UsedDays)},
		{"usage_amount", FormatAmount(s.Usage)},
		{"remainder_amount", FormatAmount(s.Remainder)},
		{"paid", fmt.Sprintf("%t", s.Paid)},
	}
	if err := w.WriteAll(summary); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}

	if err := w.Write([]string{"date", "occupant"}); err != nil {
		return nil, fmt.Errorf("write booking header: %w", err)
	}
	for _, b := range bookings {
		if !s.Period.Contains(b.Date) {
			continue
		}
		if err := w.Write([]string{b.Date.String(), b.Occupant}); err != nil {
			return nil, fmt.Errorf("write booking row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush statement: %w", err)
	}
	return buf.Bytes(), nil
}
