package core

import (
	"fmt"
	"time"
)

// DateLayout is the canonical string form of a calendar date.
const DateLayout = "2006-01-02"

// Date is a calendar date without a time-of-day component. The zero value
// is "no date". Only the year/month/day fields are meaningful; the embedded
// time is always midnight.
type Date struct {
	time.Time
}

// NewDate creates a Date from year, month, day. Out-of-range components are
// normalized by the calendar (e.g. Jan 32 becomes Feb 1).
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current local calendar date.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDate parses the canonical YYYY-MM-DD form. It is the inverse of
// Date.String.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

// String returns the canonical YYYY-MM-DD form.
func (d Date) String() string {
	return d.Time.Format(DateLayout)
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// AddMonths advances the date by n calendar months, letting the calendar
// normalize when the target month is shorter (Jan 31 + 1 month is Mar 3).
func (d Date) AddMonths(n int) Date {
	return Date{Time: d.Time.AddDate(0, n, 0)}
}

// AddDays advances the date by n days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d is strictly after other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// Equal reports whether the two dates are the same calendar day.
func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

// Validate checks that the date is set.
func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}
