package billing

import (
	"posto/internal/core"
)

// Horizon returns the furthest-forward date the period set must cover: the
// maximum of the latest booking date, the currently viewed date and today.
// This keeps the period list long enough for whatever the user is looking at,
// even when that period has no bookings yet.
func Horizon(bookings []core.Booking, viewed, today core.Date) core.Date {
	h := today
	if viewed.After(h) {
		h = viewed
	}
	for _, b := range bookings {
		if b.Date.After(h) {
			h = b.Date
		}
	}
	return h
}

// CurrentPeriod picks the period containing the selected date. The horizon
// computation guarantees one exists; if it somehow does not, the
// chronologically last period is returned.
func CurrentPeriod(periods []core.Period, selected core.Date) (core.Period, bool) {
	for _, p := range periods {
		if p.Contains(selected) {
			return p, true
		}
	}
	if len(periods) == 0 {
		return core.Period{}, false
	}
	return periods[len(periods)-1], true
}
