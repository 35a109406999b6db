// Package billing derives monthly billing periods from the contract anchor
// date and computes the rent split for each of them.
package billing

import (
	"posto/internal/core"
)

// GeneratePeriods derives the ordered list of one-month billing periods
// anchored at anchor. Periods are contiguous half-open intervals; period k
// starts at anchor plus k months. The set always covers every date up to and
// including horizon, so the result is never empty.
//
// When the latest-ending persisted status is paid and its end already reaches
// the computed limit, one extra period is opened past it: once the most recent
// tracked period is settled, the next one becomes visible and toggle-able
// before any booking lands in it. A paid status that is not the latest by end
// date has no effect on coverage.
func GeneratePeriods(anchor, horizon core.Date, statuses []core.PeriodStatus) []core.Period {
	limit := anchor.AddMonths(1)
	for !limit.After(horizon) {
		limit = limit.AddMonths(1)
	}

	if latest, ok := latestStatus(statuses); ok && latest.Paid && !latest.End.Before(limit) {
		limit = latest.End.AddMonths(1)
	}

	var periods []core.Period
	for start := anchor; start.Before(limit); {
		end := start.AddMonths(1)
		periods = append(periods, core.Period{Start: start, End: end})
		start = end
	}
	return periods
}

// latestStatus returns the status with the latest end date. Ties keep the
// first row in slice order; the store returns rows ordered by start date, so
// the choice is stable.
func latestStatus(statuses []core.PeriodStatus) (core.PeriodStatus, bool) {
	if len(statuses) == 0 {
		return core.PeriodStatus{}, false
	}
	latest := statuses[0]
	for _, s := range statuses[1:] {
		if s.End.After(latest.End) {
			latest = s
		}
	}
	return latest, true
}

// PaidFlag looks up the persisted paid flag for p by exact boundary equality.
// A missing status means unpaid, never an error.
func PaidFlag(p core.Period, statuses []core.PeriodStatus) bool {
	for _, s := range statuses {
		if s.Start.Equal(p.Start) && s.End.Equal(p.End) {
			return s.Paid
		}
	}
	return false
}
