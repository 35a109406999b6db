package billing

import (
	"testing"

	"posto/internal/core"
)

var anchor = core.NewDate(2025, 11, 10)

func status(start, end core.Date, paid bool) core.PeriodStatus {
	return core.PeriodStatus{Start: start, End: end, Paid: paid}
}

func TestGeneratePeriods(t *testing.T) {
	tests := []struct {
		name     string
		horizon  core.Date
		statuses []core.PeriodStatus
		want     int // expected period count
	}{
		{
			name:    "horizon equals anchor yields one period",
			horizon: anchor,
			want:    1,
		},
		{
			name:    "horizon inside first period",
			horizon: core.NewDate(2025, 12, 9),
			want:    1,
		},
		{
			name:    "horizon on first boundary opens second period",
			horizon: core.NewDate(2025, 12, 10),
			want:    2,
		},
		{
			name:    "horizon months ahead",
			horizon: core.NewDate(2026, 3, 15),
			want:    5,
		},
		{
			name:    "paid latest status at limit appends one period",
			horizon: core.NewDate(2025, 11, 20),
			statuses: []core.PeriodStatus{
				status(anchor, core.NewDate(2025, 12, 10), true),
			},
			want: 2,
		},
		{
			name:    "paid latest status beyond limit extends past it",
			horizon: core.NewDate(2025, 11, 20),
			statuses: []core.PeriodStatus{
				status(core.NewDate(2025, 12, 10), core.NewDate(2026, 1, 10), true),
			},
			want: 3,
		},
		{
			name:    "paid status behind the limit has no effect",
			horizon: core.NewDate(2025, 12, 15),
			statuses: []core.PeriodStatus{
				status(anchor, core.NewDate(2025, 12, 10), true),
			},
			want: 2,
		},
		{
			name:    "unpaid latest status masks an earlier paid one",
			horizon: core.NewDate(2025, 12, 15),
			statuses: []core.PeriodStatus{
				status(anchor, core.NewDate(2025, 12, 10), true),
				status(core.NewDate(2025, 12, 10), core.NewDate(2026, 1, 10), false),
			},
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			periods := GeneratePeriods(anchor, tt.horizon, tt.statuses)
			if len(periods) != tt.want {
				t.Fatalf("got %d periods, want %d: %v", len(periods), tt.want, periods)
			}
			assertWellFormed(t, periods, tt.horizon)
		})
	}
}

// assertWellFormed checks the invariants every generated set must satisfy:
// anchored start, one-month periods, contiguity, horizon coverage.
func assertWellFormed(t *testing.T, periods []core.Period, horizon core.Date) {
	t.Helper()
	if len(periods) == 0 {
		t.Fatal("empty period set")
	}
	if !periods[0].Start.Equal(anchor) {
		t.Errorf("first period starts at %s, want %s", periods[0].Start, anchor)
	}
	for i, p := range periods {
		if !p.End.Equal(p.Start.AddMonths(1)) {
			t.Errorf("period %d is not one month: %s", i, p)
		}
		if i > 0 && !p.Start.Equal(periods[i-1].End) {
			t.Errorf("gap between period %d and %d: %s / %s", i-1, i, periods[i-1], p)
		}
	}
	if last := periods[len(periods)-1]; !last.End.After(horizon) {
		t.Errorf("last period %s does not cover horizon %s", last, horizon)
	}
}

func TestGeneratePeriodsExactScenario(t *testing.T) {
	periods := GeneratePeriods(anchor, anchor, nil)
	if len(periods) != 1 {
		t.Fatalf("got %d periods, want 1", len(periods))
	}
	want := core.Period{Start: core.NewDate(2025, 11, 10), End: core.NewDate(2025, 12, 10)}
	if !periods[0].Equal(want) {
		t.Fatalf("got %s, want %s", periods[0], want)
	}
}

func TestPaidFlag(t *testing.T) {
	p := core.Period{Start: anchor, End: anchor.AddMonths(1)}
	statuses := []core.PeriodStatus{
		status(anchor, anchor.AddMonths(1), true),
		status(anchor.AddMonths(1), anchor.AddMonths(2), false),
	}

	if !PaidFlag(p, statuses) {
		t.Error("expected paid for matching status")
	}
	next := core.Period{Start: anchor.AddMonths(1), End: anchor.AddMonths(2)}
	if PaidFlag(next, statuses) {
		t.Error("expected unpaid for explicit false status")
	}
	missing := core.Period{Start: anchor.AddMonths(2), End: anchor.AddMonths(3)}
	if PaidFlag(missing, statuses) {
		t.Error("expected unpaid default for missing status")
	}
}
