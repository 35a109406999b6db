// Package calendar generates the day grids rendered by the booking UI.
package calendar

import (
	"posto/internal/core"
)

// Cell is one day slot of a rendered month grid. InMonth is false for the
// leading and trailing days borrowed from adjacent months.
type Cell struct {
	Date    core.Date
	InMonth bool
}

// MonthGrid returns the cells covering the given month as full Monday-first
// weeks: the first week starts on the Monday at or before the 1st, the last
// week ends on the Sunday at or after the last day. Pure and deterministic.
func MonthGrid(year, month int) []Cell {
	first := core.NewDate(year, month, 1)
	last := core.NewDate(year, month+1, 0) // day 0 normalizes to the last day of month

	start := first.AddDays(-mondayOffset(first))
	end := last.AddDays(6 - mondayOffset(last))

	var cells []Cell
	for d := start; !d.After(end); d = d.AddDays(1) {
		cells = append(cells, Cell{
			Date:    d,
			InMonth: d.Year() == year && d.Month() == month,
		})
	}
	return cells
}

// mondayOffset returns how many days d is past the Monday of its week.
func mondayOffset(d core.Date) int {
	return (int(d.Time.Weekday()) + 6) % 7
}
