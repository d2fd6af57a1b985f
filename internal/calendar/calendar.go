// Package calendar owns day/period keys and the weekend/holiday run gate.
// The gate lives with the caller, not the engine: the engine itself never
// knows about holidays.
package calendar

import "time"

// DayKey formats a date as the daily tab name, DD-MM-YYYY.
func DayKey(t time.Time) string {
	return t.Format("02-01-2006")
}

// PeriodKey formats a date as the monthly reporting period, MM-YYYY.
func PeriodKey(t time.Time) string {
	return t.Format("01-2006")
}

// Gate decides whether the General-tier path should run on a given date.
type Gate struct {
	IncludeWeekends bool
	holidays        map[string]bool // YYYY-MM-DD
}

// NewGate builds a gate from the configured holiday dates.
func NewGate(includeWeekends bool, holidays []time.Time) *Gate {
	set := make(map[string]bool, len(holidays))
	for _, h := range holidays {
		set[h.Format("2006-01-02")] = true
	}
	return &Gate{IncludeWeekends: includeWeekends, holidays: set}
}

// ShouldRun reports whether date is a working day. The reason is empty when
// the run may proceed.
func (g *Gate) ShouldRun(date time.Time) (bool, string) {
	if !g.IncludeWeekends {
		switch date.Weekday() {
		case time.Saturday, time.Sunday:
			return false, "weekend"
		}
	}
	if g.holidays[date.Format("2006-01-02")] {
		return false, "holiday"
	}
	return true, ""
}
