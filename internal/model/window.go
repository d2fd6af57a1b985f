package model

import "strings"

// Window labels for the default configuration.
const (
	WindowHot        = "Hot Lead"
	WindowCold       = "Cold"
	WindowHibernated = "Hibernated"
)

// Window is a named inactivity-day range. DayMax nil means open-ended.
// Windows may overlap in raw range; the lowest Priority wins on overlap.
type Window struct {
	Label    string `json:"label" mapstructure:"label"`
	DayMin   int    `json:"day_min" mapstructure:"day_min"`
	DayMax   *int   `json:"day_max,omitempty" mapstructure:"day_max"`
	Priority int    `json:"priority" mapstructure:"priority"`
}

// Contains reports whether days falls inside the window's range.
func (w Window) Contains(days int) bool {
	if days < w.DayMin {
		return false
	}
	return w.DayMax == nil || days <= *w.DayMax
}

// DefaultWindows returns the stock Hot/Cold/Hibernated configuration.
func DefaultWindows() []Window {
	fourteen := 14
	seven := 7
	return []Window{
		{Label: WindowHot, DayMin: 3, DayMax: &seven, Priority: 1},
		{Label: WindowCold, DayMin: 8, DayMax: &fourteen, Priority: 2},
		{Label: WindowHibernated, DayMin: 15, Priority: 3},
	}
}

// IsHighTier reports whether a declared tier label counts as A-tier
// (e.g. "A-1", "a-2 gold"). Empty or non-matching labels do not.
func IsHighTier(label, prefix string) bool {
	if label == "" || prefix == "" {
		return false
	}
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(label)), strings.ToUpper(prefix))
}
