package pipeline

import (
	"math"
	"time"

	"github.com/sells-group/telesales-cli/internal/model"
)

// InactiveDays returns whole days between the local midnights of the last
// activity and the reference date. Returns -1 when last activity is unknown.
// Pure given its inputs; the reference date is always passed in so backfill
// runs are reproducible.
func InactiveDays(lastActivity, ref time.Time, loc *time.Location) int {
	if lastActivity.IsZero() {
		return -1
	}
	a := midnight(lastActivity.In(loc))
	b := midnight(ref.In(loc))
	return int(math.Round(b.Sub(a).Hours() / 24))
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Classify picks the window for an inactivity-day count. Among all windows
// containing the value, the lowest priority number wins. ok is false when no
// window matches; such leads are excluded from both tiers, not an error.
func Classify(days int, windows []model.Window) (model.Window, bool) {
	if days < 0 {
		return model.Window{}, false
	}
	var best model.Window
	found := false
	for _, w := range windows {
		if !w.Contains(days) {
			continue
		}
		if !found || w.Priority < best.Priority {
			best = w
			found = true
		}
	}
	return best, found
}

// ClassifyPool derives InactiveDays and Window for every lead and drops the
// out-of-range ones. Returns the classified leads and the excluded count.
func ClassifyPool(leads []model.Lead, ref time.Time, loc *time.Location, windows []model.Window) ([]model.Lead, int) {
	kept := make([]model.Lead, 0, len(leads))
	excluded := 0
	for _, l := range leads {
		l.InactiveDays = InactiveDays(l.LastActivity, ref, loc)
		w, ok := Classify(l.InactiveDays, windows)
		if !ok {
			excluded++
			continue
		}
		l.Window = w.Label
		kept = append(kept, l)
	}
	return kept, excluded
}

// DedupeByPhone keeps one lead per phone. The lead in the more recent window
// (lower priority number) wins; within a window the first occurrence wins.
// Relative order of survivors is preserved.
func DedupeByPhone(leads []model.Lead, windows []model.Window) []model.Lead {
	rank := make(map[string]int, len(windows))
	for _, w := range windows {
		rank[w.Label] = w.Priority
	}

	best := make(map[string]int, len(leads)) // phone -> index of winner
	for i, l := range leads {
		j, seen := best[l.Phone]
		if !seen || rank[l.Window] < rank[leads[j].Window] {
			best[l.Phone] = i
		}
	}

	out := make([]model.Lead, 0, len(best))
	for i, l := range leads {
		if best[l.Phone] == i {
			out = append(out, l)
		}
	}
	return out
}
