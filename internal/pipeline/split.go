package pipeline

import (
	"github.com/sells-group/telesales-cli/internal/config"
	"github.com/sells-group/telesales-cli/internal/model"
)

// MostRecentWindow returns the window with the lowest priority number.
func MostRecentWindow(windows []model.Window) model.Window {
	best := windows[0]
	for _, w := range windows[1:] {
		if w.Priority < best.Priority {
			best = w
		}
	}
	return best
}

// Split partitions the filtered, classified pool into the High-Value tier and
// the General tier. High-Value requires the most-recent window plus either a
// topup at or above the threshold or a declared tier matching the prefix.
// Everything else stays General, whatever its window.
func Split(kept []model.Lead, windows []model.Window, tier config.TierConfig) (high, general []model.Lead) {
	if len(windows) == 0 {
		return nil, kept
	}
	recent := MostRecentWindow(windows).Label
	for _, l := range kept {
		if l.Window == recent && qualifiesHighValue(l, tier) {
			high = append(high, l)
		} else {
			general = append(general, l)
		}
	}
	return high, general
}

func qualifiesHighValue(l model.Lead, tier config.TierConfig) bool {
	if l.TopupAmount != nil && *l.TopupAmount >= tier.TopupThreshold {
		return true
	}
	return model.IsHighTier(l.DeclaredTier, tier.TierPrefix)
}
