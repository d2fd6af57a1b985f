// Package loader fetches candidate pools per source and recency window.
// Reporting zero records is a valid result, not a failure: on the first day
// of a period there may simply be nothing to fetch.
package loader

import (
	"context"
	"time"

	"github.com/sells-group/telesales-cli/internal/model"
)

// Loader fetches raw candidate records for one source within one window's
// inactivity range, relative to the run's reference date.
type Loader interface {
	Fetch(ctx context.Context, source model.SourceKey, window model.Window, ref time.Time) ([]model.RawLead, error)
}

// RedemptionSource reports which usernames redeemed on the reference date.
type RedemptionSource interface {
	RedeemedToday(ctx context.Context, ref time.Time) (map[string]bool, error)
}
