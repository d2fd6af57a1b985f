package store

import (
	"context"

	"github.com/sells-group/telesales-cli/internal/model"
)

// Store defines the persistence interface for the allocation run: the
// per-period compile history consulted by the filter rules, the lifetime
// blacklist, and the run audit log.
type Store interface {
	// Compile history
	HistoryForPeriod(ctx context.Context, tier model.Tier, period string) ([]model.OutputRow, error)
	// ReplaceDay removes every row for (tier, date) and inserts rows in one
	// transaction, making same-day re-runs idempotent.
	ReplaceDay(ctx context.Context, tier model.Tier, period, date string, rows []model.OutputRow) error

	// Lifetime blacklist
	LifetimeBlacklist(ctx context.Context) ([]model.BlacklistEntry, error)
	AddLifetimeBlacklist(ctx context.Context, entries []model.BlacklistEntry, reason string) error

	// Run audit
	RecordRun(ctx context.Context, date string, stats model.RunStats) (string, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
