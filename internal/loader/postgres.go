package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/telesales-cli/internal/model"
)

// Querier is the subset of pgx pool behavior the loaders need. Satisfied by
// *pgxpool.Pool and by pgxmock in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGLoader reads candidate pools from the per-source game databases.
type PGLoader struct {
	pools map[model.SourceKey]Querier
}

// NewPGLoader builds a loader over one Querier per source. Sources without a
// configured database simply yield zero records.
func NewPGLoader(pools map[model.SourceKey]Querier) *PGLoader {
	return &PGLoader{pools: pools}
}

const candidateQuery = `
SELECT username, phone, last_login, last_seen, reward_tier, tier, ark_gem_balance, total_topup
FROM user_activity
WHERE last_login >= $1 AND last_login < $2
ORDER BY last_login DESC`

// Fetch selects users whose last login falls inside the window's inactivity
// range as of the reference date's local midnight.
func (p *PGLoader) Fetch(ctx context.Context, source model.SourceKey, window model.Window, ref time.Time) ([]model.RawLead, error) {
	q, ok := p.pools[source]
	if !ok || q == nil {
		return nil, nil
	}

	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())

	// Inactivity of DayMin days means last login at most DayMin days before
	// today's midnight. Open-ended windows reach back three years.
	upper := day.AddDate(0, 0, -window.DayMin+1)
	lower := day.AddDate(-3, 0, 0)
	if window.DayMax != nil {
		lower = day.AddDate(0, 0, -*window.DayMax)
	}

	rows, err := q.Query(ctx, candidateQuery, lower, upper)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: query %s %s", source, window.Label)
	}
	defer rows.Close()

	var out []model.RawLead
	for rows.Next() {
		raw := model.RawLead{Source: source}
		var rewardRank, declaredTier *string
		if err := rows.Scan(
			&raw.Username, &raw.Phone, &raw.LastLogin, &raw.LastSeen,
			&rewardRank, &declaredTier, &raw.ArkGemBalance, &raw.TopupAmount,
		); err != nil {
			return nil, eris.Wrapf(err, "loader: scan %s candidate", source)
		}
		if rewardRank != nil {
			raw.RewardRank = *rewardRank
		}
		if declaredTier != nil {
			raw.DeclaredTier = *declaredTier
		}
		out = append(out, raw)
	}
	return out, eris.Wrapf(rows.Err(), "loader: iterate %s candidates", source)
}

// PGRedemptions reads today's redeemers from the reporting database.
type PGRedemptions struct {
	q          Querier
	timeColumn string
}

// NewPGRedemptions builds a redemption lookup. timeColumn is the redemption
// timestamp column name, configurable because the reporting schema has
// drifted between deployments.
func NewPGRedemptions(q Querier, timeColumn string) *PGRedemptions {
	if timeColumn == "" {
		timeColumn = "created_at"
	}
	return &PGRedemptions{q: q, timeColumn: timeColumn}
}

// RedeemedToday returns usernames with a redemption on the reference date.
func (p *PGRedemptions) RedeemedToday(ctx context.Context, ref time.Time) (map[string]bool, error) {
	if p.q == nil {
		return map[string]bool{}, nil
	}

	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
	query := fmt.Sprintf(
		`SELECT DISTINCT username FROM redemptions WHERE %s >= $1 AND %s < $2`,
		p.timeColumn, p.timeColumn,
	)

	rows, err := p.q.Query(ctx, query, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, eris.Wrap(err, "loader: query redemptions")
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, eris.Wrap(err, "loader: scan redemption")
		}
		out[username] = true
	}
	return out, eris.Wrap(rows.Err(), "loader: iterate redemptions")
}
