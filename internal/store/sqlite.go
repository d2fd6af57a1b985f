package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/telesales-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS compile_rows (
	id            TEXT PRIMARY KEY,
	out_tier      TEXT NOT NULL,
	period        TEXT NOT NULL,
	assign_date   TEXT NOT NULL,
	username      TEXT NOT NULL,
	calling_code  TEXT NOT NULL DEFAULT '',
	phone         TEXT NOT NULL,
	source        TEXT NOT NULL,
	tier_label    TEXT NOT NULL DEFAULT '',
	window_label  TEXT NOT NULL DEFAULT '',
	inactive_days INTEGER NOT NULL DEFAULT 0,
	amount        TEXT NOT NULL DEFAULT '',
	ark_gem       TEXT NOT NULL DEFAULT '',
	reward_rank   TEXT NOT NULL DEFAULT '',
	telesale      TEXT NOT NULL DEFAULT '',
	recall_at     TEXT NOT NULL DEFAULT '',
	call_status   TEXT NOT NULL DEFAULT '',
	answer_status TEXT NOT NULL DEFAULT '',
	result        TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS lifetime_blacklist (
	username TEXT NOT NULL,
	phone    TEXT NOT NULL,
	source   TEXT NOT NULL,
	reason   TEXT NOT NULL DEFAULT '',
	added_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (username, phone, source)
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	run_date   TEXT NOT NULL,
	out_tier   TEXT NOT NULL,
	stats      TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_compile_tier_period ON compile_rows(out_tier, period);
CREATE INDEX IF NOT EXISTS idx_compile_tier_date ON compile_rows(out_tier, assign_date);
CREATE INDEX IF NOT EXISTS idx_runs_date ON runs(run_date);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const compileColumns = `assign_date, username, calling_code, phone, source, tier_label,
	window_label, inactive_days, amount, ark_gem, reward_rank, telesale, recall_at,
	call_status, answer_status, result`

func (s *SQLiteStore) HistoryForPeriod(ctx context.Context, tier model.Tier, period string) ([]model.OutputRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+compileColumns+` FROM compile_rows WHERE out_tier = ? AND period = ? ORDER BY created_at, id`,
		string(tier), period,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query history %s %s", tier, period)
	}
	defer rows.Close()

	var out []model.OutputRow
	for rows.Next() {
		var r model.OutputRow
		var source string
		if err := rows.Scan(
			&r.AssignDate, &r.Username, &r.CallingCode, &r.Phone, &source, &r.Tier,
			&r.Window, &r.InactiveDays, &r.Amount, &r.ArkGem, &r.RewardRank, &r.Telesale,
			&r.RecallAt, &r.CallStatus, &r.AnswerStatus, &r.Result,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan compile row")
		}
		r.Source = model.SourceKey(source)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate compile rows")
}

func (s *SQLiteStore) ReplaceDay(ctx context.Context, tier model.Tier, period, date string, rows []model.OutputRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace day")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM compile_rows WHERE out_tier = ? AND assign_date = ?`,
		string(tier), date,
	); err != nil {
		return eris.Wrapf(err, "sqlite: delete day %s %s", tier, date)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO compile_rows (id, out_tier, period, `+compileColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			uuid.New().String(), string(tier), period,
			r.AssignDate, r.Username, r.CallingCode, r.Phone, string(r.Source), r.Tier,
			r.Window, r.InactiveDays, r.Amount, r.ArkGem, r.RewardRank, r.Telesale,
			r.RecallAt, r.CallStatus, r.AnswerStatus, r.Result,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert row %s", r.Phone)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit replace day")
}

func (s *SQLiteStore) LifetimeBlacklist(ctx context.Context) ([]model.BlacklistEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT username, phone, source FROM lifetime_blacklist ORDER BY added_at`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query lifetime blacklist")
	}
	defer rows.Close()

	var out []model.BlacklistEntry
	for rows.Next() {
		var e model.BlacklistEntry
		var source string
		if err := rows.Scan(&e.Username, &e.Phone, &source); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan blacklist entry")
		}
		e.Source = model.SourceKey(source)
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate blacklist entries")
}

func (s *SQLiteStore) AddLifetimeBlacklist(ctx context.Context, entries []model.BlacklistEntry, reason string) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin blacklist add")
	}
	defer tx.Rollback()

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO lifetime_blacklist (username, phone, source, reason, added_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (username, phone, source) DO NOTHING`,
			e.Username, e.Phone, string(e.Source), reason, time.Now().UTC(),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert blacklist %s", e.Username)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit blacklist add")
}

func (s *SQLiteStore) RecordRun(ctx context.Context, date string, stats model.RunStats) (string, error) {
	id := uuid.New().String()

	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal run stats")
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, run_date, out_tier, stats, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, date, string(stats.Tier), string(statsJSON), time.Now().UTC(),
	); err != nil {
		return "", eris.Wrap(err, "sqlite: insert run")
	}

	return id, nil
}
