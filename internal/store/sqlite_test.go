package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/telesales-cli/internal/model"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func compileRow(date, phone string) model.OutputRow {
	return model.OutputRow{
		AssignDate:   date,
		Username:     "u" + phone,
		CallingCode:  "+66",
		Phone:        phone,
		Source:       model.SourcePC,
		Window:       model.WindowHot,
		InactiveDays: 5,
		Telesale:     "c1",
	}
}

func TestReplaceDayAndHistory(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	rows := []model.OutputRow{
		compileRow("01-09-2025", "0811111111"),
		compileRow("01-09-2025", "0822222222"),
	}
	require.NoError(t, s.ReplaceDay(ctx, model.TierGeneral, "09-2025", "01-09-2025", rows))

	got, err := s.HistoryForPeriod(ctx, model.TierGeneral, "09-2025")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "0811111111", got[0].Phone)
	assert.Equal(t, "+66", got[0].CallingCode)
	assert.Equal(t, model.SourcePC, got[0].Source)
	assert.Equal(t, 5, got[0].InactiveDays)
	assert.Equal(t, "c1", got[0].Telesale)
}

func TestReplaceDayIdempotent(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	rows := []model.OutputRow{
		compileRow("01-09-2025", "0811111111"),
		compileRow("01-09-2025", "0822222222"),
	}
	require.NoError(t, s.ReplaceDay(ctx, model.TierGeneral, "09-2025", "01-09-2025", rows))
	require.NoError(t, s.ReplaceDay(ctx, model.TierGeneral, "09-2025", "01-09-2025", rows))

	got, err := s.HistoryForPeriod(ctx, model.TierGeneral, "09-2025")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestReplaceDayKeepsOtherDays(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	require.NoError(t, s.ReplaceDay(ctx, model.TierGeneral, "09-2025", "01-09-2025",
		[]model.OutputRow{compileRow("01-09-2025", "0811111111")}))
	require.NoError(t, s.ReplaceDay(ctx, model.TierGeneral, "09-2025", "02-09-2025",
		[]model.OutputRow{compileRow("02-09-2025", "0822222222")}))

	// Rewriting day one must not touch day two.
	require.NoError(t, s.ReplaceDay(ctx, model.TierGeneral, "09-2025", "01-09-2025",
		[]model.OutputRow{compileRow("01-09-2025", "0833333333")}))

	got, err := s.HistoryForPeriod(ctx, model.TierGeneral, "09-2025")
	require.NoError(t, err)
	require.Len(t, got, 2)

	phones := []string{got[0].Phone, got[1].Phone}
	assert.ElementsMatch(t, []string{"0822222222", "0833333333"}, phones)
}

func TestReplaceDayTiersAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	require.NoError(t, s.ReplaceDay(ctx, model.TierGeneral, "09-2025", "01-09-2025",
		[]model.OutputRow{compileRow("01-09-2025", "0811111111")}))
	require.NoError(t, s.ReplaceDay(ctx, model.TierHighValue, "09-2025", "01-09-2025",
		[]model.OutputRow{compileRow("01-09-2025", "0822222222")}))

	general, err := s.HistoryForPeriod(ctx, model.TierGeneral, "09-2025")
	require.NoError(t, err)
	high, err := s.HistoryForPeriod(ctx, model.TierHighValue, "09-2025")
	require.NoError(t, err)

	require.Len(t, general, 1)
	require.Len(t, high, 1)
	assert.NotEqual(t, general[0].Phone, high[0].Phone)
}

func TestHistoryForPeriodEmpty(t *testing.T) {
	s := testStore(t)
	got, err := s.HistoryForPeriod(context.Background(), model.TierGeneral, "01-2030")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLifetimeBlacklistRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	entries := []model.BlacklistEntry{
		{Username: "a", Phone: "0811111111", Source: model.SourcePC},
		{Username: "b", Phone: "0822222222", Source: model.SourceMobile},
	}
	require.NoError(t, s.AddLifetimeBlacklist(ctx, entries, "identity_mismatch"))

	got, err := s.LifetimeBlacklist(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Username)
	assert.Equal(t, model.SourceMobile, got[1].Source)
}

func TestLifetimeBlacklistDuplicatesIgnored(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	entry := model.BlacklistEntry{Username: "a", Phone: "0811111111", Source: model.SourcePC}
	require.NoError(t, s.AddLifetimeBlacklist(ctx, []model.BlacklistEntry{entry}, "identity_mismatch"))
	require.NoError(t, s.AddLifetimeBlacklist(ctx, []model.BlacklistEntry{entry}, "identity_mismatch"))

	got, err := s.LifetimeBlacklist(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestAddLifetimeBlacklistEmptyNoOp(t *testing.T) {
	s := testStore(t)
	assert.NoError(t, s.AddLifetimeBlacklist(context.Background(), nil, ""))
}

func TestRecordRun(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	id, err := s.RecordRun(ctx, "01-09-2025", model.RunStats{
		Tier:        model.TierGeneral,
		RunDate:     "01-09-2025",
		PoolSize:    120,
		Kept:        90,
		RowsWritten: 80,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM runs WHERE run_date = ?`, "01-09-2025").Scan(&count))
	assert.Equal(t, 1, count)
}
