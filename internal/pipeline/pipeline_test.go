package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/telesales-cli/internal/config"
	"github.com/sells-group/telesales-cli/internal/model"
	"github.com/sells-group/telesales-cli/internal/notify"
)

type fakeStore struct {
	history   map[string][]model.OutputRow // tier|period
	lifetime  []model.BlacklistEntry
	runs      []model.RunStats
	failTiers map[model.Tier]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{history: map[string][]model.OutputRow{}, failTiers: map[model.Tier]bool{}}
}

func (s *fakeStore) key(tier model.Tier, period string) string {
	return string(tier) + "|" + period
}

func (s *fakeStore) HistoryForPeriod(_ context.Context, tier model.Tier, period string) ([]model.OutputRow, error) {
	return s.history[s.key(tier, period)], nil
}

func (s *fakeStore) ReplaceDay(_ context.Context, tier model.Tier, period, date string, rows []model.OutputRow) error {
	if s.failTiers[tier] {
		return eris.New("replace day failed")
	}
	s.history[s.key(tier, period)] = Merge(s.history[s.key(tier, period)], rows, date)
	return nil
}

func (s *fakeStore) LifetimeBlacklist(context.Context) ([]model.BlacklistEntry, error) {
	return s.lifetime, nil
}

func (s *fakeStore) AddLifetimeBlacklist(_ context.Context, entries []model.BlacklistEntry, _ string) error {
	s.lifetime = append(s.lifetime, entries...)
	return nil
}

func (s *fakeStore) RecordRun(_ context.Context, _ string, stats model.RunStats) (string, error) {
	s.runs = append(s.runs, stats)
	return "run-id", nil
}

func (s *fakeStore) Migrate(context.Context) error { return nil }
func (s *fakeStore) Close() error                  { return nil }

type fakeLoader struct {
	pools map[string][]model.RawLead // source|window
}

func (l *fakeLoader) Fetch(_ context.Context, source model.SourceKey, window model.Window, _ time.Time) ([]model.RawLead, error) {
	return l.pools[string(source)+"|"+window.Label], nil
}

type fakeSink struct {
	mu     sync.Mutex
	writes map[string][]model.OutputRow // tier|date
	fail   bool
}

func (s *fakeSink) WriteDaily(_ context.Context, tier model.Tier, _, date string, rows []model.OutputRow) (string, error) {
	if s.fail {
		return "", eris.New("disk full")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writes == nil {
		s.writes = map[string][]model.OutputRow{}
	}
	s.writes[string(tier)+"|"+date] = rows
	return "out/" + string(tier) + ".xlsx", nil
}

type fakeNotifier struct {
	sent []notify.Summary
}

func (n *fakeNotifier) Notify(_ context.Context, s notify.Summary) error {
	n.sent = append(n.sent, s)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{Timezone: "Asia/Bangkok", PerCallerTarget: 80},
		Rules:   allRules(),
		Tier:    config.TierConfig{TopupThreshold: 100000, TierPrefix: "A-"},
		Windows: model.DefaultWindows(),
		Sources: []config.SourceConfig{
			{Key: model.SourcePC, Enabled: true, MixWeight: 0.5},
			{Key: model.SourceMobile, Enabled: true, MixWeight: 0.5},
		},
		Callers: []model.Caller{
			{ID: "c1", Available: true},
			{ID: "c2", Available: true},
		},
	}
}

func rawLead(username, phone string, src model.SourceKey, ref time.Time, daysAgo int) model.RawLead {
	last := ref.AddDate(0, 0, -daysAgo)
	return model.RawLead{Username: username, Phone: phone, Source: src, LastLogin: &last}
}

func testPools(ref time.Time) map[string][]model.RawLead {
	rich := rawLead("whale", "0811111111", model.SourcePC, ref, 5)
	topup := 250000.0
	rich.TopupAmount = &topup

	return map[string][]model.RawLead{
		"cabal_pc_th|" + model.WindowHot: {
			rich,
			rawLead("pc_hot", "0812222222", model.SourcePC, ref, 4),
		},
		"cabal_pc_th|" + model.WindowCold: {
			rawLead("pc_cold", "0813333333", model.SourcePC, ref, 10),
		},
		"cabal_mobile_th|" + model.WindowHot: {
			rawLead("mb_hot", "0814444444", model.SourceMobile, ref, 6),
		},
	}
}

func TestPipelineRunEndToEnd(t *testing.T) {
	loc := bangkok(t)
	ref := time.Date(2025, 9, 15, 9, 0, 0, 0, loc)

	st := newFakeStore()
	sink := &fakeSink{}
	nHigh := &fakeNotifier{}
	nGen := &fakeNotifier{}

	p := New(testConfig(), loc, st, &fakeLoader{pools: testPools(ref)}, nil, sink,
		map[model.Tier]Notifier{
			model.TierHighValue: nHigh,
			model.TierGeneral:   nGen,
		})

	report, err := p.Run(context.Background(), ref)
	require.NoError(t, err)

	assert.Equal(t, 1, report.HighValue.RowsWritten)
	assert.Equal(t, 3, report.General.RowsWritten)
	assert.Equal(t, 4, report.General.PoolSize)

	// History persisted per tier under the month key.
	assert.Len(t, st.history["Tier A|09-2025"], 1)
	assert.Len(t, st.history["Non A|09-2025"], 3)

	// Workbook writes landed under the day tab.
	assert.Len(t, sink.writes["Tier A|15-09-2025"], 1)
	assert.Len(t, sink.writes["Non A|15-09-2025"], 3)

	// One notification per tier.
	require.Len(t, nHigh.sent, 1)
	assert.Equal(t, 1, nHigh.sent[0].RowCount)
	require.Len(t, nGen.sent, 1)
	assert.Equal(t, 3, nGen.sent[0].RowCount)

	// Both tier runs recorded.
	assert.Len(t, st.runs, 2)
}

func TestPipelineRunHighValueHasNoCaller(t *testing.T) {
	loc := bangkok(t)
	ref := time.Date(2025, 9, 15, 9, 0, 0, 0, loc)
	st := newFakeStore()

	p := New(testConfig(), loc, st, &fakeLoader{pools: testPools(ref)}, nil, nil, nil)
	_, err := p.Run(context.Background(), ref)
	require.NoError(t, err)

	for _, r := range st.history["Tier A|09-2025"] {
		assert.Empty(t, r.Telesale)
	}
	for _, r := range st.history["Non A|09-2025"] {
		assert.NotEmpty(t, r.Telesale)
	}
}

func TestPipelineRerunSameDayIsIdempotent(t *testing.T) {
	loc := bangkok(t)
	ref := time.Date(2025, 9, 15, 9, 0, 0, 0, loc)
	st := newFakeStore()
	pools := testPools(ref)

	p := New(testConfig(), loc, st, &fakeLoader{pools: pools}, nil, nil, nil)

	_, err := p.Run(context.Background(), ref)
	require.NoError(t, err)
	first := append([]model.OutputRow(nil), st.history["Non A|09-2025"]...)
	require.Len(t, first, 3)

	// Second run of the same day: compiled-today drops the already-assigned
	// leads and the day carries its existing rows, so nothing changes.
	_, err = p.Run(context.Background(), ref)
	require.NoError(t, err)

	assert.Equal(t, first, st.history["Non A|09-2025"])
	seen := map[string]int{}
	for _, r := range st.history["Non A|09-2025"] {
		seen[r.AssignDate+"|"+r.Phone]++
	}
	for key, n := range seen {
		assert.Equal(t, 1, n, "duplicate compile row %s", key)
	}
}

func TestPipelineAnsweredLeadDroppedNextRun(t *testing.T) {
	loc := bangkok(t)
	ref := time.Date(2025, 9, 15, 9, 0, 0, 0, loc)
	st := newFakeStore()
	// Yesterday's row for pc_hot came back answered.
	st.history["Non A|09-2025"] = []model.OutputRow{{
		AssignDate:   "14-09-2025",
		Username:     "pc_hot",
		Phone:        "0812222222",
		Source:       model.SourcePC,
		AnswerStatus: model.StatusAnswered,
	}}

	p := New(testConfig(), loc, st, &fakeLoader{pools: testPools(ref)}, nil, nil, nil)
	report, err := p.Run(context.Background(), ref)
	require.NoError(t, err)

	assert.Equal(t, 1, report.General.DropCounts[DropAnswered])
	for _, r := range st.history["Non A|09-2025"] {
		if r.AssignDate == "15-09-2025" {
			assert.NotEqual(t, "pc_hot", r.Username)
		}
	}
}

func TestPipelineNotOwnerAccumulatesLifetimeBlacklist(t *testing.T) {
	loc := bangkok(t)
	ref := time.Date(2025, 9, 15, 9, 0, 0, 0, loc)
	st := newFakeStore()
	st.history["Non A|09-2025"] = []model.OutputRow{{
		AssignDate: "14-09-2025",
		Username:   "pc_hot",
		Phone:      "0812222222",
		Source:     model.SourcePC,
		Result:     model.ResultNotOwner,
	}}

	p := New(testConfig(), loc, st, &fakeLoader{pools: testPools(ref)}, nil, nil, nil)
	_, err := p.Run(context.Background(), ref)
	require.NoError(t, err)

	require.Len(t, st.lifetime, 1)
	assert.Equal(t, "pc_hot", st.lifetime[0].Username)
}

func TestPipelineSinkFailureDoesNotFailRun(t *testing.T) {
	loc := bangkok(t)
	ref := time.Date(2025, 9, 15, 9, 0, 0, 0, loc)
	st := newFakeStore()

	p := New(testConfig(), loc, st, &fakeLoader{pools: testPools(ref)}, nil, &fakeSink{fail: true}, nil)
	report, err := p.Run(context.Background(), ref)

	require.NoError(t, err)
	assert.Equal(t, 3, report.General.RowsWritten)
	// History still persisted despite the sink failure.
	assert.Len(t, st.history["Non A|09-2025"], 3)
}

func TestPipelineOneTierStoreFailureDoesNotBlockOther(t *testing.T) {
	loc := bangkok(t)
	ref := time.Date(2025, 9, 15, 9, 0, 0, 0, loc)
	st := newFakeStore()
	st.failTiers[model.TierHighValue] = true
	sink := &fakeSink{}

	p := New(testConfig(), loc, st, &fakeLoader{pools: testPools(ref)}, nil, sink, nil)
	_, err := p.Run(context.Background(), ref)

	require.NoError(t, err)
	assert.Empty(t, sink.writes["Tier A|15-09-2025"])
	assert.Len(t, sink.writes["Non A|15-09-2025"], 3)
}

func TestPipelineDryRunWritesNothing(t *testing.T) {
	loc := bangkok(t)
	ref := time.Date(2025, 9, 15, 9, 0, 0, 0, loc)
	st := newFakeStore()
	sink := &fakeSink{}
	n := &fakeNotifier{}

	p := New(testConfig(), loc, st, &fakeLoader{pools: testPools(ref)}, nil, sink,
		map[model.Tier]Notifier{model.TierGeneral: n}, WithDryRun(true))

	report, err := p.Run(context.Background(), ref)
	require.NoError(t, err)

	assert.Equal(t, 3, report.General.RowsWritten)
	assert.Empty(t, st.history)
	assert.Empty(t, st.runs)
	assert.Empty(t, sink.writes)
	assert.Empty(t, n.sent)
}

func TestPipelineEmptyPoolProducesEmptyDay(t *testing.T) {
	loc := bangkok(t)
	ref := time.Date(2025, 9, 15, 9, 0, 0, 0, loc)
	st := newFakeStore()
	sink := &fakeSink{}

	p := New(testConfig(), loc, st, &fakeLoader{pools: nil}, nil, sink, nil)
	report, err := p.Run(context.Background(), ref)

	require.NoError(t, err)
	assert.Zero(t, report.HighValue.RowsWritten)
	assert.Zero(t, report.General.RowsWritten)
	// Empty day tabs still get written.
	assert.Contains(t, sink.writes, "Tier A|15-09-2025")
	assert.Contains(t, sink.writes, "Non A|15-09-2025")
}
