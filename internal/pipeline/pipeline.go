// Package pipeline implements the lead allocation engine: normalization,
// the eligibility filter pipeline, window classification, the tier split,
// mix-weight-aware caller allocation, and the idempotent compile merge.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/telesales-cli/internal/calendar"
	"github.com/sells-group/telesales-cli/internal/config"
	"github.com/sells-group/telesales-cli/internal/loader"
	"github.com/sells-group/telesales-cli/internal/model"
	"github.com/sells-group/telesales-cli/internal/notify"
	"github.com/sells-group/telesales-cli/internal/store"
)

// Sink receives a day's rows for one tier. Implementations write the daily
// tab and upsert the Compile tab of the monthly workbook.
type Sink interface {
	WriteDaily(ctx context.Context, tier model.Tier, period, date string, rows []model.OutputRow) (location string, err error)
}

// Notifier announces a tier's result after a run. Failures must be treated
// as non-fatal by the pipeline.
type Notifier interface {
	Notify(ctx context.Context, s notify.Summary) error
}

// Pipeline wires the engine to its collaborators. All I/O happens in the
// collaborators; the engine stages themselves are pure.
type Pipeline struct {
	cfg         *config.Config
	loc         *time.Location
	store       store.Store
	loader      loader.Loader
	redemptions loader.RedemptionSource
	sink        Sink
	notifiers   map[model.Tier]Notifier
	dryRun      bool
}

// Option customizes pipeline behavior.
type Option func(*Pipeline)

// WithDryRun computes the full allocation but skips every write: no history
// merge, no lifetime blacklist additions, no workbook, no notifications.
func WithDryRun(on bool) Option {
	return func(p *Pipeline) { p.dryRun = on }
}

// New builds a pipeline. sink may be nil to hold workbook output; notifiers
// may be empty; redemptions may be nil when no reporting database is
// configured.
func New(
	cfg *config.Config,
	loc *time.Location,
	st store.Store,
	ld loader.Loader,
	rd loader.RedemptionSource,
	sink Sink,
	notifiers map[model.Tier]Notifier,
	opts ...Option,
) *Pipeline {
	if rd == nil {
		rd = loader.NoRedemptions{}
	}
	p := &Pipeline{
		cfg:         cfg,
		loc:         loc,
		store:       st,
		loader:      ld,
		redemptions: rd,
		sink:        sink,
		notifiers:   notifiers,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Report is the run outcome: per-tier stats, always populated so operators
// can diagnose shortfalls even on partial degradation.
type Report struct {
	HighValue model.RunStats
	General   model.RunStats
}

// Run executes one allocation for the reference date. The run processes a
// single snapshot to completion; concurrent runs for the same date must be
// serialized by the caller.
func (p *Pipeline) Run(ctx context.Context, ref time.Time) (*Report, error) {
	dayKey := calendar.DayKey(ref)
	period := calendar.PeriodKey(ref)
	sources := p.cfg.EnabledSources()

	// Fetch per source per window. Zero records is a normal first-day result.
	var raws []model.RawLead
	for _, src := range sources {
		for _, w := range p.cfg.Windows {
			recs, err := p.loader.Fetch(ctx, src, w, ref)
			if err != nil {
				return nil, eris.Wrapf(err, "pipeline: fetch %s %s", src, w.Label)
			}
			zap.L().Debug("pipeline: fetched pool",
				zap.String("source", string(src)),
				zap.String("window", w.Label),
				zap.Int("records", len(recs)),
			)
			raws = append(raws, recs...)
		}
	}

	leads := NormalizeAll(raws)
	classified, outOfRange := ClassifyPool(leads, ref, p.loc, p.cfg.Windows)
	pool := DedupeByPhone(classified, p.cfg.Windows)

	zap.L().Info("pipeline: candidate pool built",
		zap.String("date", dayKey),
		zap.Int("fetched", len(leads)),
		zap.Int("out_of_range", outOfRange),
		zap.Int("pool", len(pool)),
	)

	in, carried, err := p.buildFilterInput(ctx, period, dayKey, ref)
	if err != nil {
		return nil, err
	}

	filtered := Filter(pool, p.cfg.Rules, in)
	if len(filtered.LifetimeAdds) > 0 && !p.dryRun {
		if err := p.store.AddLifetimeBlacklist(ctx, filtered.LifetimeAdds, "identity_mismatch"); err != nil {
			zap.L().Error("pipeline: lifetime blacklist write failed", zap.Error(err))
		}
	}

	high, general := Split(filtered.Kept, p.cfg.Windows, p.cfg.Tier)
	alloc := Allocate(general, p.cfg.Callers, p.cfg.RawMixWeights(), p.cfg.Windows, sources, p.cfg.App.PerCallerTarget)

	// Reruns within the day keep the already-compiled rows: the filter's
	// compiled-today rule drops those leads from the fresh pool, so the
	// day's output is the carried rows plus whatever is genuinely new.
	highRows := append(carried[model.TierHighValue], BuildHighValueRows(high, dayKey)...)
	generalRows := append(carried[model.TierGeneral], BuildGeneralRows(alloc.Rows, dayKey)...)

	report := &Report{
		HighValue: buildStats(model.TierHighValue, dayKey, len(pool), filtered, highRows, nil),
		General:   buildStats(model.TierGeneral, dayKey, len(pool), filtered, generalRows, &alloc),
	}

	if p.dryRun {
		zap.L().Info("dry run, skipping all writes",
			zap.Int("high_value_rows", len(highRows)),
			zap.Int("general_rows", len(generalRows)),
		)
		return report, nil
	}

	// Persist per tier, then publish the surviving tiers in parallel. One
	// tier failing never blocks the other.
	outputs := []struct {
		tier model.Tier
		rows []model.OutputRow
	}{
		{model.TierHighValue, highRows},
		{model.TierGeneral, generalRows},
	}

	var tierErrs []error
	g, gCtx := errgroup.WithContext(ctx)
	for _, out := range outputs {
		if err := p.store.ReplaceDay(ctx, out.tier, period, dayKey, out.rows); err != nil {
			zap.L().Error("pipeline: history merge failed",
				zap.String("tier", string(out.tier)),
				zap.Error(err),
			)
			tierErrs = append(tierErrs, err)
			continue
		}
		tier, rows := out.tier, out.rows
		g.Go(func() error {
			p.publish(gCtx, tier, period, dayKey, rows)
			return nil
		})
	}
	_ = g.Wait()

	p.recordStats(ctx, dayKey, report)

	if len(tierErrs) == len(outputs) {
		return report, eris.Wrap(tierErrs[0], "pipeline: all tier outputs failed")
	}
	return report, nil
}

func (p *Pipeline) buildFilterInput(ctx context.Context, period, dayKey string, ref time.Time) (FilterInput, map[model.Tier][]model.OutputRow, error) {
	in := FilterInput{
		Blacklist: p.cfg.Blacklist,
		TodayKey:  dayKey,
	}
	carried := make(map[model.Tier][]model.OutputRow, 2)

	for _, tier := range []model.Tier{model.TierHighValue, model.TierGeneral} {
		rows, err := p.store.HistoryForPeriod(ctx, tier, period)
		if err != nil {
			return in, nil, eris.Wrapf(err, "pipeline: read %s history", tier)
		}
		in.History = append(in.History, rows...)
		for _, r := range rows {
			if r.AssignDate == dayKey {
				carried[tier] = append(carried[tier], r)
			}
		}
	}

	lifetime, err := p.store.LifetimeBlacklist(ctx)
	if err != nil {
		return in, nil, eris.Wrap(err, "pipeline: read lifetime blacklist")
	}
	in.Lifetime = lifetime

	redeemed, err := p.redemptions.RedeemedToday(ctx, ref)
	if err != nil {
		// Degraded: the redeemed-today rule sees an empty set this run.
		zap.L().Warn("pipeline: redemption lookup failed", zap.Error(err))
		redeemed = map[string]bool{}
	}
	in.RedeemedToday = redeemed

	return in, carried, nil
}

// publish writes the tier's workbook and fires its notification. Both are
// collaborator calls; either failing is logged and absorbed.
func (p *Pipeline) publish(ctx context.Context, tier model.Tier, period, dayKey string, rows []model.OutputRow) {
	if p.sink == nil {
		zap.L().Info("pipeline: no sink configured, holding output",
			zap.String("tier", string(tier)),
			zap.Int("rows", len(rows)),
		)
		return
	}

	location, err := p.sink.WriteDaily(ctx, tier, period, dayKey, rows)
	if err != nil {
		zap.L().Error("pipeline: sink write failed",
			zap.String("tier", string(tier)),
			zap.Error(err),
		)
	}

	if n, ok := p.notifiers[tier]; ok && n != nil {
		if err := n.Notify(ctx, notify.Summary{
			Tier:     string(tier),
			FileName: location,
			TabName:  dayKey,
			RowCount: len(rows),
			Location: location,
		}); err != nil {
			zap.L().Warn("pipeline: notify failed",
				zap.String("tier", string(tier)),
				zap.Error(err),
			)
		}
	}
}

func (p *Pipeline) recordStats(ctx context.Context, dayKey string, report *Report) {
	for _, stats := range []model.RunStats{report.HighValue, report.General} {
		if _, err := p.store.RecordRun(ctx, dayKey, stats); err != nil {
			zap.L().Warn("pipeline: record run failed",
				zap.String("tier", string(stats.Tier)),
				zap.Error(err),
			)
		}
	}
}

func buildStats(tier model.Tier, dayKey string, poolSize int, filtered FilterResult, rows []model.OutputRow, alloc *AllocationResult) model.RunStats {
	stats := model.RunStats{
		Tier:         tier,
		RunDate:      dayKey,
		PoolSize:     poolSize,
		Kept:         len(filtered.Kept),
		DropCounts:   filtered.DropCounts,
		WindowCounts: make(map[string]int),
		RowsWritten:  len(rows),
	}
	for _, r := range rows {
		stats.WindowCounts[r.Window]++
	}
	if alloc != nil {
		stats.TargetRows = alloc.TargetRows
		stats.TargetBySrc = alloc.TargetBySrc
		stats.ActualBySrc = alloc.ActualBySrc
		stats.CallerCounts = alloc.CallerCounts
		stats.Unassigned = alloc.Unassigned
	}
	return stats
}
