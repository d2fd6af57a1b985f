package pipeline

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/telesales-cli/internal/model"
)

// NormalizeMixWeights turns raw per-source weights into target fractions.
// Any entry that is missing, non-positive, NaN or infinite is replaced by an
// equal split across sources, then all weights are rescaled to sum to 1.0.
func NormalizeMixWeights(raw map[model.SourceKey]float64, sources []model.SourceKey) map[model.SourceKey]float64 {
	if len(sources) == 0 {
		return map[model.SourceKey]float64{}
	}
	equal := 1.0 / float64(len(sources))

	out := make(map[model.SourceKey]float64, len(sources))
	sum := 0.0
	for _, src := range sources {
		w, ok := raw[src]
		if !ok || w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			w = equal
		}
		out[src] = w
		sum += w
	}
	for src := range out {
		out[src] /= sum
	}
	return out
}

// SourceTargets apportions a total row count across sources by target
// fraction. Every source but the last gets round(fraction*total); the last
// absorbs the rounding drift so the counts sum to exactly total.
func SourceTargets(total int, weights map[model.SourceKey]float64, sources []model.SourceKey) map[model.SourceKey]int {
	targets := make(map[model.SourceKey]int, len(sources))
	if total <= 0 || len(sources) == 0 {
		for _, src := range sources {
			targets[src] = 0
		}
		return targets
	}

	assigned := 0
	for i, src := range sources {
		if i == len(sources)-1 {
			last := total - assigned
			if last < 0 {
				last = 0
			}
			targets[src] = last
			assigned += last
			break
		}
		n := int(math.Round(weights[src] * float64(total)))
		if n > total-assigned {
			n = total - assigned
		}
		targets[src] = n
		assigned += n
	}
	return targets
}

// AllocationResult carries the assigned rows plus the intended-vs-actual
// split the run always reports.
type AllocationResult struct {
	Rows         []model.Lead
	TargetRows   int
	TargetBySrc  map[model.SourceKey]int
	ActualBySrc  map[model.SourceKey]int
	CallerCounts map[string]int
	Unassigned   int
}

// Allocate distributes General-tier rows across available callers.
//
// When no caller is available every row is emitted with an empty caller
// field; that is a valid terminal outcome, not an error. Otherwise each
// source's quota is filled from its most-recent window first, escalating to
// older windows (ascending priority number) on shortfall, and the selected
// rows are spread round-robin across callers. Shortfalls degrade to partial
// output and show up in the result's target/actual counts.
func Allocate(
	general []model.Lead,
	callers []model.Caller,
	rawWeights map[model.SourceKey]float64,
	windows []model.Window,
	sources []model.SourceKey,
	perCallerTarget int,
) AllocationResult {
	res := AllocationResult{
		ActualBySrc:  make(map[model.SourceKey]int, len(sources)),
		CallerCounts: make(map[string]int),
	}

	weights := NormalizeMixWeights(rawWeights, sources)

	avail := model.AvailableCallers(callers)
	if len(avail) == 0 {
		res.TargetRows = len(general)
		res.TargetBySrc = SourceTargets(len(general), weights, sources)
		res.Rows = make([]model.Lead, len(general))
		for i, l := range general {
			l.Caller = ""
			res.Rows[i] = l
			res.ActualBySrc[l.Source]++
		}
		res.Unassigned = len(res.Rows)
		zap.L().Info("allocate: no callers available, emitting unassigned rows",
			zap.Int("rows", len(res.Rows)),
		)
		return res
	}

	target := len(general)
	if perCallerTarget > 0 && len(avail)*perCallerTarget < target {
		target = len(avail) * perCallerTarget
	}
	res.TargetRows = target
	res.TargetBySrc = SourceTargets(target, weights, sources)

	ordered := orderedByPriority(windows)

	// Pools per source per window label, in arrival order.
	pools := make(map[model.SourceKey]map[string][]model.Lead, len(sources))
	for _, src := range sources {
		pools[src] = make(map[string][]model.Lead)
	}
	for _, l := range general {
		if byWindow, ok := pools[l.Source]; ok {
			byWindow[l.Window] = append(byWindow[l.Window], l)
		}
	}

	next := 0 // round-robin position, carried across sources
	for _, src := range sources {
		quota := res.TargetBySrc[src]
		var selected []model.Lead
		for _, w := range ordered {
			if len(selected) >= quota {
				break
			}
			pool := pools[src][w.Label]
			take := quota - len(selected)
			if take > len(pool) {
				take = len(pool)
			}
			selected = append(selected, pool[:take]...)
		}

		if len(selected) < quota {
			zap.L().Warn("allocate: source shortfall",
				zap.String("source", string(src)),
				zap.Int("target", quota),
				zap.Int("actual", len(selected)),
			)
		}

		for i := range selected {
			selected[i].Caller = avail[next%len(avail)]
			res.CallerCounts[selected[i].Caller]++
			next++
		}
		res.ActualBySrc[src] = len(selected)
		res.Rows = append(res.Rows, selected...)
	}

	return res
}

func orderedByPriority(windows []model.Window) []model.Window {
	ordered := make([]model.Window, len(windows))
	copy(ordered, windows)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})
	return ordered
}
