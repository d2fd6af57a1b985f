package pipeline

import (
	"go.uber.org/zap"

	"github.com/sells-group/telesales-cli/internal/config"
	"github.com/sells-group/telesales-cli/internal/model"
)

// Drop reason names, reported as counter keys.
const (
	DropBlacklist     = "blacklist"
	DropCompiledToday = "compiled_today"
	DropRedeemedToday = "redeemed_today"
	DropUnreachable   = "unreachable_repeat"
	DropAnswered      = "answered_this_period"
	DropNotInterested = "not_interested_this_period"
	DropInvalidPhone  = "invalid_phone"
)

// FilterInput is the snapshot of side data the rules consult. History holds
// this period's compile rows across both tiers.
type FilterInput struct {
	History       []model.OutputRow
	Blacklist     []model.BlacklistEntry
	Lifetime      []model.BlacklistEntry
	RedeemedToday map[string]bool // usernames redeemed on the reference date
	TodayKey      string          // DD-MM-YYYY
}

// FilterResult returns the kept pool, per-rule drop counts for every enabled
// rule (zeros included), and the identity-mismatch leads to be added to the
// lifetime blacklist. Dropped + kept always equals the input size.
type FilterResult struct {
	Kept         []model.Lead
	DropCounts   map[string]int
	LifetimeAdds []model.BlacklistEntry
}

type dropRule struct {
	name  string
	match func(model.Lead) bool
}

// Filter applies the ordered drop-rule sequence over the candidate pool.
// A lead is dropped by the first matching rule only; later rules never
// re-evaluate it, so no drop is double-counted.
func Filter(pool []model.Lead, cfg config.RulesConfig, in FilterInput) FilterResult {
	blocked := make(map[string]bool, len(in.Blacklist)+len(in.Lifetime))
	for _, b := range in.Blacklist {
		blocked[b.Key()] = true
	}
	for _, b := range in.Lifetime {
		blocked[b.Key()] = true
	}

	// Identity-mismatch outcomes in history behave like blacklist hits and
	// additionally poison the lead for all future runs.
	notOwner := make(map[string]bool)
	if cfg.DropNotOwnerAsBlacklist {
		for _, row := range in.History {
			if row.Result == model.ResultNotOwner {
				notOwner[row.TripleKey()] = true
			}
		}
	}

	compiledToday := make(map[string]bool)
	unreachable := make(map[string]int)
	answered := make(map[string]bool)
	notInterested := make(map[string]bool)
	deadNumber := make(map[string]bool)
	for _, row := range in.History {
		key := row.TripleKey()
		if row.AssignDate == in.TodayKey {
			compiledToday[key] = true
		}
		if model.UnreachableStatuses[row.AnswerStatus] {
			unreachable[key]++
		}
		if row.AnswerStatus == model.StatusAnswered {
			answered[key] = true
		}
		if row.Result == model.ResultNotInterested {
			notInterested[key] = true
		}
		if row.Result == model.ResultInvalidNumber {
			deadNumber[key] = true
		}
	}

	var rules []dropRule
	if cfg.DropBlacklist {
		rules = append(rules, dropRule{DropBlacklist, func(l model.Lead) bool {
			return blocked[l.Key()] || notOwner[l.Key()]
		}})
	}
	if cfg.DropCompiledToday {
		rules = append(rules, dropRule{DropCompiledToday, func(l model.Lead) bool {
			return compiledToday[l.Key()]
		}})
	}
	if cfg.DropRedeemedToday {
		rules = append(rules, dropRule{DropRedeemedToday, func(l model.Lead) bool {
			return in.RedeemedToday[l.Username]
		}})
	}
	if cfg.DropUnreachableRepeat {
		rules = append(rules, dropRule{DropUnreachable, func(l model.Lead) bool {
			return unreachable[l.Key()] >= cfg.UnreachableMinCount
		}})
	}
	if cfg.DropAnsweredThisMonth {
		rules = append(rules, dropRule{DropAnswered, func(l model.Lead) bool {
			return answered[l.Key()]
		}})
	}
	if cfg.DropNotInterestedMonth {
		rules = append(rules, dropRule{DropNotInterested, func(l model.Lead) bool {
			return notInterested[l.Key()]
		}})
	}
	if cfg.DropInvalidNumber {
		minDigits := cfg.MinPhoneDigits
		if minDigits <= 0 {
			minDigits = 9
		}
		rules = append(rules, dropRule{DropInvalidPhone, func(l model.Lead) bool {
			return len(l.Phone) < minDigits || deadNumber[l.Key()]
		}})
	}

	res := FilterResult{
		Kept:       make([]model.Lead, 0, len(pool)),
		DropCounts: make(map[string]int, len(rules)),
	}
	for _, r := range rules {
		res.DropCounts[r.name] = 0
	}

	seenLifetime := make(map[string]bool)
	for _, lead := range pool {
		dropped := false
		for _, r := range rules {
			if !r.match(lead) {
				continue
			}
			res.DropCounts[r.name]++
			if r.name == DropBlacklist && notOwner[lead.Key()] && !blocked[lead.Key()] && !seenLifetime[lead.Key()] {
				seenLifetime[lead.Key()] = true
				res.LifetimeAdds = append(res.LifetimeAdds, model.BlacklistEntry{
					Username: lead.Username,
					Phone:    lead.Phone,
					Source:   lead.Source,
				})
			}
			dropped = true
			break
		}
		if !dropped {
			res.Kept = append(res.Kept, lead)
		}
	}

	zap.L().Debug("filter applied",
		zap.Int("pool", len(pool)),
		zap.Int("kept", len(res.Kept)),
		zap.Any("drops", res.DropCounts),
	)

	return res
}
