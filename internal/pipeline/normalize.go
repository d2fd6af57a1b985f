package pipeline

import (
	"strings"

	"github.com/sells-group/telesales-cli/internal/model"
)

// NormalizePhone strips everything but digits. This runs exactly once, at the
// normalizer boundary; the result is the canonical identity field used in
// keys, blacklist matching and dedupe. Never re-normalize downstream.
func NormalizePhone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SplitCallingCodeTH splits a normalized Thai number for output:
// "0931234567" -> ("+66", "931234567").
func SplitCallingCodeTH(digits string) (code, local string) {
	local = strings.TrimPrefix(digits, "0")
	return "+66", local
}

// Normalize converts a raw source record into a canonical Lead. Last login is
// preferred over last seen; if both are missing LastActivity stays zero and
// the classifier excludes the lead as out-of-range. Absent optional fields
// stay nil so downstream rules can tell "no data" from "zero".
func Normalize(raw model.RawLead) model.Lead {
	lead := model.Lead{
		Username:      strings.TrimSpace(raw.Username),
		Phone:         NormalizePhone(raw.Phone),
		Source:        raw.Source,
		TopupAmount:   raw.TopupAmount,
		DeclaredTier:  strings.TrimSpace(raw.DeclaredTier),
		ArkGemBalance: raw.ArkGemBalance,
		RewardRank:    strings.TrimSpace(raw.RewardRank),
	}
	switch {
	case raw.LastLogin != nil:
		lead.LastActivity = *raw.LastLogin
	case raw.LastSeen != nil:
		lead.LastActivity = *raw.LastSeen
	}
	return lead
}

// NormalizeAll maps a batch of raw records.
func NormalizeAll(raws []model.RawLead) []model.Lead {
	leads := make([]model.Lead, 0, len(raws))
	for _, r := range raws {
		leads = append(leads, Normalize(r))
	}
	return leads
}
