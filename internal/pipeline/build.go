package pipeline

import (
	"strconv"

	"github.com/sells-group/telesales-cli/internal/model"
)

// BuildHighValueRows maps High-Value leads to output rows. High-Value output
// never carries a caller assignment.
func BuildHighValueRows(leads []model.Lead, dayKey string) []model.OutputRow {
	rows := make([]model.OutputRow, 0, len(leads))
	for _, l := range leads {
		rows = append(rows, model.OutputRow{
			AssignDate:   dayKey,
			Username:     l.Username,
			Phone:        l.Phone,
			Source:       l.Source,
			Tier:         l.DeclaredTier,
			Window:       l.Window,
			InactiveDays: l.InactiveDays,
			Amount:       formatOptional(l.TopupAmount),
			ArkGem:       formatOptional(l.ArkGemBalance),
			RewardRank:   l.RewardRank,
		})
	}
	return rows
}

// BuildGeneralRows maps General-tier leads to output rows. The phone stays
// in canonical digit-only form (identity for the idempotent merge); the
// Thailand calling-code split is applied by the sheet writer at render time.
// The caller field is whatever allocation set, possibly empty.
func BuildGeneralRows(leads []model.Lead, dayKey string) []model.OutputRow {
	rows := make([]model.OutputRow, 0, len(leads))
	for _, l := range leads {
		code, _ := SplitCallingCodeTH(l.Phone)
		rows = append(rows, model.OutputRow{
			AssignDate:   dayKey,
			Username:     l.Username,
			CallingCode:  code,
			Phone:        l.Phone,
			Source:       l.Source,
			Tier:         l.DeclaredTier,
			Window:       l.Window,
			InactiveDays: l.InactiveDays,
			RewardRank:   l.RewardRank,
			Telesale:     l.Caller,
		})
	}
	return rows
}

// formatOptional renders an optional numeric as a cell value; absent stays
// blank rather than zero so first-period sheets distinguish "no data".
func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
