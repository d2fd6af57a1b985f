package pipeline

import "github.com/sells-group/telesales-cli/internal/model"

// Merge reconciles a day's computed output against the running compile
// history: every history row whose assign date matches date is removed, then
// all of todays is appended. Applying the same day's rows twice yields the
// same history as applying them once.
func Merge(history, todays []model.OutputRow, date string) []model.OutputRow {
	out := make([]model.OutputRow, 0, len(history)+len(todays))
	for _, row := range history {
		if row.AssignDate != date {
			out = append(out, row)
		}
	}
	return append(out, todays...)
}
