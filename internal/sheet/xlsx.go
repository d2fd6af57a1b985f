// Package sheet writes the monthly output workbooks: one file per tier per
// period, a tab per day, and a Compile tab maintained with the replace-day
// merge so re-runs never duplicate rows.
package sheet

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/telesales-cli/internal/model"
	"github.com/sells-group/telesales-cli/internal/pipeline"
)

const compileTab = "Compile"

// Header schemas per tier, locked to the calling team's sheet layout.
var (
	highValueHeaders = []string{
		"No.", "username", "Phone Number", "Source", "Tier",
		"Inactive Duration (Days)", "amount", "Ark Gem", "Reward", "Assign Date",
	}
	generalHeaders = []string{
		"No.", "Username", "Calling Code", "Phone Number", "Source", "Tier",
		"Inactive Duration (Days)", "Reward Rank", "Telesale", "Assign Date",
		"Recall Date/Time", "Call Status", "Answer Status", "Result",
	}
)

// Writer is the xlsx output sink.
type Writer struct {
	Dir    string
	Prefix string
}

// NewWriter builds a sink writing workbooks under dir.
func NewWriter(dir, prefix string) *Writer {
	if prefix == "" {
		prefix = "CBTH"
	}
	return &Writer{Dir: dir, Prefix: prefix}
}

// WorkbookPath returns the monthly file path for a tier and period (MM-YYYY).
func (w *Writer) WorkbookPath(tier model.Tier, period string) string {
	return filepath.Join(w.Dir, w.Prefix+"-"+string(tier)+" - "+period+".xlsx")
}

// WriteDaily writes the day tab and upserts the Compile tab in the tier's
// monthly workbook, creating the workbook on first write of the month.
// Existing day tabs for other dates are preserved.
func (w *Writer) WriteDaily(_ context.Context, tier model.Tier, period, date string, rows []model.OutputRow) (string, error) {
	path := w.WorkbookPath(tier, period)

	existing, compileRows, err := readWorkbook(path, tier)
	if err != nil {
		return "", err
	}

	merged := pipeline.Merge(compileRows, rows, date)

	out := xlsx.NewFile()
	if err := writeRowsSheet(out, compileTab, tier, merged); err != nil {
		return "", err
	}
	if err := writeRowsSheet(out, date, tier, rows); err != nil {
		return "", err
	}
	for name, cells := range existing {
		if name == compileTab || name == date {
			continue
		}
		if err := copySheet(out, name, cells); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "sheet: create output dir %s", w.Dir)
	}
	if err := out.Save(path); err != nil {
		return "", eris.Wrapf(err, "sheet: save %s", path)
	}

	zap.L().Info("sheet: wrote workbook",
		zap.String("path", path),
		zap.String("tab", date),
		zap.Int("rows", len(rows)),
		zap.Int("compile_rows", len(merged)),
	)
	return path, nil
}

// readWorkbook loads all sheets as raw cells plus the parsed Compile rows.
// A missing file means first write of the month and yields empty state.
func readWorkbook(path string, tier model.Tier) (map[string][][]string, []model.OutputRow, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return map[string][][]string{}, nil, nil
	}

	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "sheet: open %s", path)
	}

	sheets := make(map[string][][]string, len(f.Sheets))
	for _, s := range f.Sheets {
		var cells [][]string
		for _, row := range s.Rows {
			line := make([]string, len(row.Cells))
			for j, c := range row.Cells {
				line[j] = c.String()
			}
			cells = append(cells, line)
		}
		sheets[s.Name] = cells
	}

	compileRows := parseRows(sheets[compileTab], tier)
	return sheets, compileRows, nil
}

func headersFor(tier model.Tier) []string {
	if tier == model.TierHighValue {
		return highValueHeaders
	}
	return generalHeaders
}

func writeRowsSheet(f *xlsx.File, name string, tier model.Tier, rows []model.OutputRow) error {
	s, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "sheet: add sheet %s", name)
	}

	headers := headersFor(tier)
	hr := s.AddRow()
	for _, h := range headers {
		hr.AddCell().SetString(h)
	}

	for i, r := range rows {
		cells := renderRow(tier, i+1, r)
		row := s.AddRow()
		for _, c := range cells {
			row.AddCell().SetString(c)
		}
	}
	return nil
}

func copySheet(f *xlsx.File, name string, cells [][]string) error {
	s, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "sheet: add sheet %s", name)
	}
	for _, line := range cells {
		row := s.AddRow()
		for _, c := range line {
			row.AddCell().SetString(c)
		}
	}
	return nil
}

func renderRow(tier model.Tier, no int, r model.OutputRow) []string {
	if tier == model.TierHighValue {
		return []string{
			strconv.Itoa(no), r.Username, r.Phone, string(r.Source), r.Tier,
			strconv.Itoa(r.InactiveDays), r.Amount, r.ArkGem, r.RewardRank, r.AssignDate,
		}
	}
	// Non-A renders the Thailand calling-code split; the canonical phone
	// keeps its leading zero only internally.
	local := strings.TrimPrefix(r.Phone, "0")
	return []string{
		strconv.Itoa(no), r.Username, r.CallingCode, local, string(r.Source), r.Tier,
		strconv.Itoa(r.InactiveDays), r.RewardRank, r.Telesale, r.AssignDate,
		r.RecallAt, r.CallStatus, r.AnswerStatus, r.Result,
	}
}

// parseRows reads a previously written sheet back into output rows. Only the
// fields the merge and a human reviewer need are recovered.
func parseRows(cells [][]string, tier model.Tier) []model.OutputRow {
	if len(cells) < 2 {
		return nil
	}
	var out []model.OutputRow
	for _, line := range cells[1:] {
		if r, ok := parseRow(tier, line); ok {
			out = append(out, r)
		}
	}
	return out
}

func parseRow(tier model.Tier, line []string) (model.OutputRow, bool) {
	get := func(i int) string {
		if i < len(line) {
			return strings.TrimSpace(line[i])
		}
		return ""
	}
	days, _ := strconv.Atoi(get(5))
	if tier == model.TierHighValue {
		r := model.OutputRow{
			Username: get(1), Phone: get(2), Source: model.SourceKey(get(3)),
			Tier: get(4), InactiveDays: days, Amount: get(6), ArkGem: get(7),
			RewardRank: get(8), AssignDate: get(9),
		}
		return r, r.AssignDate != ""
	}
	days, _ = strconv.Atoi(get(6))
	r := model.OutputRow{
		Username: get(1), CallingCode: get(2), Phone: get(3),
		Source: model.SourceKey(get(4)), Tier: get(5), InactiveDays: days,
		RewardRank: get(7), Telesale: get(8), AssignDate: get(9),
		RecallAt: get(10), CallStatus: get(11), AnswerStatus: get(12), Result: get(13),
	}
	return r, r.AssignDate != ""
}
