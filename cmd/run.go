package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/telesales-cli/internal/calendar"
	"github.com/sells-group/telesales-cli/internal/pipeline"
)

var (
	runDate   string
	runDryRun bool
	runForce  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daily allocation and publish the workbooks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		loc, err := cfg.App.Location()
		if err != nil {
			return err
		}

		ref := time.Now().In(loc)
		if runDate != "" {
			ref, err = time.ParseInLocation("2006-01-02", runDate, loc)
			if err != nil {
				return eris.Wrapf(err, "parse --date %q", runDate)
			}
		}

		gate := calendar.NewGate(cfg.App.IncludeWeekends, cfg.HolidayDates(loc))
		if ok, reason := gate.ShouldRun(ref); !ok && !runForce {
			zap.L().Info("run skipped",
				zap.String("date", calendar.DayKey(ref)),
				zap.String("reason", reason),
			)
			return nil
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		ld, redemptions, cleanup, err := initLoader(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		p := pipeline.New(cfg, loc, st, ld, redemptions, initSink(), initNotifiers(),
			pipeline.WithDryRun(runDryRun))

		report, err := p.Run(ctx, ref)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("allocation complete",
			zap.String("date", calendar.DayKey(ref)),
			zap.Int("high_value_rows", report.HighValue.RowsWritten),
			zap.Int("general_rows", report.General.RowsWritten),
			zap.Int("unassigned", report.General.Unassigned),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	runCmd.Flags().StringVar(&runDate, "date", "", "reference date YYYY-MM-DD (default today in the configured timezone)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "compute the allocation without writing history, workbooks, or notifications")
	runCmd.Flags().BoolVar(&runForce, "force", false, "run even on weekends and holidays")
	rootCmd.AddCommand(runCmd)
}
