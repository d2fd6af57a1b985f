package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/telesales-cli/internal/calendar"
)

var holidaysDate string

var holidaysCmd = &cobra.Command{
	Use:   "holidays",
	Short: "Show the configured holidays and whether a date would run",
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := cfg.App.Location()
		if err != nil {
			return err
		}

		ref := time.Now().In(loc)
		if holidaysDate != "" {
			ref, err = time.ParseInLocation("2006-01-02", holidaysDate, loc)
			if err != nil {
				return eris.Wrapf(err, "parse --date %q", holidaysDate)
			}
		}

		holidays := cfg.HolidayDates(loc)
		if len(holidays) == 0 {
			fmt.Println("no holidays configured")
		}
		for _, h := range holidays {
			fmt.Printf("holiday  %s (%s)\n", h.Format("2006-01-02"), h.Weekday())
		}

		gate := calendar.NewGate(cfg.App.IncludeWeekends, holidays)
		if ok, reason := gate.ShouldRun(ref); ok {
			fmt.Printf("%s: run\n", calendar.DayKey(ref))
		} else {
			fmt.Printf("%s: skip (%s)\n", calendar.DayKey(ref), reason)
		}
		return nil
	},
}

func init() {
	holidaysCmd.Flags().StringVar(&holidaysDate, "date", "", "date to check, YYYY-MM-DD (default today)")
	rootCmd.AddCommand(holidaysCmd)
}
