package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"schoolbus/internal/domain"
	"schoolbus/internal/services"
	"schoolbus/internal/utils"

	"github.com/spf13/cobra"
)

// ScheduleCmd creates the schedule command
func ScheduleCmd(app *AppContext) *cobra.Command {
	var driver int64
	var from, to string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show a driver's trips grouped per day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if driver <= 0 {
				return fmt.Errorf("--driver must be positive")
			}
			loc := app.clock()().Location()
			fromDate, err := optionalDate("from", from, loc)
			if err != nil {
				return err
			}
			toDate, err := optionalDate("to", to, loc)
			if err != nil {
				return err
			}

			store, err := app.Store()
			if err != nil {
				return err
			}
			q := services.ScheduleQueryService{Store: store, Clock: app.clock(), RequestID: "cli"}
			ws, err := q.WeeklySchedule(app.context(), domain.ID(driver), fromDate, toDate)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(app.out())
				enc.SetIndent("", "  ")
				return enc.Encode(ws)
			}
			printSchedule(app, ws)
			return nil
		},
	}

	cmd.Flags().Int64Var(&driver, "driver", 0, "Driver ID")
	cmd.Flags().StringVar(&from, "from", "", "First day (YYYY-MM-DD), defaults to this week")
	cmd.Flags().StringVar(&to, "to", "", "Last day (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of text")
	_ = cmd.MarkFlagRequired("driver")

	return cmd
}

func optionalDate(flag, raw string, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := utils.ParseDate(raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: expected YYYY-MM-DD", flag)
	}
	return d, nil
}

func printSchedule(app *AppContext, ws services.WeeklySchedule) {
	w := app.out()
	fmt.Fprintf(w, "Schedule %s to %s (%d trips)\n\n", ws.From, ws.To, ws.Trips)
	for _, day := range ws.Days {
		fmt.Fprintf(w, "%s %s\n", day.Date, day.Weekday)
		if len(day.Trips) == 0 {
			fmt.Fprintln(w, "  no trips")
			continue
		}
		for _, t := range day.Trips {
			start := utils.FirstNonEmpty(t.ScheduledStartTime, "--:--")
			fmt.Fprintf(w, "  #%-5d %-19s %-5s %-11s %s", t.TripID, t.ShiftLabel, start, t.Status, utils.FirstNonEmpty(t.RouteName, "(no route)"))
			if t.FirstStop != "" {
				fmt.Fprintf(w, " [%s -> %s]", t.FirstStop, t.LastStop)
			}
			fmt.Fprintln(w)
		}
	}
}
