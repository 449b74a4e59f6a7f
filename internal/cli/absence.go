package cli

import (
	"context"
	"fmt"

	"schoolbus/internal/domain"
	"schoolbus/internal/domain/models"
	"schoolbus/internal/events"
	"schoolbus/internal/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type absenceFunc func(s services.AttendanceService, ctx context.Context, tripID, studentID domain.ID) (models.TripStudent, error)

// AbsenceCmd groups the operator absence commands. Operators are not scoped
// to a driver.
func AbsenceCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "absence",
		Short: "Record or reverse a student absence",
	}

	cmd.AddCommand(absenceSubCmd(app, "mark", "Mark a pending student absent",
		func(s services.AttendanceService, ctx context.Context, tripID, studentID domain.ID) (models.TripStudent, error) {
			return s.MarkAbsent(ctx, 0, tripID, studentID)
		}))
	cmd.AddCommand(absenceSubCmd(app, "reverse", "Put an absent student back to pending",
		func(s services.AttendanceService, ctx context.Context, tripID, studentID domain.ID) (models.TripStudent, error) {
			return s.ReverseAbsence(ctx, 0, tripID, studentID)
		}))

	return cmd
}

func absenceSubCmd(app *AppContext, use, short string, run absenceFunc) *cobra.Command {
	var tripID, studentID int64
	var reason string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if tripID <= 0 || studentID <= 0 {
				return fmt.Errorf("--trip and --student must be positive")
			}
			store, err := app.Store()
			if err != nil {
				return err
			}
			pub, err := events.NewPublisher(app.Env, app.logger(), nil)
			if err != nil {
				return err
			}
			defer pub.Close()

			svc := services.AttendanceService{Store: store, Events: pub, Clock: app.clock(), RequestID: "cli"}
			ts, err := run(svc, app.context(), domain.ID(tripID), domain.ID(studentID))
			if err != nil {
				return err
			}
			if reason != "" {
				app.logger().Info("absence reason", zap.Int64("trip_id", tripID), zap.Int64("student_id", studentID), zap.String("reason", reason))
			}

			fmt.Fprintf(app.out(), "✓ trip %d student %d is now %s\n", ts.TripID, ts.StudentID, ts.Status)
			return nil
		},
	}

	cmd.Flags().Int64Var(&tripID, "trip", 0, "Trip ID")
	cmd.Flags().Int64Var(&studentID, "student", 0, "Student ID")
	cmd.Flags().StringVar(&reason, "reason", "", "Free-text reason, logged only")
	_ = cmd.MarkFlagRequired("trip")
	_ = cmd.MarkFlagRequired("student")

	return cmd
}
