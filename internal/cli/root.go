package cli

import (
	"context"
	"fmt"
	"os"

	intconfig "schoolbus/internal/config"
	"schoolbus/internal/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRootCmd builds the schoolbus command tree. app is populated by the
// persistent pre-run hook before any subcommand executes.
func NewRootCmd(app *AppContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "schoolbus",
		Short:         "School bus trip and attendance engine",
		Long:          `Serves the driver API and runs operator tasks against the trip and attendance ledger.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd.Context(), app)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Logger != nil {
				_ = app.Logger.Sync()
			}
			intconfig.CloseDB()
		},
	}

	rootCmd.AddCommand(ServeCmd(app))
	rootCmd.AddCommand(MigrateCmd(app))
	rootCmd.AddCommand(AbsenceCmd(app))
	rootCmd.AddCommand(ScheduleCmd(app))

	return rootCmd
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	app := &AppContext{}
	if err := NewRootCmd(app).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initApp(ctx context.Context, app *AppContext) error {
	if ctx == nil {
		ctx = context.Background()
	}
	app.Ctx = ctx

	env, err := intconfig.LoadEnv()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Env = env

	app.Logger, err = utils.InitLogger(env.LogLevel, env.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger.Debug("configuration loaded",
		zap.String("db_driver", env.DBDriver),
		zap.String("events_backend", env.EventsBackend),
		zap.String("tz", env.Location.String()),
	)
	return nil
}
