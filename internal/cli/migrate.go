package cli

import (
	"fmt"

	intdb "schoolbus/internal/db"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// MigrateCmd creates the migrate command
func MigrateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Store()
			if err != nil {
				return err
			}
			applied, err := intdb.RunMigrations(app.context(), store.DB)
			for _, name := range applied {
				fmt.Fprintf(app.out(), "applied %s\n", name)
			}
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(app.out(), "schema is up to date")
			}
			app.logger().Info("migrations finished", zap.Int("applied", len(applied)))
			return nil
		},
	}
}
