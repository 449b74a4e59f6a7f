package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	intconfig "schoolbus/internal/config"
	"schoolbus/internal/services"

	"go.uber.org/zap"
)

// AppContext holds the dependencies shared across all commands.
type AppContext struct {
	Env    intconfig.Env
	DB     *sql.DB
	Logger *zap.Logger
	Ctx    context.Context
	Out    io.Writer
	Clock  services.Clock
}

// Store returns the SQL-backed store, connecting on first use so that
// commands without database work never dial it.
func (a *AppContext) Store() (services.SQLStore, error) {
	if a.DB == nil {
		db, err := intconfig.ConnectDB(a.context(), a.Env)
		if err != nil {
			return services.SQLStore{}, fmt.Errorf("failed to connect database: %w", err)
		}
		a.DB = db
	}
	return services.SQLStore{DB: a.DB}, nil
}

func (a *AppContext) context() context.Context {
	if a.Ctx == nil {
		return context.Background()
	}
	return a.Ctx
}

func (a *AppContext) out() io.Writer {
	if a.Out == nil {
		return os.Stdout
	}
	return a.Out
}

func (a *AppContext) clock() services.Clock {
	if a.Clock == nil {
		return services.SystemClock(a.Env.Location)
	}
	return a.Clock
}

func (a *AppContext) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}
