package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"schoolbus/internal/events"
	api "schoolbus/internal/http"
	h "schoolbus/internal/http/handlers"
	"schoolbus/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ServeCmd creates the serve command
func ServeCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := app.Env
			if env.GinMode != "" {
				gin.SetMode(env.GinMode)
			}

			store, err := app.Store()
			if err != nil {
				return err
			}

			var collector *metrics.Collector
			var pubMetrics events.PublisherMetrics
			eng := h.Engine{Store: store, Clock: app.clock()}
			if env.MetricsEnabled {
				collector = metrics.NewCollector()
				pubMetrics = collector
				eng.Metrics = collector
			}

			pub, err := events.NewPublisher(env, app.logger(), pubMetrics)
			if err != nil {
				return err
			}
			defer pub.Close()
			eng.Events = pub

			srv := &http.Server{
				Addr:              env.AppAddr,
				Handler:           api.NewRouter(env, eng, collector),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       20 * time.Second,
				WriteTimeout:      20 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			ctx, stop := signal.NotifyContext(app.context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				app.logger().Info("server listening", zap.String("addr", env.AppAddr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-ctx.Done():
			}

			app.logger().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			app.logger().Info("server stopped")
			return nil
		},
	}
}
