package cli

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/turtacn/OperaLab/internal/app"
	"github.com/turtacn/OperaLab/internal/config"
	"github.com/turtacn/OperaLab/internal/infrastructure/monitoring/logging"
	httpapi "github.com/turtacn/OperaLab/internal/interfaces/http"
	"github.com/turtacn/OperaLab/internal/interfaces/http/handlers"
	"github.com/turtacn/OperaLab/internal/interfaces/http/middleware"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(cc *CLIContext, a *app.App) error {
				cfg := a.Config.Server
				if port > 0 {
					cfg.Port = port
				}
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				if err := followLogLevel(cc.configPath, cc.Logger, cc.Config.Log.Level); err != nil {
					cc.Logger.Warn("config reload disabled", logging.Err(err))
				}

				srv := httpapi.NewServer(cfg, NewRouter(a), a.Logger)
				errCh := make(chan error, 1)
				go func() { errCh <- srv.Start() }()

				select {
				case err := <-errCh:
					return err
				case <-ctx.Done():
				}
				cc.Logger.Info("shutdown signal received")
				return srv.Stop(context.Background())
			})
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default: server.port)")
	return cmd
}

// NewRouter builds the API route tree over a wired application.
func NewRouter(a *app.App) *gin.Engine {
	cfg := a.Config
	gin.SetMode(cfg.Server.Mode)

	checks := a.HealthChecks()
	checkers := make([]handlers.HealthChecker, 0, len(checks))
	for _, c := range checks {
		checkers = append(checkers, c)
	}

	rc := httpapi.RouterConfig{
		EvaluationHandler: handlers.NewEvaluationHandler(a.Reports, a.Evaluator, a.Reader),
		CatalogHandler:    handlers.NewCatalogHandler(a.Catalog),
		ReportHandler:     handlers.NewReportHandler(a.Reports),
		HealthHandler:     handlers.NewHealthHandler(Version, checkers...),
		Logger:            a.Logger,
		Metrics:           a.Metrics,
		MaxBodySize:       cfg.Server.MaxBodySize,
		CORSOrigins:       cfg.Server.CORSOrigins,
	}
	if cfg.Metrics.Enabled {
		rc.MetricsCollector = a.Collector
		rc.MetricsPath = cfg.Metrics.Path
	}
	if rl := cfg.Server.RateLimit; rl.Enabled {
		limits := middleware.DefaultRateLimitConfig()
		limits.RequestsPerSecond = rl.RequestsPerSecond
		limits.Burst = rl.Burst
		if cfg.Metrics.Path != "" {
			limits.SkipPaths = append(limits.SkipPaths, cfg.Metrics.Path)
		}
		rc.RateLimiter = middleware.NewLimiter(limits)
		a.Logger.Info("rate limiting enabled",
			logging.Float64("rps", rl.RequestsPerSecond),
			logging.Int("burst", rl.Burst))
	}
	return httpapi.NewRouter(rc)
}

// followLogLevel applies log.level from path to logger each time the file
// changes.  current is log.level as first loaded: the logger keeps its startup
// level, which may come from a flag, until the file names a different one.
// Nothing is watched when path is empty.
func followLogLevel(path string, logger logging.Logger, current string) error {
	if path == "" {
		return nil
	}
	applied := current
	return config.Watch(path, func(cfg *config.Config) {
		if strings.EqualFold(cfg.Log.Level, applied) {
			return
		}
		applied = cfg.Log.Level
		if logging.SetLevel(logger, applied) {
			logger.Info("log level reloaded", logging.String("level", applied))
		}
	}, func(err error) {
		logger.Warn("ignoring invalid config revision", logging.Err(err))
	})
}
