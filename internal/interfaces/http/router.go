// Package http exposes the validation engine as a JSON API.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/OperaLab/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OperaLab/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/OperaLab/internal/interfaces/http/handlers"
	"github.com/turtacn/OperaLab/internal/interfaces/http/middleware"
)

// RouterConfig aggregates all handler and middleware dependencies required
// to construct the complete HTTP route tree.
type RouterConfig struct {
	// Handlers
	EvaluationHandler *handlers.EvaluationHandler
	CatalogHandler    *handlers.CatalogHandler
	ReportHandler     *handlers.ReportHandler
	HealthHandler     *handlers.HealthHandler

	// Infrastructure
	Logger           logging.Logger
	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector

	// MetricsPath is where the collector is served; empty disables it.
	MetricsPath string

	// MaxBodySize caps request bodies in bytes; 0 is unlimited.
	MaxBodySize int64

	// CORSOrigins enables CORS for the listed origins.
	CORSOrigins []string

	// RateLimiter, when set, throttles requests per client.
	RateLimiter *middleware.Limiter
}

// NewRouter constructs the complete HTTP route tree from the given
// configuration.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogging(cfg.Logger, middleware.DefaultLoggingConfig()))
	r.Use(middleware.Metrics(cfg.Metrics))
	if len(cfg.CORSOrigins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = cfg.CORSOrigins
		r.Use(middleware.CORS(cors))
	}
	if cfg.RateLimiter != nil {
		r.Use(middleware.RateLimit(cfg.RateLimiter))
	}
	if cfg.MaxBodySize > 0 {
		r.Use(limitBody(cfg.MaxBodySize))
	}

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil && cfg.MetricsPath != "" {
		r.GET(cfg.MetricsPath, gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	api := r.Group("/api/v1")
	registerEvaluationRoutes(api, cfg.EvaluationHandler)
	registerCatalogRoutes(api, cfg.CatalogHandler)
	registerReportRoutes(api, cfg.ReportHandler)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{Code: "COMMON_005", Message: "route not found"})
	})
	return r
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

func registerEvaluationRoutes(r *gin.RouterGroup, h *handlers.EvaluationHandler) {
	if h == nil {
		return
	}
	r.POST("/evaluations", h.Evaluate)
	r.POST("/duplicates", h.Duplicates)
	r.POST("/legislation/:name", h.Legislation)
	r.POST("/exports", h.Export)
}

func registerCatalogRoutes(r *gin.RouterGroup, h *handlers.CatalogHandler) {
	if h == nil {
		return
	}
	r.GET("/regulations", h.List)
	r.GET("/regulations/:name", h.Get)
}

func registerReportRoutes(r *gin.RouterGroup, h *handlers.ReportHandler) {
	if h == nil {
		return
	}
	r.GET("/reports/:id", h.Get)
	r.GET("/reports/:id/tables/:table", h.Table)
}
