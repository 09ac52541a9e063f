package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/OperaLab/internal/application/reporting"
	"github.com/turtacn/OperaLab/internal/application/validation"
	"github.com/turtacn/OperaLab/internal/domain/measurement"
	"github.com/turtacn/OperaLab/internal/domain/regulation"
	"github.com/turtacn/OperaLab/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OperaLab/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/OperaLab/internal/infrastructure/tabular"
	"github.com/turtacn/OperaLab/internal/interfaces/http/handlers"
	"github.com/turtacn/OperaLab/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, mutate func(*RouterConfig)) *gin.Engine {
	t.Helper()
	cat, err := regulation.NewCatalog(map[string]regulation.Regulation{
		"CONAMA 430": {Limits: map[string]float64{"chumbo": 0.5}, PreferTotal: true},
	}, measurement.DefaultLegalResolver())
	require.NoError(t, err)

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "test"}, logging.NewNopLogger())
	require.NoError(t, err)
	metrics := prometheus.NewAppMetrics(collector)

	ev := validation.NewEvaluator(validation.DefaultOptions(), cat, nil, metrics)
	svc := reporting.NewService(ev, nil, metrics)
	cfg := RouterConfig{
		EvaluationHandler: handlers.NewEvaluationHandler(svc, ev, tabular.NewReader(tabular.DefaultColumnMap())),
		CatalogHandler:    handlers.NewCatalogHandler(cat),
		ReportHandler:     handlers.NewReportHandler(svc),
		HealthHandler:     handlers.NewHealthHandler("test"),
		Metrics:           metrics,
		MetricsCollector:  collector,
		MetricsPath:       "/metrics",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewRouter(cfg)
}

func TestNewRouter_Routes(t *testing.T) {
	r := newTestRouter(t, nil)

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/readyz", "", http.StatusOK},
		{http.MethodGet, "/api/v1/regulations", "", http.StatusOK},
		{http.MethodGet, "/api/v1/regulations/CONAMA%20430", "", http.StatusOK},
		{http.MethodGet, "/api/v1/reports/unknown", "", http.StatusNotFound},
		{http.MethodPost, "/api/v1/evaluations", `{}`, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/duplicates", `{}`, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/legislation/CONAMA%20430", `{}`, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/exports", `{}`, http.StatusBadRequest},
		{http.MethodGet, "/api/v1/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		})
	}
}

func TestNewRouter_ServesMetrics(t *testing.T) {
	r := newTestRouter(t, nil)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/regulations", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_requests_total")
}

func TestNewRouter_NilHandlersNoPanic(t *testing.T) {
	r := NewRouter(RouterConfig{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/regulations", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewRouter_BodyLimit(t *testing.T) {
	r := newTestRouter(t, func(c *RouterConfig) { c.MaxBodySize = 16 })
	body := bytes.Repeat([]byte("x"), 64)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/evaluations", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNewRouter_CORSAndRateLimit(t *testing.T) {
	limits := middleware.DefaultRateLimitConfig()
	limits.RequestsPerSecond = 0.001
	limits.Burst = 1
	r := newTestRouter(t, func(c *RouterConfig) {
		c.CORSOrigins = []string{"*"}
		c.RateLimiter = middleware.NewLimiter(limits)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/regulations", nil)
	req.Header.Set("Origin", "https://lab.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/regulations", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
