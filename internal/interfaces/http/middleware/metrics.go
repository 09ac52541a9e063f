package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/OperaLab/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request counts and latencies by route template, so
// /api/v1/reports/:id is one series regardless of the id.
func Metrics(m *prometheus.AppMetrics) gin.HandlerFunc {
	if m == nil {
		m = prometheus.NewNoopAppMetrics()
	}
	return func(c *gin.Context) {
		start := time.Now()
		active := m.HTTPActiveRequests.WithLabelValues(c.Request.Method)
		active.Inc()
		c.Next()
		active.Dec()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		prometheus.RecordHTTPRequest(m, c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
