package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every OperaLab metric.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Evaluation pipeline
	EvaluationsTotal         CounterVec
	EvaluationDuration       HistogramVec
	RecordsProcessedTotal    CounterVec
	CheckerRowsTotal         CounterVec
	BatchVerdictsTotal       CounterVec
	ExportsTotal             CounterVec
	CatalogRegulations       GaugeVec
	WatchFilesProcessedTotal CounterVec

	collector MetricsCollector
}

// Default buckets.
var (
	DefaultHTTPDurationBuckets       = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultEvaluationDurationBuckets = []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5}
)

// NewAppMetrics registers all metrics on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	if collector == nil {
		collector = NewNoopCollector()
	}
	m := &AppMetrics{collector: collector}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request latency", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "In-flight HTTP requests", "method")

	m.EvaluationsTotal = collector.RegisterCounter("evaluations_total", "Evaluations run, by outcome", "outcome")
	m.EvaluationDuration = collector.RegisterHistogram("evaluation_duration_seconds", "Wall time of one evaluation", DefaultEvaluationDurationBuckets)
	m.RecordsProcessedTotal = collector.RegisterCounter("records_processed_total", "Measurement records normalised, by usability", "result")
	m.CheckerRowsTotal = collector.RegisterCounter("checker_rows_total", "Result rows emitted, by checker and status", "checker", "status")
	m.BatchVerdictsTotal = collector.RegisterCounter("batch_verdicts_total", "Batch verdicts, by status", "status")
	m.ExportsTotal = collector.RegisterCounter("exports_total", "Result tables exported, by sink and outcome", "sink", "outcome")
	m.CatalogRegulations = collector.RegisterGauge("catalog_regulations", "Regulations in the loaded catalog")
	m.WatchFilesProcessedTotal = collector.RegisterCounter("watch_files_processed_total", "Inbox files processed, by outcome", "outcome")

	return m
}

// NewNoopAppMetrics returns AppMetrics backed by the no-op collector.
func NewNoopAppMetrics() *AppMetrics {
	return NewAppMetrics(NewNoopCollector())
}

// Collector returns the collector the metrics were registered on.
func (m *AppMetrics) Collector() MetricsCollector { return m.collector }

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(m *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordEvaluation records one evaluation outcome ("ok", "error", "canceled").
func RecordEvaluation(m *AppMetrics, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.EvaluationsTotal.WithLabelValues(outcome).Inc()
	m.EvaluationDuration.WithLabelValues().Observe(duration.Seconds())
}

// RecordRecords counts normalised records by usability ("usable", "unusable").
func RecordRecords(m *AppMetrics, usable, unusable int) {
	if m == nil {
		return
	}
	m.RecordsProcessedTotal.WithLabelValues("usable").Add(float64(usable))
	m.RecordsProcessedTotal.WithLabelValues("unusable").Add(float64(unusable))
}

// RecordCheckerRows counts rows per status for one checker.
func RecordCheckerRows(m *AppMetrics, checker string, byStatus map[string]int) {
	if m == nil {
		return
	}
	for status, n := range byStatus {
		m.CheckerRowsTotal.WithLabelValues(checker, status).Add(float64(n))
	}
}

// RecordBatchVerdict counts one batch verdict.
func RecordBatchVerdict(m *AppMetrics, status string) {
	if m == nil {
		return
	}
	m.BatchVerdictsTotal.WithLabelValues(status).Inc()
}

// RecordExport counts one exported table.
func RecordExport(m *AppMetrics, sink string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ExportsTotal.WithLabelValues(sink, outcome).Inc()
}

// RecordWatchFile counts one inbox file.
func RecordWatchFile(m *AppMetrics, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.WatchFilesProcessedTotal.WithLabelValues(outcome).Inc()
}

// RecordCatalogSize sets the number of loaded regulations.
func RecordCatalogSize(m *AppMetrics, n int) {
	if m == nil {
		return
	}
	m.CatalogRegulations.WithLabelValues().Set(float64(n))
}
