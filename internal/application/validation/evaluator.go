package validation

import (
	"context"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/OperaLab/internal/domain/measurement"
	"github.com/turtacn/OperaLab/internal/domain/regulation"
	"github.com/turtacn/OperaLab/internal/domain/verdict"
	"github.com/turtacn/OperaLab/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OperaLab/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/OperaLab/pkg/errors"
)

// EvaluationRequest selects the optional checkers of an evaluation.
type EvaluationRequest struct {
	// Regulation, when set, runs the legislation checker with that catalog
	// entry.
	Regulation string `json:"regulation,omitempty"`

	// Duplicates lists the duplicate pairs to compare.
	Duplicates []DuplicateRequest `json:"duplicates,omitempty"`

	// Source is a free-form label (file name, upload id) echoed in the report.
	Source string `json:"source,omitempty"`
}

// Report is the complete outcome of one evaluation.
type Report struct {
	ID          string        `json:"id"`
	Source      string        `json:"source,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	Duration    time.Duration `json:"duration_ns"`
	RecordCount int           `json:"record_count"`

	DissolvedTotal []DissolvedTotalRow `json:"dissolved_total"`
	QC             []QCRow             `json:"qc"`
	Duplicates     []DuplicateReport   `json:"duplicates,omitempty"`
	Legislation    *LegislationReport  `json:"legislation,omitempty"`

	Samples []SampleVerdict `json:"samples"`
	Batch   verdict.Status  `json:"batch"`
}

// Batch is one independent evaluation for EvaluateBatches.
type Batch struct {
	Records []measurement.Record
	Request EvaluationRequest
}

// Evaluator runs the checker pipeline.  It holds configuration and the
// read-only catalog only, so one Evaluator may serve concurrent callers.
type Evaluator struct {
	opts    Options
	catalog *regulation.Catalog
	logger  logging.Logger
	metrics *prometheus.AppMetrics

	now   func() time.Time
	newID func() string
}

// NewEvaluator builds an Evaluator.  catalog may be nil, in which case any
// request naming a regulation fails with ErrCodeRegulationNotFound.
func NewEvaluator(opts Options, catalog *regulation.Catalog, logger logging.Logger, metrics *prometheus.AppMetrics) *Evaluator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNoopAppMetrics()
	}
	opts = opts.withDefaults()
	return &Evaluator{
		opts:    opts,
		catalog: catalog,
		logger:  logger.Named("evaluator"),
		metrics: metrics,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// Catalog returns the catalog the evaluator was built with (possibly nil).
func (e *Evaluator) Catalog() *regulation.Catalog { return e.catalog }

// Options returns a copy of the evaluator options.
func (e *Evaluator) Options() Options { return e.opts }

// Normalize runs the shared normalisation step.
func (e *Evaluator) Normalize(records []measurement.Record) []measurement.Normalized {
	return e.opts.Normalizer.Normalize(records)
}

// Regulation resolves name in the catalog.
func (e *Evaluator) Regulation(name string) (regulation.Regulation, error) {
	if e.catalog == nil {
		return regulation.Regulation{}, errors.New(errors.ErrCodeRegulationNotFound, "no regulatory catalog loaded").WithDetail(name)
	}
	return e.catalog.Get(name)
}

// Evaluate normalises records once and runs dissolved-vs-total and QC
// recovery, every requested duplicate comparison and, when a regulation is
// named, the legislation checker.  Request errors (unknown regulation, bad
// duplicate parameters) are reported before any record is processed.
func (e *Evaluator) Evaluate(ctx context.Context, records []measurement.Record, req EvaluationRequest) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCanceled, "evaluation canceled")
	}
	start := e.now()

	var reg *regulation.Regulation
	if name := strings.TrimSpace(req.Regulation); name != "" {
		r, err := e.Regulation(name)
		if err != nil {
			prometheus.RecordEvaluation(e.metrics, "error", 0)
			return nil, err
		}
		reg = &r
	}
	dupReqs := make([]DuplicateRequest, 0, len(req.Duplicates))
	for _, d := range req.Duplicates {
		if d.TolerancePct == 0 {
			d.TolerancePct = e.opts.DuplicateTolerancePct
		}
		checked, err := d.validate()
		if err != nil {
			prometheus.RecordEvaluation(e.metrics, "error", 0)
			return nil, err
		}
		dupReqs = append(dupReqs, checked)
	}

	report := &Report{ID: e.newID(), Source: req.Source, CreatedAt: start.UTC(), RecordCount: len(records)}
	log := e.logger.With(logging.String("report_id", report.ID), logging.String("source", req.Source))
	log.Debug("evaluation started", logging.Int("records", len(records)))

	normalized := e.Normalize(records)
	e.recordUsability(normalized)

	report.DissolvedTotal = CompareDissolvedTotal(normalized, e.opts.DissolvedTotal)
	report.QC = EvaluateQCRecovery(normalized, e.opts.QC)
	if err := e.checkpoint(ctx, log); err != nil {
		return nil, err
	}

	for _, d := range dupReqs {
		dup, err := CompareDuplicates(normalized, d)
		if err != nil {
			return nil, err
		}
		report.Duplicates = append(report.Duplicates, dup)
	}
	if reg != nil {
		leg := ApplyLegislation(normalized, *reg, e.catalog.Resolver())
		report.Legislation = &leg
	}
	if err := e.checkpoint(ctx, log); err != nil {
		return nil, err
	}

	agg := Aggregate(AggregateInput{
		SampleGroupIDs: sampleGroupIDs(records),
		DissolvedTotal: report.DissolvedTotal,
		QC:             report.QC,
		Duplicates:     report.Duplicates,
		Legislation:    report.Legislation,
	})
	report.Samples, report.Batch = agg.Samples, agg.Batch
	report.Duration = e.now().Sub(start)

	e.recordRows(report)
	prometheus.RecordEvaluation(e.metrics, "ok", report.Duration)
	prometheus.RecordBatchVerdict(e.metrics, report.Batch.String())

	log.Info("evaluation finished",
		logging.Int("records", len(records)),
		logging.Int("samples", len(report.Samples)),
		logging.Int("dissolved_total_rows", len(report.DissolvedTotal)),
		logging.Int("qc_rows", len(report.QC)),
		logging.Int("duplicate_reports", len(report.Duplicates)),
		logging.String("batch", report.Batch.String()),
		logging.Duration("elapsed", report.Duration),
	)
	return report, nil
}

func (e *Evaluator) checkpoint(ctx context.Context, log logging.Logger) error {
	if err := ctx.Err(); err != nil {
		log.Warn("evaluation canceled", logging.Err(err))
		prometheus.RecordEvaluation(e.metrics, "canceled", 0)
		return errors.Wrap(err, errors.ErrCodeCanceled, "evaluation canceled")
	}
	return nil
}

// Duplicates runs a single duplicate comparison.
func (e *Evaluator) Duplicates(ctx context.Context, records []measurement.Record, req DuplicateRequest) (DuplicateReport, error) {
	if err := ctx.Err(); err != nil {
		return DuplicateReport{}, errors.Wrap(err, errors.ErrCodeCanceled, "comparison canceled")
	}
	if req.TolerancePct == 0 {
		req.TolerancePct = e.opts.DuplicateTolerancePct
	}
	report, err := CompareDuplicates(e.Normalize(records), req)
	if err != nil {
		return DuplicateReport{}, err
	}
	prometheus.RecordCheckerRows(e.metrics, string(CheckerDuplicates), countDuplicateStatuses(report))
	return report, nil
}

// Legislation applies the named regulation to records.
func (e *Evaluator) Legislation(ctx context.Context, records []measurement.Record, name string) (LegislationReport, error) {
	if err := ctx.Err(); err != nil {
		return LegislationReport{}, errors.Wrap(err, errors.ErrCodeCanceled, "legislation check canceled")
	}
	reg, err := e.Regulation(name)
	if err != nil {
		return LegislationReport{}, err
	}
	report := ApplyLegislation(e.Normalize(records), reg, e.catalog.Resolver())
	counts := make(map[string]int)
	for _, r := range report.Rows {
		counts[r.Status.String()]++
	}
	prometheus.RecordCheckerRows(e.metrics, string(CheckerLegislation), counts)
	return report, nil
}

// EvaluateBatches evaluates independent batches concurrently.  Reports are
// returned in batch order.  The first failure cancels the remaining batches.
func (e *Evaluator) EvaluateBatches(ctx context.Context, batches []Batch) ([]*Report, error) {
	reports := make([]*Report, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := range batches {
		i := i
		g.Go(func() error {
			rep, err := e.Evaluate(gctx, batches[i].Records, batches[i].Request)
			if err != nil {
				return err
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (e *Evaluator) recordUsability(normalized []measurement.Normalized) {
	usable := 0
	for _, n := range normalized {
		if n.Concentration != nil {
			usable++
		}
	}
	prometheus.RecordRecords(e.metrics, usable, len(normalized)-usable)
}

func (e *Evaluator) recordRows(r *Report) {
	dt := make(map[string]int)
	for _, row := range r.DissolvedTotal {
		dt[row.Status.String()]++
	}
	prometheus.RecordCheckerRows(e.metrics, string(CheckerDissolvedTotal), dt)

	qc := make(map[string]int)
	for _, row := range r.QC {
		qc[row.Status.String()]++
	}
	prometheus.RecordCheckerRows(e.metrics, string(CheckerQCRecovery), qc)

	for _, d := range r.Duplicates {
		prometheus.RecordCheckerRows(e.metrics, string(CheckerDuplicates), countDuplicateStatuses(d))
	}
	if r.Legislation != nil {
		leg := make(map[string]int)
		for _, row := range r.Legislation.Rows {
			leg[row.Status.String()]++
		}
		prometheus.RecordCheckerRows(e.metrics, string(CheckerLegislation), leg)
	}
}

func countDuplicateStatuses(d DuplicateReport) map[string]int {
	counts := make(map[string]int)
	for _, row := range d.Rows {
		counts[row.Status.String()]++
	}
	return counts
}

func sampleGroupIDs(records []measurement.Record) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, r := range records {
		if !r.Joinable() {
			continue
		}
		id := strings.TrimSpace(r.SampleGroupID)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
