package reporting

import (
	"context"
	"path"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/OperaLab/internal/application/validation"
	"github.com/turtacn/OperaLab/internal/domain/measurement"
	"github.com/turtacn/OperaLab/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OperaLab/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/OperaLab/internal/infrastructure/storage"
	"github.com/turtacn/OperaLab/pkg/errors"
)

// Evaluator is the part of validation.Evaluator the service drives.
type Evaluator interface {
	Evaluate(ctx context.Context, records []measurement.Record, req validation.EvaluationRequest) (*validation.Report, error)
}

// ExportedTable describes one table written to a sink.
type ExportedTable struct {
	Table    string `json:"table"`
	Rows     int    `json:"rows"`
	Location string `json:"location"`
}

// Service evaluates record sets, keeps the reports and exports their tables.
type Service struct {
	evaluator Evaluator
	store     ReportStore
	publisher Publisher
	renderer  *Renderer
	logger    logging.Logger
	metrics   *prometheus.AppMetrics
}

// Option configures a Service.
type Option func(*Service)

// WithStore replaces the default in-memory store.
func WithStore(s ReportStore) Option {
	return func(svc *Service) { svc.store = s }
}

// WithPublisher sets the event publisher.
func WithPublisher(p Publisher) Option {
	return func(svc *Service) { svc.publisher = p }
}

// WithRenderer sets the table renderer.
func WithRenderer(r *Renderer) Option {
	return func(svc *Service) { svc.renderer = r }
}

// NewService wires a Service.
func NewService(ev Evaluator, logger logging.Logger, metrics *prometheus.AppMetrics, opts ...Option) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Service{
		evaluator: ev,
		store:     NewMemoryStore(0),
		publisher: NoopPublisher(),
		renderer:  NewRenderer(nil, ""),
		logger:    logger.Named("reporting"),
		metrics:   metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Renderer returns the table renderer.
func (s *Service) Renderer() *Renderer { return s.renderer }

// Evaluate runs an evaluation, stores the report and publishes an
// evaluation.completed event.  Store and publish failures are logged; the
// report is still returned.
func (s *Service) Evaluate(ctx context.Context, records []measurement.Record, req validation.EvaluationRequest) (*validation.Report, error) {
	report, err := s.evaluator.Evaluate(ctx, records, req)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(logging.String("report_id", report.ID))

	if err := s.store.Save(ctx, report); err != nil {
		log.Warn("failed to store report", logging.Err(err))
	}

	data, err := encodeEvent(NewEvaluationEvent(report))
	if err == nil {
		err = s.publisher.Publish(ctx, report.ID, data)
	}
	if err != nil {
		log.Warn("failed to publish evaluation event", logging.Err(err))
	}
	return report, nil
}

// EvaluateBatches runs Evaluate for every batch concurrently and returns the
// reports in batch order.  The first failure cancels the remaining batches.
func (s *Service) EvaluateBatches(ctx context.Context, batches []validation.Batch) ([]*validation.Report, error) {
	reports := make([]*validation.Report, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range batches {
		i := i
		g.Go(func() error {
			rep, err := s.Evaluate(gctx, batches[i].Records, batches[i].Request)
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

// Report returns a stored report.
func (s *Service) Report(ctx context.Context, id string) (*validation.Report, error) {
	return s.store.Get(ctx, id)
}

// Tables renders every non-empty table of r as delimited text, keyed by
// table name.
func (s *Service) Tables(r *validation.Report) (map[string][]byte, error) {
	out := make(map[string][]byte)
	for _, t := range s.renderer.Tables(r) {
		data, err := s.renderer.Bytes(t)
		if err != nil {
			return nil, err
		}
		out[t.Name] = data
	}
	return out, nil
}

// Table renders one table of r.  Unknown table names are NotFound.
func (s *Service) Table(r *validation.Report, name string) ([]byte, error) {
	t, ok := s.renderer.Table(r, name)
	if !ok {
		return nil, errors.NotFound("unknown table").WithDetail(name)
	}
	return s.renderer.Bytes(t)
}

// Export writes every non-empty table of r to sink as
// <report-id>/<table>.csv.  It stops at the first failure.
func (s *Service) Export(ctx context.Context, r *validation.Report, sink storage.Sink) ([]ExportedTable, error) {
	if r == nil || r.ID == "" {
		return nil, errors.InvalidParam("report id is required")
	}
	var out []ExportedTable
	for _, t := range s.renderer.Tables(r) {
		data, err := s.renderer.Bytes(t)
		if err != nil {
			prometheus.RecordExport(s.metrics, sink.Name(), err)
			return out, err
		}
		loc, err := sink.Put(ctx, path.Join(r.ID, t.Name+".csv"), storage.ContentTypeCSV, data)
		prometheus.RecordExport(s.metrics, sink.Name(), err)
		if err != nil {
			return out, errors.Wrap(err, errors.ErrCodeExportFailed, "export failed").WithDetail(t.Name)
		}
		out = append(out, ExportedTable{Table: t.Name, Rows: t.Len(), Location: loc})
	}
	s.logger.Info("report exported",
		logging.String("report_id", r.ID),
		logging.String("sink", sink.Name()),
		logging.Int("tables", len(out)))
	return out, nil
}
