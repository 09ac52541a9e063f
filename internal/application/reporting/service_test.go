package reporting

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/turtacn/OperaLab/internal/application/validation"
	"github.com/turtacn/OperaLab/internal/domain/measurement"
	"github.com/turtacn/OperaLab/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OperaLab/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/OperaLab/internal/infrastructure/storage"
	"github.com/turtacn/OperaLab/pkg/errors"
)

type stubEvaluator struct {
	report *validation.Report
	err    error
	got    validation.EvaluationRequest
}

func (s *stubEvaluator) Evaluate(_ context.Context, _ []measurement.Record, req validation.EvaluationRequest) (*validation.Report, error) {
	s.got = req
	return s.report, s.err
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, key string, value []byte) error {
	return m.Called(ctx, key, value).Error(0)
}

type failingStore struct{}

func (failingStore) Save(context.Context, *validation.Report) error {
	return errors.New(errors.ErrCodeStorage, "down")
}

func (failingStore) Get(_ context.Context, id string) (*validation.Report, error) {
	return nil, reportNotFound(id)
}

type ServiceTestSuite struct {
	suite.Suite
	evaluator *stubEvaluator
	publisher *mockPublisher
	store     *MemoryStore
	logs      *observer.ObservedLogs
	collector prometheus.MetricsCollector
	svc       *Service
}

func (s *ServiceTestSuite) SetupTest() {
	core, logs := observer.New(zap.DebugLevel)
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "test"}, logging.NewNopLogger())
	s.Require().NoError(err)

	s.evaluator = &stubEvaluator{report: sampleReport("r1")}
	s.publisher = new(mockPublisher)
	s.store = NewMemoryStore(4)
	s.logs = logs
	s.collector = collector
	s.svc = NewService(s.evaluator, logging.NewLoggerFromCore(core), prometheus.NewAppMetrics(collector),
		WithStore(s.store), WithPublisher(s.publisher))
}

func (s *ServiceTestSuite) TestEvaluateStoresAndPublishes() {
	var event EvaluationEvent
	s.publisher.On("Publish", mock.Anything, "r1", mock.Anything).
		Run(func(args mock.Arguments) {
			s.Require().NoError(json.Unmarshal(args.Get(2).([]byte), &event))
		}).
		Return(nil).Once()

	report, err := s.svc.Evaluate(context.Background(), nil, validation.EvaluationRequest{Regulation: "CONAMA 430"})
	s.Require().NoError(err)
	s.Equal("r1", report.ID)
	s.Equal("CONAMA 430", s.evaluator.got.Regulation)

	stored, err := s.svc.Report(context.Background(), "r1")
	s.Require().NoError(err)
	s.Same(report, stored)

	s.Equal(EventEvaluationCompleted, event.Type)
	s.Equal("NON_CONFORMING", event.Batch)
	s.Equal(map[string]string{"S1": "NON_CONFORMING"}, event.Samples)
	s.Equal("CONAMA 430", event.Regulation)
	s.Equal(4, event.RecordCount)
	s.publisher.AssertExpectations(s.T())
}

func (s *ServiceTestSuite) TestEvaluateSurvivesPublishAndStoreFailures() {
	core, logs := observer.New(zap.DebugLevel)
	s.logs = logs
	s.svc = NewService(s.evaluator, logging.NewLoggerFromCore(core), nil,
		WithStore(failingStore{}), WithPublisher(s.publisher))
	s.publisher.On("Publish", mock.Anything, "r1", mock.Anything).
		Return(errors.New(errors.ErrCodeServiceUnavailable, "broker down")).Once()

	report, err := s.svc.Evaluate(context.Background(), nil, validation.EvaluationRequest{})
	s.Require().NoError(err)
	s.Equal("r1", report.ID)
	s.Equal(1, s.logs.FilterMessage("failed to store report").Len())
	s.Equal(1, s.logs.FilterMessage("failed to publish evaluation event").Len())
}

func (s *ServiceTestSuite) TestEvaluateError() {
	s.evaluator.err = errors.New(errors.ErrCodeRegulationNotFound, "unknown regulation")
	s.evaluator.report = nil

	_, err := s.svc.Evaluate(context.Background(), nil, validation.EvaluationRequest{Regulation: "x"})
	s.True(errors.IsCode(err, errors.ErrCodeRegulationNotFound))
	s.publisher.AssertNotCalled(s.T(), "Publish", mock.Anything, mock.Anything, mock.Anything)
	s.Equal(0, s.store.Len())
}

func (s *ServiceTestSuite) TestExportWritesEveryTable() {
	sink, err := storage.NewDirSink(s.T().TempDir(), nil)
	s.Require().NoError(err)

	out, err := s.svc.Export(context.Background(), sampleReport("r1"), sink)
	s.Require().NoError(err)
	s.Len(out, 5)
	s.Equal(TableSamples, out[0].Table)
	s.Equal(1, out[0].Rows)

	data, err := os.ReadFile(filepath.Join(sink.Root(), "r1", "legislation.csv"))
	s.Require().NoError(err)
	s.Contains(string(data), "CONAMA 430;S1;chumbo")
	s.Equal(1, s.logs.FilterMessage("report exported").Len())
	s.Equal(5.0, s.exportCount("dir"))
}

func (s *ServiceTestSuite) exportCount(sink string) float64 {
	mfs, err := s.collector.Gatherer().Gather()
	s.Require().NoError(err)
	total := 0.0
	for _, mf := range mfs {
		if !strings.HasSuffix(mf.GetName(), "exports_total") {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "sink" && lp.GetValue() == sink {
					total += m.GetCounter().GetValue()
				}
			}
		}
	}
	return total
}

func (s *ServiceTestSuite) TestExportCanceled() {
	sink, err := storage.NewDirSink(s.T().TempDir(), nil)
	s.Require().NoError(err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.svc.Export(ctx, sampleReport("r1"), sink)
	s.True(errors.IsCode(err, errors.ErrCodeExportFailed))
}

func (s *ServiceTestSuite) TestTable() {
	data, err := s.svc.Table(sampleReport("r1"), TableQC)
	s.Require().NoError(err)
	s.Contains(string(data), "recovery_pct")

	_, err = s.svc.Table(sampleReport("r1"), "bogus")
	s.True(errors.IsNotFound(err))

	all, err := s.svc.Tables(sampleReport("r1"))
	s.Require().NoError(err)
	s.Len(all, 5)
	s.NotContains(all, TableDuplicates)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func TestNoopPublisher(t *testing.T) {
	assert.NoError(t, NoopPublisher().Publish(context.Background(), "k", nil))
	require.NotNil(t, NewService(&stubEvaluator{}, nil, nil).Renderer())
}

type evaluatorFunc func(ctx context.Context, records []measurement.Record, req validation.EvaluationRequest) (*validation.Report, error)

func (f evaluatorFunc) Evaluate(ctx context.Context, records []measurement.Record, req validation.EvaluationRequest) (*validation.Report, error) {
	return f(ctx, records, req)
}

func TestEvaluateBatches(t *testing.T) {
	ev := evaluatorFunc(func(_ context.Context, _ []measurement.Record, req validation.EvaluationRequest) (*validation.Report, error) {
		if req.Source == "bad" {
			return nil, errors.InvalidParam("bad batch")
		}
		return sampleReport("r-" + req.Source), nil
	})
	store := NewMemoryStore(0)
	svc := NewService(ev, nil, nil, WithStore(store))

	reports, err := svc.EvaluateBatches(context.Background(), []validation.Batch{
		{Request: validation.EvaluationRequest{Source: "a"}},
		{Request: validation.EvaluationRequest{Source: "b"}},
		{Request: validation.EvaluationRequest{Source: "c"}},
	})
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.Equal(t, "r-a", reports[0].ID)
	assert.Equal(t, "r-c", reports[2].ID)

	_, err = store.Get(context.Background(), "r-b")
	assert.NoError(t, err)

	_, err = svc.EvaluateBatches(context.Background(), []validation.Batch{
		{Request: validation.EvaluationRequest{Source: "a"}},
		{Request: validation.EvaluationRequest{Source: "bad"}},
	})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}
