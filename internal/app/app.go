// Package app builds the OperaLab components from a Config.  The CLI and the
// HTTP server share one App per process.
package app

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/turtacn/OperaLab/internal/application/reporting"
	"github.com/turtacn/OperaLab/internal/application/validation"
	"github.com/turtacn/OperaLab/internal/config"
	"github.com/turtacn/OperaLab/internal/domain/measurement"
	"github.com/turtacn/OperaLab/internal/domain/regulation"
	"github.com/turtacn/OperaLab/internal/domain/verdict"
	"github.com/turtacn/OperaLab/internal/infrastructure/catalogfile"
	"github.com/turtacn/OperaLab/internal/infrastructure/database/redis"
	"github.com/turtacn/OperaLab/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/OperaLab/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OperaLab/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/OperaLab/internal/infrastructure/storage"
	"github.com/turtacn/OperaLab/internal/infrastructure/storage/minio"
	"github.com/turtacn/OperaLab/internal/infrastructure/tabular"
	"github.com/turtacn/OperaLab/pkg/errors"
)

// HealthCheck is one readiness probe.
type HealthCheck struct {
	name  string
	check func(ctx context.Context) error
}

// NewHealthCheck returns a named probe.
func NewHealthCheck(name string, check func(ctx context.Context) error) HealthCheck {
	return HealthCheck{name: name, check: check}
}

func (h HealthCheck) Name() string                    { return h.name }
func (h HealthCheck) Check(ctx context.Context) error { return h.check(ctx) }

// App holds the wired components.
type App struct {
	Config    *config.Config
	Logger    logging.Logger
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics
	Catalog   *regulation.Catalog
	Evaluator *validation.Evaluator
	Reports   *reporting.Service
	Reader    *tabular.Reader

	checks  []HealthCheck
	closers []func() error
}

// Option adjusts New.
type Option func(*options)

type options struct {
	catalogPath string
	store       reporting.ReportStore
	publisher   reporting.Publisher
}

// WithCatalogPath overrides catalog.path.
func WithCatalogPath(path string) Option {
	return func(o *options) { o.catalogPath = path }
}

// WithReportStore replaces the configured report store.
func WithReportStore(s reporting.ReportStore) Option {
	return func(o *options) { o.store = s }
}

// WithPublisher replaces the configured event publisher.
func WithPublisher(p reporting.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// New wires every component.  Redis and Kafka are connected only when the
// configuration enables them.  Call Close when done.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	o := options{catalogPath: cfg.Catalog.Path}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Logger: logger}

	collector := prometheus.NewNoopCollector()
	if cfg.Metrics.Enabled {
		c, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: cfg.Metrics.Namespace}, logger)
		if err != nil {
			return nil, err
		}
		collector = c
	}
	a.Collector = collector
	a.Metrics = prometheus.NewAppMetrics(collector)

	vopts, err := ValidationOptions(cfg)
	if err != nil {
		return nil, err
	}
	resolver := LegalResolver(cfg)
	catalog, err := LoadCatalog(o.catalogPath, resolver, catalogfile.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	a.Catalog = catalog
	prometheus.RecordCatalogSize(a.Metrics, catalog.Len())
	logger.Info("catalog loaded", logging.String("path", o.catalogPath), logging.Int("regulations", catalog.Len()))

	a.Evaluator = validation.NewEvaluator(vopts, catalog, logger, a.Metrics)

	a.Reader, err = NewReader(cfg)
	if err != nil {
		return nil, err
	}

	store := o.store
	if store == nil {
		if store, err = a.openStore(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}
	publisher := o.publisher
	if publisher == nil {
		if publisher, err = a.openPublisher(); err != nil {
			a.Close()
			return nil, err
		}
	}

	renderer, err := NewRenderer(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Reports = reporting.NewService(a.Evaluator, logger, a.Metrics,
		reporting.WithStore(store),
		reporting.WithPublisher(publisher),
		reporting.WithRenderer(renderer))
	return a, nil
}

func (a *App) openStore(ctx context.Context) (reporting.ReportStore, error) {
	sc := a.Config.Store
	if sc.Backend != "redis" {
		return reporting.NewMemoryStore(sc.Capacity), nil
	}
	client, err := redis.NewClient(ctx, redis.Config{
		Mode:          sc.Redis.Mode,
		Addr:          sc.Redis.Addr,
		MasterName:    sc.Redis.MasterName,
		SentinelAddrs: sc.Redis.SentinelAddrs,
		ClusterAddrs:  sc.Redis.ClusterAddrs,
		Username:      sc.Redis.Username,
		Password:      sc.Redis.Password,
		DB:            sc.Redis.DB,
		PoolSize:      sc.Redis.PoolSize,
		DialTimeout:   sc.Redis.DialTimeout,
		TLSEnabled:    sc.Redis.TLSEnabled,
	}, a.Logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	a.checks = append(a.checks, NewHealthCheck("redis", client.Ping))

	cache := redis.NewCache(client, a.Logger,
		redis.WithPrefix(sc.Redis.KeyPrefix),
		redis.WithDefaultTTL(sc.TTL))
	a.Logger.Info("report store ready", logging.String("backend", "redis"), logging.String("addr", sc.Redis.Addr))
	return reporting.NewCacheStore(cache, sc.TTL), nil
}

func (a *App) openPublisher() (reporting.Publisher, error) {
	kc := a.Config.Events.Kafka
	if !kc.Enabled {
		return reporting.NoopPublisher(), nil
	}
	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      kc.Brokers,
		Topic:        kc.Topic,
		Acks:         kc.Acks,
		MaxRetries:   kc.MaxRetries,
		WriteTimeout: kc.WriteTimeout,
	}, a.Logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, producer.Close)
	a.Logger.Info("evaluation events enabled", logging.String("topic", producer.Topic()))
	return producer, nil
}

// HealthChecks returns the readiness probes of the connected backends.
func (a *App) HealthChecks() []HealthCheck {
	return append([]HealthCheck(nil), a.checks...)
}

// ExportSink opens the configured sink.  A non-empty dir forces a directory
// sink rooted there.
func (a *App) ExportSink(ctx context.Context, dir string) (storage.Sink, error) {
	ec := a.Config.Export
	if dir == "" && ec.Sink == "minio" {
		return minio.NewSink(ctx, minio.Config{
			Endpoint:     ec.MinIO.Endpoint,
			AccessKey:    ec.MinIO.AccessKey,
			SecretKey:    ec.MinIO.SecretKey,
			Region:       ec.MinIO.Region,
			Bucket:       ec.MinIO.Bucket,
			UseSSL:       ec.MinIO.UseSSL,
			Prefix:       ec.MinIO.Prefix,
			CreateBucket: ec.MinIO.CreateBucket,
		}, a.Logger)
	}
	if dir == "" {
		dir = ec.Dir
	}
	return storage.NewDirSink(dir, a.Logger)
}

// Close releases backend connections in reverse order and returns the first
// error.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// ValidationOptions maps the validation and input sections onto checker
// options.
func ValidationOptions(cfg *config.Config) (validation.Options, error) {
	policy, err := measurement.PolicyByName(cfg.Input.NumberPolicy)
	if err != nil {
		return validation.Options{}, err
	}
	v := cfg.Validation
	return validation.Options{
		Normalizer: measurement.Normalizer{
			Policy:          policy,
			Markers:         measurement.FractionMarkers{Dissolved: v.DissolvedMarkers, Total: v.TotalMarkers},
			PairingSuffixes: measurement.SuffixSet(v.PairingSuffixes),
		},
		DissolvedTotal: validation.DissolvedTotalOptions{Margin: v.DissolvedMargin},
		QC: validation.QCOptions{
			InternalStandards: v.InternalStandards,
			MinPct:            v.QCMinPct,
			MaxPct:            v.QCMaxPct,
		},
		DuplicateTolerancePct: v.DuplicateTolerancePct,
	}, nil
}

// LegalResolver builds the resolver shared by the catalog and the
// legislation checker.  Configured aliases extend the built-in ones.
func LegalResolver(cfg *config.Config) measurement.LegalResolver {
	suffixes := measurement.DefaultLegalSuffixes
	if len(cfg.Validation.LegalSuffixes) > 0 {
		suffixes = measurement.SuffixSet(cfg.Validation.LegalSuffixes)
	}
	return measurement.LegalResolver{
		Suffixes: suffixes,
		Aliases:  measurement.DefaultAliases().With(cfg.Validation.Aliases),
	}
}

// LoadCatalog reads the catalog at path.  An empty path yields an empty
// catalog, so only legislation requests fail.
func LoadCatalog(path string, resolver measurement.LegalResolver, opts ...catalogfile.Option) (*regulation.Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return regulation.NewCatalog(nil, resolver)
	}
	return catalogfile.Load(path, resolver, opts...)
}

// NewReader builds the input reader from the input section.
func NewReader(cfg *config.Config) (*tabular.Reader, error) {
	c := cfg.Input.Columns
	r := tabular.NewReader(tabular.ColumnMap{
		SampleGroupID:       c.SampleGroupID,
		SampleNumber:        c.SampleNumber,
		AnalysisName:        c.AnalysisName,
		AnalysisMethod:      c.AnalysisMethod,
		RawValue:            c.RawValue,
		RawUnit:             c.RawUnit,
		QuantificationLimit: c.QuantificationLimit,
	})
	d, err := delimiter(cfg.Input.Delimiter)
	if err != nil {
		return nil, err
	}
	r.Delimiter = d
	return r, nil
}

// NewRenderer builds the result table renderer from the export section.
func NewRenderer(cfg *config.Config) (*reporting.Renderer, error) {
	policy, err := measurement.PolicyByName(cfg.Export.NumberPolicy)
	if err != nil {
		return nil, err
	}
	d, err := delimiter(cfg.Export.Delimiter)
	if err != nil {
		return nil, err
	}
	return reporting.NewRenderer(tabular.NewWriter(d, policy), verdict.Locale(cfg.Export.Locale)), nil
}

func delimiter(s string) (rune, error) {
	if s == "" {
		return 0, nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) {
		return 0, errors.InvalidParam("delimiter must be a single character").WithDetail(s)
	}
	return r, nil
}
