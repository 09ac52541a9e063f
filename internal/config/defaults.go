package config

import (
	"time"

	"github.com/turtacn/OperaLab/internal/domain/measurement"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort            = 8080
	DefaultServerMode            = "release"
	DefaultServerReadTimeout     = 30 * time.Second
	DefaultServerWriteTimeout    = 60 * time.Second
	DefaultServerShutdownTimeout = 15 * time.Second
	DefaultServerMaxBodySize     = 32 << 20
	DefaultRateLimitRPS          = 20.0
	DefaultRateLimitBurst        = 40

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "operalab"
	DefaultMetricsPath      = "/metrics"

	DefaultNumberPolicy = measurement.PolicyNameDecimalComma

	DefaultQCMinPct              = 70.0
	DefaultQCMaxPct              = 130.0
	DefaultDuplicateTolerancePct = 20.0
	DefaultDissolvedMargin       = 1.0

	DefaultExportSink      = "dir"
	DefaultExportDir       = "exports"
	DefaultExportDelimiter = ";"
	DefaultExportLocale    = "pt"

	DefaultStoreBackend   = "memory"
	DefaultStoreCapacity  = 256
	DefaultStoreTTL       = 24 * time.Hour
	DefaultRedisMode      = "standalone"
	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "operalab:"

	DefaultKafkaTopic        = "operalab.evaluations"
	DefaultKafkaAcks         = "all"
	DefaultKafkaMaxRetries   = 3
	DefaultKafkaWriteTimeout = 10 * time.Second

	DefaultWatchPattern  = "*.csv"
	DefaultWatchDebounce = 500 * time.Millisecond
)

// Default LIMS export headers.
const (
	DefaultColumnSampleGroupID       = "Id"
	DefaultColumnSampleNumber        = "Nº Amostra"
	DefaultColumnAnalysisName        = "Análise"
	DefaultColumnAnalysisMethod      = "Método de Análise"
	DefaultColumnRawValue            = "Valor"
	DefaultColumnRawUnit             = "Unidade de Medida"
	DefaultColumnQuantificationLimit = "LQ - Limite Quantificação"
)

// DefaultInternalStandards are the QC spike analytes recognised out of the box.
var DefaultInternalStandards = []string{"itrio", "yttrium"}

// NewDefaultConfig returns a Config in which every field holds its default.
// Boolean switches that default to on are set here because ApplyDefaults
// cannot tell an explicit false from an unset field.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Metrics.Enabled = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-value field in cfg with its default.  Fields
// already set are left unchanged so explicit configuration always wins.
// It must run after unmarshalling and before Validate.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultServerMaxBodySize
	}
	if cfg.Server.RateLimit.RequestsPerSecond == 0 {
		cfg.Server.RateLimit.RequestsPerSecond = DefaultRateLimitRPS
	}
	if cfg.Server.RateLimit.Burst == 0 {
		cfg.Server.RateLimit.Burst = DefaultRateLimitBurst
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Input ─────────────────────────────────────────────────────────────────
	if cfg.Input.NumberPolicy == "" {
		cfg.Input.NumberPolicy = DefaultNumberPolicy
	}
	cols := &cfg.Input.Columns
	setString(&cols.SampleGroupID, DefaultColumnSampleGroupID)
	setString(&cols.SampleNumber, DefaultColumnSampleNumber)
	setString(&cols.AnalysisName, DefaultColumnAnalysisName)
	setString(&cols.AnalysisMethod, DefaultColumnAnalysisMethod)
	setString(&cols.RawValue, DefaultColumnRawValue)
	setString(&cols.RawUnit, DefaultColumnRawUnit)
	setString(&cols.QuantificationLimit, DefaultColumnQuantificationLimit)

	// ── Validation ────────────────────────────────────────────────────────────
	markers := measurement.DefaultFractionMarkers()
	v := &cfg.Validation
	setStrings(&v.DissolvedMarkers, markers.Dissolved)
	setStrings(&v.TotalMarkers, markers.Total)
	setStrings(&v.PairingSuffixes, measurement.DefaultPairingSuffixes)
	setStrings(&v.LegalSuffixes, measurement.DefaultLegalSuffixes)
	setStrings(&v.InternalStandards, DefaultInternalStandards)
	if v.QCMinPct == 0 {
		v.QCMinPct = DefaultQCMinPct
	}
	if v.QCMaxPct == 0 {
		v.QCMaxPct = DefaultQCMaxPct
	}
	if v.DuplicateTolerancePct == 0 {
		v.DuplicateTolerancePct = DefaultDuplicateTolerancePct
	}
	if v.DissolvedMargin == 0 {
		v.DissolvedMargin = DefaultDissolvedMargin
	}

	// ── Export ────────────────────────────────────────────────────────────────
	if cfg.Export.Sink == "" {
		cfg.Export.Sink = DefaultExportSink
	}
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = DefaultExportDir
	}
	if cfg.Export.Delimiter == "" {
		cfg.Export.Delimiter = DefaultExportDelimiter
	}
	if cfg.Export.NumberPolicy == "" {
		cfg.Export.NumberPolicy = DefaultNumberPolicy
	}
	setString(&cfg.Export.Locale, DefaultExportLocale)

	// ── Store ─────────────────────────────────────────────────────────────────
	st := &cfg.Store
	setString(&st.Backend, DefaultStoreBackend)
	if st.Capacity == 0 {
		st.Capacity = DefaultStoreCapacity
	}
	if st.TTL == 0 {
		st.TTL = DefaultStoreTTL
	}
	setString(&st.Redis.Mode, DefaultRedisMode)
	setString(&st.Redis.Addr, DefaultRedisAddr)
	setString(&st.Redis.KeyPrefix, DefaultRedisKeyPrefix)

	// ── Events ────────────────────────────────────────────────────────────────
	k := &cfg.Events.Kafka
	setString(&k.Topic, DefaultKafkaTopic)
	setString(&k.Acks, DefaultKafkaAcks)
	if k.MaxRetries == 0 {
		k.MaxRetries = DefaultKafkaMaxRetries
	}
	if k.WriteTimeout == 0 {
		k.WriteTimeout = DefaultKafkaWriteTimeout
	}

	// ── Watch ─────────────────────────────────────────────────────────────────
	if cfg.Watch.Pattern == "" {
		cfg.Watch.Pattern = DefaultWatchPattern
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultWatchDebounce
	}
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setStrings(dst *[]string, def []string) {
	if len(*dst) == 0 {
		*dst = append([]string(nil), def...)
	}
}
