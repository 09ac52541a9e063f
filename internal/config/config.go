// Package config defines the configuration structures for OperaLab.  No I/O
// happens here, only plain data types and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/turtacn/OperaLab/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OperaLab/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	Mode            string        `mapstructure:"mode" validate:"oneof=debug release test"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
	MaxBodySize     int64         `mapstructure:"max_body_size" validate:"gt=0"`

	// CORSOrigins lists the browser origins allowed to call the API.  "*"
	// allows any origin; empty disables CORS headers.
	CORSOrigins []string `mapstructure:"cors_origins"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig throttles API requests per client address.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int     `mapstructure:"burst" validate:"gte=0"`
}

// MetricsConfig controls the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace" validate:"required"`
	Path      string `mapstructure:"path" validate:"startswith=/"`
}

// ColumnsConfig names the input table headers.  Matching is accent- and
// case-insensitive.
type ColumnsConfig struct {
	SampleGroupID       string `mapstructure:"sample_group_id" validate:"required"`
	SampleNumber        string `mapstructure:"sample_number" validate:"required"`
	AnalysisName        string `mapstructure:"analysis_name" validate:"required"`
	AnalysisMethod      string `mapstructure:"analysis_method" validate:"required"`
	RawValue            string `mapstructure:"raw_value" validate:"required"`
	RawUnit             string `mapstructure:"raw_unit" validate:"required"`
	QuantificationLimit string `mapstructure:"quantification_limit" validate:"required"`
}

// InputConfig controls how record tables are read.
type InputConfig struct {
	// Delimiter is a single character; empty means sniff among tab ; , |.
	Delimiter    string        `mapstructure:"delimiter" validate:"omitempty,len=1"`
	NumberPolicy string        `mapstructure:"number_policy" validate:"oneof=decimal_comma decimal_point"`
	Columns      ColumnsConfig `mapstructure:"columns"`
}

// ValidationConfig carries the checker parameters.
type ValidationConfig struct {
	DissolvedMarkers      []string          `mapstructure:"dissolved_markers" validate:"min=1,dive,required"`
	TotalMarkers          []string          `mapstructure:"total_markers" validate:"min=1,dive,required"`
	PairingSuffixes       []string          `mapstructure:"pairing_suffixes" validate:"dive,required"`
	LegalSuffixes         []string          `mapstructure:"legal_suffixes" validate:"dive,required"`
	InternalStandards     []string          `mapstructure:"internal_standards" validate:"min=1,dive,required"`
	QCMinPct              float64           `mapstructure:"qc_min_pct" validate:"gte=0"`
	QCMaxPct              float64           `mapstructure:"qc_max_pct" validate:"gtfield=QCMinPct"`
	DuplicateTolerancePct float64           `mapstructure:"duplicate_tolerance_pct" validate:"gt=0"`
	DissolvedMargin       float64           `mapstructure:"dissolved_margin" validate:"gt=0"`
	Aliases               map[string]string `mapstructure:"aliases"`
}

// CatalogConfig locates the regulatory catalog file.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// MinIOConfig holds S3-compatible object storage parameters for exports.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Prefix    string `mapstructure:"prefix"`

	// CreateBucket creates a missing bucket instead of failing at startup.
	CreateBucket bool `mapstructure:"create_bucket"`
}

// ExportConfig controls where and how result tables are written.
type ExportConfig struct {
	Sink         string      `mapstructure:"sink" validate:"oneof=dir minio"`
	Dir          string      `mapstructure:"dir"`
	Delimiter    string      `mapstructure:"delimiter" validate:"len=1"`
	NumberPolicy string      `mapstructure:"number_policy" validate:"oneof=decimal_comma decimal_point"`
	Locale       string      `mapstructure:"locale" validate:"oneof=pt en"`
	MinIO        MinIOConfig `mapstructure:"minio"`
}

// RedisConfig is the connection used by the redis report store.
type RedisConfig struct {
	Mode          string        `mapstructure:"mode" validate:"oneof=standalone sentinel cluster"`
	Addr          string        `mapstructure:"addr"`
	MasterName    string        `mapstructure:"master_name"`
	SentinelAddrs []string      `mapstructure:"sentinel_addrs"`
	ClusterAddrs  []string      `mapstructure:"cluster_addrs"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	DB            int           `mapstructure:"db" validate:"gte=0"`
	PoolSize      int           `mapstructure:"pool_size" validate:"gte=0"`
	DialTimeout   time.Duration `mapstructure:"dial_timeout" validate:"gte=0"`
	TLSEnabled    bool          `mapstructure:"tls_enabled"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
}

// StoreConfig selects where finished reports are kept.
type StoreConfig struct {
	Backend  string        `mapstructure:"backend" validate:"oneof=memory redis"`
	Capacity int           `mapstructure:"capacity" validate:"gte=0"`
	TTL      time.Duration `mapstructure:"ttl" validate:"gte=0"`
	Redis    RedisConfig   `mapstructure:"redis"`
}

// KafkaConfig configures the evaluation event producer.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic" validate:"required"`
	Acks         string        `mapstructure:"acks" validate:"oneof=none leader all"`
	MaxRetries   int           `mapstructure:"max_retries" validate:"gte=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
}

// EventsConfig groups event publishers.
type EventsConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
}

// WatchConfig controls the inbox watcher.
type WatchConfig struct {
	Dir      string        `mapstructure:"dir"`
	Pattern  string        `mapstructure:"pattern" validate:"required"`
	Debounce time.Duration `mapstructure:"debounce" validate:"gte=0"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Log        logging.LogConfig `mapstructure:"log"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
	Input      InputConfig       `mapstructure:"input"`
	Validation ValidationConfig  `mapstructure:"validation"`
	Catalog    CatalogConfig     `mapstructure:"catalog"`
	Export     ExportConfig      `mapstructure:"export"`
	Store      StoreConfig       `mapstructure:"store"`
	Events     EventsConfig      `mapstructure:"events"`
	Watch      WatchConfig       `mapstructure:"watch"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

var structValidator = validator.New()

// Validate checks struct tags first and then the cross-field rules tags cannot
// express.  The returned error carries ErrCodeValidation.
func (c *Config) Validate() error {
	if err := structValidator.Struct(c); err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "invalid configuration").WithDetail(describeValidation(err))
	}

	if c.Export.Sink == "minio" {
		if c.Export.MinIO.Endpoint == "" || c.Export.MinIO.Bucket == "" {
			return errors.New(errors.ErrCodeValidation, "invalid configuration").
				WithDetail("export.minio.endpoint and export.minio.bucket are required when export.sink is minio")
		}
	}

	if c.Store.Backend == "redis" {
		r := c.Store.Redis
		switch {
		case r.Mode == "sentinel" && (r.MasterName == "" || len(r.SentinelAddrs) == 0):
			return errors.New(errors.ErrCodeValidation, "invalid configuration").
				WithDetail("store.redis.master_name and store.redis.sentinel_addrs are required in sentinel mode")
		case r.Mode == "cluster" && len(r.ClusterAddrs) == 0:
			return errors.New(errors.ErrCodeValidation, "invalid configuration").
				WithDetail("store.redis.cluster_addrs is required in cluster mode")
		}
	}

	if c.Events.Kafka.Enabled && len(c.Events.Kafka.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "invalid configuration").
			WithDetail("events.kafka.brokers is required when events.kafka.enabled is true")
	}

	seen := make(map[string]string)
	for field, header := range c.Input.Columns.byField() {
		key := strings.ToLower(strings.TrimSpace(header))
		if other, dup := seen[key]; dup {
			return errors.New(errors.ErrCodeValidation, "invalid configuration").
				WithDetail(fmt.Sprintf("input.columns.%s and input.columns.%s both map to %q", other, field, header))
		}
		seen[key] = field
	}
	return nil
}

func (cc ColumnsConfig) byField() map[string]string {
	return map[string]string{
		"sample_group_id":      cc.SampleGroupID,
		"sample_number":        cc.SampleNumber,
		"analysis_name":        cc.AnalysisName,
		"analysis_method":      cc.AnalysisMethod,
		"raw_value":            cc.RawValue,
		"raw_unit":             cc.RawUnit,
		"quantification_limit": cc.QuantificationLimit,
	}
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
