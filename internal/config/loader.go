package config

import (
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/turtacn/OperaLab/pkg/errors"
)

// envPrefix is the environment variable prefix for every setting.
const envPrefix = "OPERALAB"

// newViper builds a Viper instance with YAML file type, the OPERALAB_ env
// prefix and a "." → "_" key replacer, so "validation.qc_min_pct" resolves
// to OPERALAB_VALIDATION_QC_MIN_PCT.  Defaults are registered as viper
// defaults as well because AutomaticEnv only consults keys viper knows about.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	registerDefaults(v, NewDefaultConfig())
	return v
}

func registerDefaults(v *viper.Viper, d *Config) {
	defaults := map[string]interface{}{
		"server.port":                           d.Server.Port,
		"server.mode":                           d.Server.Mode,
		"server.read_timeout":                   d.Server.ReadTimeout,
		"server.write_timeout":                  d.Server.WriteTimeout,
		"server.shutdown_timeout":               d.Server.ShutdownTimeout,
		"server.max_body_size":                  d.Server.MaxBodySize,
		"server.cors_origins":                   d.Server.CORSOrigins,
		"server.rate_limit.enabled":             d.Server.RateLimit.Enabled,
		"server.rate_limit.requests_per_second": d.Server.RateLimit.RequestsPerSecond,
		"server.rate_limit.burst":               d.Server.RateLimit.Burst,

		"log.level":  d.Log.Level,
		"log.format": d.Log.Format,

		"metrics.enabled":   d.Metrics.Enabled,
		"metrics.namespace": d.Metrics.Namespace,
		"metrics.path":      d.Metrics.Path,

		"input.delimiter":                    d.Input.Delimiter,
		"input.number_policy":                d.Input.NumberPolicy,
		"input.columns.sample_group_id":      d.Input.Columns.SampleGroupID,
		"input.columns.sample_number":        d.Input.Columns.SampleNumber,
		"input.columns.analysis_name":        d.Input.Columns.AnalysisName,
		"input.columns.analysis_method":      d.Input.Columns.AnalysisMethod,
		"input.columns.raw_value":            d.Input.Columns.RawValue,
		"input.columns.raw_unit":             d.Input.Columns.RawUnit,
		"input.columns.quantification_limit": d.Input.Columns.QuantificationLimit,

		"validation.dissolved_markers":       d.Validation.DissolvedMarkers,
		"validation.total_markers":           d.Validation.TotalMarkers,
		"validation.pairing_suffixes":        d.Validation.PairingSuffixes,
		"validation.legal_suffixes":          d.Validation.LegalSuffixes,
		"validation.internal_standards":      d.Validation.InternalStandards,
		"validation.qc_min_pct":              d.Validation.QCMinPct,
		"validation.qc_max_pct":              d.Validation.QCMaxPct,
		"validation.duplicate_tolerance_pct": d.Validation.DuplicateTolerancePct,
		"validation.dissolved_margin":        d.Validation.DissolvedMargin,

		"catalog.path": d.Catalog.Path,

		"export.sink":             d.Export.Sink,
		"export.dir":              d.Export.Dir,
		"export.delimiter":        d.Export.Delimiter,
		"export.number_policy":    d.Export.NumberPolicy,
		"export.minio.endpoint":   d.Export.MinIO.Endpoint,
		"export.minio.access_key": d.Export.MinIO.AccessKey,
		"export.minio.secret_key": d.Export.MinIO.SecretKey,
		"export.minio.bucket":     d.Export.MinIO.Bucket,
		"export.minio.region":     d.Export.MinIO.Region,
		"export.minio.use_ssl":    d.Export.MinIO.UseSSL,
		"export.minio.prefix":     d.Export.MinIO.Prefix,

		"export.locale":              d.Export.Locale,
		"export.minio.create_bucket": d.Export.MinIO.CreateBucket,

		"store.backend":              d.Store.Backend,
		"store.capacity":             d.Store.Capacity,
		"store.ttl":                  d.Store.TTL,
		"store.redis.mode":           d.Store.Redis.Mode,
		"store.redis.addr":           d.Store.Redis.Addr,
		"store.redis.master_name":    d.Store.Redis.MasterName,
		"store.redis.sentinel_addrs": d.Store.Redis.SentinelAddrs,
		"store.redis.cluster_addrs":  d.Store.Redis.ClusterAddrs,
		"store.redis.username":       d.Store.Redis.Username,
		"store.redis.password":       d.Store.Redis.Password,
		"store.redis.db":             d.Store.Redis.DB,
		"store.redis.pool_size":      d.Store.Redis.PoolSize,
		"store.redis.dial_timeout":   d.Store.Redis.DialTimeout,
		"store.redis.tls_enabled":    d.Store.Redis.TLSEnabled,
		"store.redis.key_prefix":     d.Store.Redis.KeyPrefix,

		"events.kafka.enabled":       d.Events.Kafka.Enabled,
		"events.kafka.brokers":       d.Events.Kafka.Brokers,
		"events.kafka.topic":         d.Events.Kafka.Topic,
		"events.kafka.acks":          d.Events.Kafka.Acks,
		"events.kafka.max_retries":   d.Events.Kafka.MaxRetries,
		"events.kafka.write_timeout": d.Events.Kafka.WriteTimeout,

		"watch.dir":      d.Watch.Dir,
		"watch.pattern":  d.Watch.Pattern,
		"watch.debounce": d.Watch.Debounce,
	}
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
}

// Load reads the YAML file at configPath, merges OPERALAB_* environment
// overrides, applies defaults and validates the result.  An empty configPath
// behaves like LoadFromEnv.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "failed to read config file").WithDetail(configPath)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from OPERALAB_* environment variables and
// defaults only.
//
//	OPERALAB_<SECTION>_<FIELD>   e.g.  OPERALAB_CATALOG_PATH, OPERALAB_SERVER_PORT
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "failed to unmarshal configuration")
	}
	ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Watch re-reads configPath whenever it changes and hands the new Config to
// onChange.  Invalid revisions are reported through onError and skipped.  Only
// log settings are safe to apply at runtime; the regulatory catalog is loaded
// once per process and is not reloaded here.
func Watch(configPath string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "failed to read config file").WithDetail(configPath)
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}
