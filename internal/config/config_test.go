package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/OperaLab/pkg/errors"
)

func TestNewDefaultConfig_IsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "decimal_comma", cfg.Input.NumberPolicy)
	assert.Equal(t, "Nº Amostra", cfg.Input.Columns.SampleNumber)
	assert.Equal(t, []string{"itrio", "yttrium"}, cfg.Validation.InternalStandards)
	assert.Equal(t, 70.0, cfg.Validation.QCMinPct)
	assert.Equal(t, 130.0, cfg.Validation.QCMaxPct)
	assert.Equal(t, 20.0, cfg.Validation.DuplicateTolerancePct)
	assert.Equal(t, 1.0, cfg.Validation.DissolvedMargin)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, DefaultStoreCapacity, cfg.Store.Capacity)
	assert.Equal(t, "operalab:", cfg.Store.Redis.KeyPrefix)
	assert.False(t, cfg.Events.Kafka.Enabled)
	assert.Equal(t, DefaultKafkaTopic, cfg.Events.Kafka.Topic)
	assert.Equal(t, "pt", cfg.Export.Locale)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9090
	cfg.Validation.DissolvedMargin = 1.1
	cfg.Validation.TotalMarkers = []string{"totales"}

	ApplyDefaults(cfg)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 1.1, cfg.Validation.DissolvedMargin)
	assert.Equal(t, []string{"totales"}, cfg.Validation.TotalMarkers)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"bad server mode", func(c *Config) { c.Server.Mode = "prod" }},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }},
		{"bad number policy", func(c *Config) { c.Input.NumberPolicy = "swiss" }},
		{"qc band inverted", func(c *Config) { c.Validation.QCMaxPct = 50 }},
		{"negative margin", func(c *Config) { c.Validation.DissolvedMargin = -1 }},
		{"long delimiter", func(c *Config) { c.Input.Delimiter = ";;" }},
		{"minio without bucket", func(c *Config) { c.Export.Sink = "minio"; c.Export.MinIO.Endpoint = "localhost:9000" }},
		{"duplicate column header", func(c *Config) { c.Input.Columns.RawUnit = "valor" }},
		{"unknown store backend", func(c *Config) { c.Store.Backend = "postgres" }},
		{"cluster without addrs", func(c *Config) { c.Store.Backend = "redis"; c.Store.Redis.Mode = "cluster" }},
		{"kafka without brokers", func(c *Config) { c.Events.Kafka.Enabled = true }},
		{"bad locale", func(c *Config) { c.Export.Locale = "fr" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
		})
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "operalab.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  read_timeout: 5s
validation:
  dissolved_margin: 1.05
  total_markers: [totales]
catalog:
  path: /etc/operalab/catalog.json
`)
	t.Setenv("OPERALAB_SERVER_PORT", "9100")
	t.Setenv("OPERALAB_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port, "env overrides file")
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 1.05, cfg.Validation.DissolvedMargin)
	assert.Equal(t, []string{"totales"}, cfg.Validation.TotalMarkers)
	assert.Equal(t, "/etc/operalab/catalog.json", cfg.Catalog.Path)
	assert.Equal(t, DefaultColumnRawValue, cfg.Input.Columns.RawValue)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestLoad_InvalidContent(t *testing.T) {
	path := writeConfig(t, "server:\n  mode: production\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("OPERALAB_CATALOG_PATH", "catalog.yaml")
	t.Setenv("OPERALAB_VALIDATION_DUPLICATE_TOLERANCE_PCT", "15")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "catalog.yaml", cfg.Catalog.Path)
	assert.Equal(t, 15.0, cfg.Validation.DuplicateTolerancePct)
}

func TestLoad_EmptyPathUsesEnv(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultExportSink, cfg.Export.Sink)
}

func TestLoad_StoreAndEvents(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: redis
  ttl: 2h
  redis:
    addr: redis:6379
events:
  kafka:
    enabled: true
    brokers: [kafka-1:9092, kafka-2:9092]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, 2*time.Hour, cfg.Store.TTL)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, "standalone", cfg.Store.Redis.Mode)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Events.Kafka.Brokers)
	assert.Equal(t, "all", cfg.Events.Kafka.Acks)
}

func TestLoad_ShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "operalab.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.False(t, cfg.Events.Kafka.Enabled)
	assert.Equal(t, "configs/catalog.yaml", cfg.Catalog.Path)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, "chumbo", cfg.Validation.Aliases["plomo"])
}

func TestWatch_ReportsRevisions(t *testing.T) {
	path := writeConfig(t, "log:\n  level: warn\n")

	changes := make(chan *Config, 8)
	failures := make(chan error, 8)
	require.NoError(t, Watch(path, func(c *Config) { changes <- c }, func(err error) { failures <- err }))

	rewrite := func(body string) {
		tmp := path + ".tmp"
		require.NoError(t, os.WriteFile(tmp, []byte(body), 0o600))
		require.NoError(t, os.Rename(tmp, path))
	}

	rewrite("log:\n  level: debug\n")
	deadline := time.After(5 * time.Second)
	for level := ""; level != "debug"; {
		select {
		case c := <-changes:
			level = c.Log.Level
		case <-deadline:
			t.Fatal("no config change delivered")
		}
	}

	rewrite("log:\n  level: loud\n")
	select {
	case err := <-failures:
		assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
	case <-time.After(5 * time.Second):
		t.Fatal("invalid revision not reported")
	}
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(filepath.Join(t.TempDir(), "absent.yaml"), func(*Config) {}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}
