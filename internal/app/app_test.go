package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/OperaLab/internal/application/validation"
	"github.com/turtacn/OperaLab/internal/config"
	"github.com/turtacn/OperaLab/internal/domain/measurement"
	"github.com/turtacn/OperaLab/internal/infrastructure/storage"
	"github.com/turtacn/OperaLab/pkg/errors"
)

const catalogYAML = `
CONAMA 430:
  limits_mgL: {chumbo: 0.5, cadmio: 0.2}
  matrices: [effluent]
Portaria 888:
  limits_mgL: {chumbo: 0.01}
  prefer_total: false
  matrices: [drinking_water]
`

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o600))
	return path
}

func TestNew_Defaults(t *testing.T) {
	a, err := New(context.Background(), nil, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 0, a.Catalog.Len())
	assert.Empty(t, a.HealthChecks())
	require.NotNil(t, a.Reports)
	require.NotNil(t, a.Reader)

	_, err = a.Evaluator.Regulation("CONAMA 430")
	assert.True(t, errors.IsCode(err, errors.ErrCodeRegulationNotFound))
}

func TestNew_LoadsCatalogAndEvaluates(t *testing.T) {
	cfg := config.NewDefaultConfig()
	a, err := New(context.Background(), cfg, nil, WithCatalogPath(writeCatalog(t)))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []string{"CONAMA 430", "Portaria 888"}, a.Catalog.Names())

	records, err := a.Reader.ReadString("Id;Nº Amostra;Análise;Método de Análise;Valor;Unidade de Medida\n" +
		"S1;101;Chumbo;Metais Totais;0,02;mg/L\n")
	require.NoError(t, err)

	report, err := a.Reports.Evaluate(context.Background(), records, validation.EvaluationRequest{Regulation: "Portaria 888"})
	require.NoError(t, err)

	stored, err := a.Reports.Report(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.ID, stored.ID)
}

func TestNew_MissingCatalog(t *testing.T) {
	_, err := New(context.Background(), config.NewDefaultConfig(), nil,
		WithCatalogPath(filepath.Join(t.TempDir(), "absent.yaml")))
	assert.True(t, errors.IsNotFound(err))
}

func TestNew_KafkaPublisherIsClosed(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Events.Kafka.Enabled = true
	cfg.Events.Kafka.Brokers = []string{"localhost:9092"}

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.NoError(t, a.Close())
	assert.NoError(t, a.Close())
}

func TestValidationOptions(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Input.NumberPolicy = measurement.PolicyNameDecimalPoint
	cfg.Validation.DissolvedMargin = 1.1

	opts, err := ValidationOptions(cfg)
	require.NoError(t, err)
	assert.Equal(t, measurement.DecimalPoint, opts.Normalizer.Policy)
	assert.Equal(t, 1.1, opts.DissolvedTotal.Margin)
	assert.Equal(t, 70.0, opts.QC.MinPct)
	assert.Equal(t, 20.0, opts.DuplicateTolerancePct)
}

func TestLegalResolver_ConfiguredAliases(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Validation.Aliases = map[string]string{"plomo": "chumbo"}
	assert.Equal(t, "chumbo", LegalResolver(cfg).Resolve("plomo"))
}

func TestNewReader_Delimiter(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Input.Delimiter = "|"
	r, err := NewReader(cfg)
	require.NoError(t, err)
	assert.Equal(t, '|', r.Delimiter)

	cfg.Input.Delimiter = ";;"
	_, err = NewReader(cfg)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestExportSink_Dir(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Export.Dir = t.TempDir()
	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)

	sink, err := a.ExportSink(context.Background(), "")
	require.NoError(t, err)
	dir, ok := sink.(*storage.DirSink)
	require.True(t, ok)
	assert.Equal(t, cfg.Export.Dir, dir.Root())

	override := t.TempDir()
	sink, err = a.ExportSink(context.Background(), override)
	require.NoError(t, err)
	assert.Equal(t, override, sink.(*storage.DirSink).Root())
}
