package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/OperaLab/internal/app"
	"github.com/turtacn/OperaLab/internal/application/validation"
	"github.com/turtacn/OperaLab/internal/config"
	"github.com/turtacn/OperaLab/internal/domain/verdict"
	"github.com/turtacn/OperaLab/internal/infrastructure/storage"
	"github.com/turtacn/OperaLab/internal/testutil"
	"github.com/turtacn/OperaLab/pkg/errors"
)

func fixtures(t *testing.T) (batch, catalog string) {
	t.Helper()
	dir := t.TempDir()
	return testutil.WriteFile(t, dir, "batch.csv", testutil.BatchCSV), testutil.WriteFile(t, dir, "catalog.yaml", testutil.CatalogYAML)
}

func TestEvaluate_Text(t *testing.T) {
	batch, catalog := fixtures(t)
	out, _, err := run(t, "evaluate", batch, "--catalog", catalog, "-r", "CONAMA 430")
	require.NoError(t, err)
	assert.Contains(t, out, "batch.csv: NÃO CONFORME (NON_CONFORMING), 4 records")
	assert.Contains(t, out, "sample_group_id")
	assert.NotContains(t, out, "== dissolved_total ==")

	verbose, _, err := run(t, "evaluate", batch, "--catalog", catalog, "-r", "CONAMA 430", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, verbose, "== dissolved_total ==")
	assert.Contains(t, verbose, "== legislation ==")
}

func TestEvaluate_JSONSeveralFiles(t *testing.T) {
	batch, _ := fixtures(t)
	second := testutil.WriteFile(t, t.TempDir(), "second.csv", testutil.BatchCSV)

	out, _, err := run(t, "evaluate", batch, second, "-o", "json", "-d", "101:102")
	require.NoError(t, err)

	var reports []validation.Report
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, "batch.csv", reports[0].Source)
	assert.Equal(t, "second.csv", reports[1].Source)
	require.Len(t, reports[0].Duplicates, 1)
	assert.Equal(t, "101", reports[0].Duplicates[0].Sample1)
}

func TestEvaluate_CSVAndExport(t *testing.T) {
	batch, _ := fixtures(t)
	exportDir := t.TempDir()

	out, errOut, err := run(t, "evaluate", batch, "-o", "csv", "--export-dir", exportDir)
	require.NoError(t, err)
	assert.Contains(t, out, "# samples\n")
	assert.Contains(t, out, "# dissolved_total\n")
	assert.Contains(t, errOut, "OK: batch.csv:")

	matches, err := filepath.Glob(filepath.Join(exportDir, "*", "samples.csv"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestEvaluate_FailOnReject(t *testing.T) {
	batch, catalog := fixtures(t)
	_, _, err := run(t, "evaluate", batch, "--catalog", catalog, "-r", "CONAMA 430", "--fail-on-reject")
	require.Error(t, err)
	assert.Equal(t, ExitRejected, ExitCode(err))

	_, _, err = run(t, "evaluate", batch, "--fail-on-reject")
	assert.NoError(t, err)
}

func TestEvaluate_Errors(t *testing.T) {
	batch, catalog := fixtures(t)

	_, _, err := run(t, "evaluate", batch, "--catalog", catalog, "-r", "unknown")
	assert.True(t, errors.IsCode(err, errors.ErrCodeRegulationNotFound))
	assert.Equal(t, 1, ExitCode(err))

	_, _, err = run(t, "evaluate", filepath.Join(t.TempDir(), "missing.csv"))
	assert.True(t, errors.IsNotFound(err))

	_, _, err = run(t, "evaluate", batch, "-d", "101")
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	_, _, err = run(t, "evaluate")
	assert.Error(t, err)
}

func TestParseDuplicatePairs(t *testing.T) {
	got, err := ParseDuplicatePairs([]string{"101:102", " 5 : 6 "}, 15)
	require.NoError(t, err)
	assert.Equal(t, []validation.DuplicateRequest{
		{Sample1: "101", Sample2: "102", TolerancePct: 15},
		{Sample1: "5", Sample2: "6", TolerancePct: 15},
	}, got)

	for _, bad := range []string{"101", "101:", ":102", "1:2:3"} {
		_, err := ParseDuplicatePairs([]string{bad}, 0)
		assert.Error(t, err, bad)
	}
}

func TestDuplicatesCommand(t *testing.T) {
	batch, _ := fixtures(t)
	out, _, err := run(t, "duplicates", batch, "--sample1", "101", "--sample2", "102", "--tolerance", "50")
	require.NoError(t, err)
	assert.Contains(t, out, "101 vs 102:")
	assert.Contains(t, out, "tolerance 50%")
	assert.Contains(t, out, "rpd_pct")

	_, _, err = run(t, "duplicates", batch, "--sample1", "101")
	assert.Error(t, err)
}

func TestLegislationCommand(t *testing.T) {
	batch, catalog := fixtures(t)
	out, _, err := run(t, "legislation", batch, "--catalog", catalog, "-r", "conama 430", "-o", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "# legislation\n")
	assert.Contains(t, out, "# legislation_rollup\n")
	assert.Contains(t, out, "CONAMA 430;S1;NON_CONFORMING;NÃO CONFORME")

	out, _, err = run(t, "legislation", batch, "--catalog", catalog, "-r", "CONAMA 430", "-o", "json")
	require.NoError(t, err)
	var rep validation.LegislationReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Rollup, 2)
	assert.Equal(t, verdict.NonConforming, rep.Rollup[0].Status)
}

func TestSamplesCommand(t *testing.T) {
	batch, _ := fixtures(t)
	out, _, err := run(t, "samples", batch)
	require.NoError(t, err)
	assert.Equal(t, "101\n102\n", out)

	out, _, err = run(t, "samples", batch, "-o", "csv")
	require.NoError(t, err)
	assert.Equal(t, "sample_number\n101\n102\n", out)
}

func TestCatalogCommands(t *testing.T) {
	_, catalog := fixtures(t)

	out, _, err := run(t, "catalog", "list", "--catalog", catalog, "--matrix", "effluent")
	require.NoError(t, err)
	assert.Contains(t, out, "CONAMA 430")
	assert.NotContains(t, out, "Portaria 888")

	out, _, err = run(t, "catalog", "list", "--catalog", catalog, "--filter", "portaria", "-o", "json")
	require.NoError(t, err)
	var regs []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &regs))
	require.Len(t, regs, 1)
	assert.Equal(t, "Portaria 888", regs[0]["name"])

	out, _, err = run(t, "catalog", "show", "conama 430", "--catalog", catalog, "-o", "csv")
	require.NoError(t, err)
	assert.Equal(t, "analyte;limit_mg_l\nchumbo;0,01\n", out)

	out, _, err = run(t, "catalog", "list", "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestEvaluateFileHandler(t *testing.T) {
	batch, _ := fixtures(t)
	a, err := app.New(context.Background(), config.NewDefaultConfig(), nil)
	require.NoError(t, err)
	defer a.Close()

	out := t.TempDir()
	sink, err := storage.NewDirSink(out, nil)
	require.NoError(t, err)

	require.NoError(t, EvaluateFileHandler(a, sink, "")(context.Background(), batch))
	matches, err := filepath.Glob(filepath.Join(out, "*", "dissolved_total.csv"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	err = EvaluateFileHandler(a, sink, "unknown")(context.Background(), batch)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRegulationNotFound))
}

func TestNewRouterFromApp(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Server.Mode = "test"
	cfg.Server.RateLimit.Enabled = true
	a, err := app.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	r := NewRouter(a)
	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/api/v1/regulations"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestWatch_RequiresDir(t *testing.T) {
	_, _, err := run(t, "watch")
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}
