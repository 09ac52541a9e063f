package catalogfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/OperaLab/internal/domain/measurement"
	"github.com/turtacn/OperaLab/internal/testutil"
	"github.com/turtacn/OperaLab/pkg/errors"
)

const yamlCatalog = `
CONAMA 430:
  limits_mgL:
    Lead: 0.5
    Cádmio Total: 0.2
  matrices: [effluent]
  description: Effluent discharge
Portaria 888:
  limits_mgL:
    chumbo: 0.01
  prefer_total: false
`

const jsonCatalog = `{
  "CONAMA 420": {"limits_mgL": {"Cr VI": 0.05, "arsenio": 0.01}, "prefer_total": true}
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_YAML(t *testing.T) {
	cat, err := Load(writeFile(t, "catalog.yaml", yamlCatalog), measurement.DefaultLegalResolver())
	require.NoError(t, err)
	assert.Equal(t, []string{"CONAMA 430", "Portaria 888"}, cat.Names())

	conama, err := cat.Get("CONAMA 430")
	require.NoError(t, err)
	assert.True(t, conama.PreferTotal, "prefer_total defaults to true")
	assert.Equal(t, map[string]float64{"chumbo": 0.5, "cadmio": 0.2}, conama.Limits)
	assert.True(t, conama.AppliesTo("Effluent"))
	assert.Equal(t, "Effluent discharge", conama.Description)

	portaria, err := cat.Get("portaria 888")
	require.NoError(t, err)
	assert.False(t, portaria.PreferTotal)
	assert.Equal(t, measurement.FractionDissolved, portaria.PreferredFraction())
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "catalog.json", jsonCatalog)
	assert.Equal(t, FormatJSON, FormatForPath(path))

	cat, err := Load(path, measurement.DefaultLegalResolver())
	require.NoError(t, err)
	reg, err := cat.Get("CONAMA 420")
	require.NoError(t, err)
	limit, ok := reg.Limit("cromo hexavalente")
	require.True(t, ok)
	assert.Equal(t, 0.05, limit)
}

func TestParse_Invalid(t *testing.T) {
	resolver := measurement.DefaultLegalResolver()
	cases := map[string]string{
		"negative limit": "X:\n  limits_mgL: {chumbo: -1}\n",
		"infinite limit": "X:\n  limits_mgL: {chumbo: .inf}\n",
		"not a number":   "X:\n  limits_mgL: {chumbo: \"0,5\"}\n",
		"not a mapping":  "X: 5\n",
		"conflict":       "X:\n  limits_mgL: {chumbo: 1, lead: 2}\n",
		"malformed":      "{not yaml",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc), FormatYAML, resolver)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeCatalogInvalid), err.Error())
		})
	}
}

func TestParse_Empty(t *testing.T) {
	cat, err := Parse(nil, FormatYAML, measurement.DefaultLegalResolver())
	require.NoError(t, err)
	assert.Zero(t, cat.Len())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"), measurement.DefaultLegalResolver())
	assert.True(t, errors.IsNotFound(err))
}

func TestLoad_ShippedCatalog(t *testing.T) {
	cat, err := Load(filepath.Join("..", "..", "..", "configs", "catalog.yaml"), measurement.DefaultLegalResolver())
	require.NoError(t, err)
	assert.Equal(t, []string{"CONAMA 357 Classe 2", "CONAMA 430", "Portaria 888"}, cat.Names())
	assert.Equal(t, []string{"Portaria 888"}, cat.ForMatrix("drinking_water"))

	reg, err := cat.Get("conama 357 classe 2")
	require.NoError(t, err)
	assert.False(t, reg.PreferTotal)
}

func TestParse_ApplicableMatricesAndUnknownFields(t *testing.T) {
	doc := `{
  "Portaria 888": {
    "limits_mgL": {"chumbo": 0.01},
    "applicable_matrices": ["drinking_water"],
    "reference": "GM/MS 888/2021",
    "notes": "potability"
  }
}`
	logger := testutil.NewMockLogger()
	cat, err := Parse([]byte(doc), FormatJSON, measurement.DefaultLegalResolver(), WithLogger(logger))
	require.NoError(t, err)
	assert.Equal(t, []string{"Portaria 888"}, cat.ForMatrix("drinking_water"))

	reg, err := cat.Get("Portaria 888")
	require.NoError(t, err)
	limit, ok := reg.Limit("chumbo")
	require.True(t, ok)
	assert.Equal(t, 0.01, limit)

	var fields []interface{}
	for _, m := range logger.Messages() {
		if m.Level == "warn" && m.Message == "ignoring unknown catalog field" {
			f, _ := m.Field("field")
			fields = append(fields, f)
		}
	}
	assert.Equal(t, []interface{}{"notes", "reference"}, fields)
}

func TestParse_MergesMatrixKeys(t *testing.T) {
	doc := "X:\n  limits_mgL: {zinco: 5}\n  matrices: [effluent]\n  applicable_matrices: [groundwater]\n"
	cat, err := Parse([]byte(doc), FormatYAML, measurement.DefaultLegalResolver())
	require.NoError(t, err)
	reg, err := cat.Get("X")
	require.NoError(t, err)
	assert.True(t, reg.AppliesTo("effluent"))
	assert.True(t, reg.AppliesTo("groundwater"))
}
