package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// BatchCSV is a two-sample LIMS export with semicolon separators and decimal
// commas.  Both samples carry dissolved and total lead; total lead is above
// 0.01 mg/L in both.
const BatchCSV = "Id;Nº Amostra;Análise;Método de Análise;Valor;Unidade de Medida;LQ - Limite Quantificação\n" +
	"S1;101;Chumbo Dissolvido;Metais Dissolvidos;0,005;mg/L;0,001\n" +
	"S1;101;Chumbo;Metais Totais;0,015;mg/L;0,001\n" +
	"S2;102;Chumbo Dissolvido;Metais Dissolvidos;0,004;mg/L;0,001\n" +
	"S2;102;Chumbo;Metais Totais;0,012;mg/L;0,001\n"

// CatalogYAML holds two regulations limiting lead to 0.01 mg/L.
const CatalogYAML = `CONAMA 430:
  limits_mgL: {chumbo: 0.01}
  matrices: [effluent]
  description: Effluent discharge
Portaria 888:
  limits_mgL: {chumbo: 0.01}
  matrices: [drinking_water]
`

// WriteFile writes content to dir/name and returns the path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
