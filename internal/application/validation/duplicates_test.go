package validation

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/OperaLab/internal/domain/measurement"
	"github.com/turtacn/OperaLab/internal/domain/verdict"
	"github.com/turtacn/OperaLab/pkg/errors"
)

func TestRPD(t *testing.T) {
	assert.Equal(t, 0.0, RPD(0, 0))
	assert.InDelta(t, 18.1818, RPD(10, 12), 1e-4)
	assert.InDelta(t, 200.0, RPD(0, 5), 1e-12)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		a, b := rng.Float64()*100, rng.Float64()*100
		assert.Equal(t, RPD(a, b), RPD(b, a))
	}
}

func TestCompareDuplicates_Scenario(t *testing.T) {
	report, err := CompareDuplicates(normalize(
		rec("G1", "A-1", "Metais Totais", "Zinco", "10,0", "mg/L"),
		rec("G2", "A-2", "Metais Totais", "Zinco", "12,0", "mg/L"),
	), DuplicateRequest{Sample1: "A-1", Sample2: "A-2", TolerancePct: 20})
	require.NoError(t, err)

	require.Len(t, report.Rows, 1)
	row := report.Rows[0]
	require.NotNil(t, row.RPDPct)
	assert.InDelta(t, 18.18, *row.RPDPct, 0.01)
	assert.Equal(t, verdict.Conforming, row.Status)
	assert.Equal(t, "mg/L", row.Unit)
	assert.Equal(t, []string{"G1", "G2"}, report.SampleGroupIDs)
	assert.Equal(t, verdict.Conforming, report.Status())
}

func TestCompareDuplicates_Classification(t *testing.T) {
	const m = "Metais Totais"
	report, err := CompareDuplicates(normalize(
		rec("G1", "A", m, "Cobre", "1", "mg/L"),
		rec("G1", "B", m, "Cobre", "2", "mg/L"),
		rec("G1", "A", m, "Zinco", "<0,1", "mg/L"),
		rec("G1", "B", m, "Zinco", "<0,1", "mg/L"),
		rec("G1", "A", m, "Ferro", "<0,1", "mg/L"),
		rec("G1", "B", m, "Ferro", "0,3", "mg/L"),
		rec("G1", "A", m, "Bário", "0,3", "mg/L"),
		rec("G1", "A", m, "Boro", "abc", "mg/L"),
		rec("G1", "B", m, "Boro", "0,3", "mg/kg"),
		rec("G1", "A", m, "Ítrio", "95", "%"),
		rec("G1", "B", m, "Ítrio", "50", "%"),
		rec("G1", "C", m, "Cobre", "9", "mg/L"),
	), DuplicateRequest{Sample1: "A", Sample2: "B"})
	require.NoError(t, err)
	assert.Equal(t, DefaultTolerancePct, report.TolerancePct)

	got := make(map[string]verdict.Status)
	for _, r := range report.Rows {
		got[r.Analyte] = r.Status
	}
	assert.Equal(t, map[string]verdict.Status{
		"cobre": verdict.NonConforming,
		"zinco": verdict.OK,
		"ferro": verdict.Inconclusive,
		"bario": verdict.Unpaired,
		"boro":  verdict.NoData,
	}, got)

	// severity order: NON_CONFORMING, INCONCLUSIVE, OK, UNPAIRED, NO_DATA
	var order []string
	for _, r := range report.Rows {
		order = append(order, r.Analyte)
	}
	assert.Equal(t, []string{"cobre", "ferro", "zinco", "bario", "boro"}, order)
	assert.Equal(t, verdict.NonConforming, report.Status())
}

func TestCompareDuplicates_SortsByMethodThenAnalyteWithinStatus(t *testing.T) {
	report, err := CompareDuplicates(normalize(
		rec("G1", "A", "Metais Totais", "Zinco", "1", "mg/L"),
		rec("G1", "B", "Metais Totais", "Zinco", "1", "mg/L"),
		rec("G1", "A", "Ânions", "Nitrato", "1", "mg/L"),
		rec("G1", "B", "Ânions", "Nitrato", "1", "mg/L"),
		rec("G1", "A", "Metais Totais", "Cobre", "1", "mg/L"),
		rec("G1", "B", "Metais Totais", "Cobre", "1", "mg/L"),
	), DuplicateRequest{Sample1: "A", Sample2: "B"})
	require.NoError(t, err)

	var order []string
	for _, r := range report.Rows {
		order = append(order, r.Method+"/"+r.Analyte)
	}
	assert.Equal(t, []string{"Metais Totais/cobre", "Metais Totais/zinco", "Ânions/nitrato"}, order)
}

func TestCompareDuplicates_InvalidRequest(t *testing.T) {
	records := normalize(rec("G1", "A", "M", "Zinco", "1", "mg/L"))
	for _, req := range []DuplicateRequest{
		{Sample1: "", Sample2: "B"},
		{Sample1: "A", Sample2: " "},
		{Sample1: "A", Sample2: "A"},
		{Sample1: "A", Sample2: "B", TolerancePct: -1},
	} {
		_, err := CompareDuplicates(records, req)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
	}
}

func TestCompareDuplicates_NoRows(t *testing.T) {
	report, err := CompareDuplicates(nil, DuplicateRequest{Sample1: "A", Sample2: "B"})
	require.NoError(t, err)
	assert.Empty(t, report.Rows)
	assert.Equal(t, verdict.NoData, report.Status())
}

func TestListSampleNumbers(t *testing.T) {
	got := ListSampleNumbers([]measurement.Record{
		{SampleNumber: "B-2"}, {SampleNumber: " A-1 "}, {SampleNumber: "B-2"}, {SampleNumber: ""},
	})
	assert.Equal(t, []string{"A-1", "B-2"}, got)
}
