package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/OperaLab/internal/domain/measurement"
	"github.com/turtacn/OperaLab/internal/domain/regulation"
	"github.com/turtacn/OperaLab/internal/domain/verdict"
)

func testRegulation(t *testing.T, preferTotal bool, limits map[string]float64) regulation.Regulation {
	t.Helper()
	cat, err := regulation.NewCatalog(map[string]regulation.Regulation{
		"CONAMA 430": {Limits: limits, PreferTotal: preferTotal},
	}, measurement.DefaultLegalResolver())
	require.NoError(t, err)
	reg, err := cat.Get("CONAMA 430")
	require.NoError(t, err)
	return reg
}

func TestApplyLegislation_LeadExceedsLimit(t *testing.T) {
	reg := testRegulation(t, true, map[string]float64{"Lead": 0.01})
	report := ApplyLegislation(normalize(
		rec("S1", "1", "Metals Total", "Lead", "0,015", "mg/L"),
	), reg, measurement.DefaultLegalResolver())

	require.Len(t, report.Rows, 1)
	row := report.Rows[0]
	assert.Equal(t, "chumbo", row.LegalAnalyte)
	assert.Equal(t, "total", row.FractionName)
	requireFloat(t, 0.015, row.Concentration)
	requireFloat(t, 0.01, row.Limit)
	assert.Equal(t, verdict.NonConforming, row.Status)
	assert.Equal(t, []SampleRollup{{SampleGroupID: "S1", Status: verdict.NonConforming}}, report.Rollup)
}

func TestApplyLegislation_PreferredFractionAndFallback(t *testing.T) {
	records := normalize(
		rec("S1", "1", "Metais Totais", "Chumbo Total", "0,02", "mg/L"),
		rec("S1", "1", "Metais Dissolvidos", "Chumbo Dissolvido", "0,005", "mg/L"),
		rec("S2", "2", "Metais Dissolvidos", "Pb", "0,005", "mg/L"),
	)

	total := ApplyLegislation(records, testRegulation(t, true, map[string]float64{"chumbo": 0.01}), measurement.DefaultLegalResolver())
	require.Len(t, total.Rows, 2)
	assert.Equal(t, measurement.FractionTotal, total.Rows[0].Fraction)
	assert.Equal(t, verdict.NonConforming, total.Rows[0].Status)
	// S2 has no total reading and falls back to dissolved
	assert.Equal(t, measurement.FractionDissolved, total.Rows[1].Fraction)
	assert.Equal(t, verdict.Conforming, total.Rows[1].Status)
	assert.Equal(t, []SampleRollup{
		{SampleGroupID: "S1", Status: verdict.NonConforming},
		{SampleGroupID: "S2", Status: verdict.Approved},
	}, total.Rollup)

	dissolved := ApplyLegislation(records, testRegulation(t, false, map[string]float64{"chumbo": 0.01}), measurement.DefaultLegalResolver())
	require.Len(t, dissolved.Rows, 2)
	assert.Equal(t, measurement.FractionDissolved, dissolved.Rows[0].Fraction)
	assert.Equal(t, verdict.Conforming, dissolved.Rows[0].Status)
	assert.Equal(t, verdict.Approved, dissolved.Rollup[0].Status)
}

func TestApplyLegislation_NoLimitNoDataAndCensored(t *testing.T) {
	reg := testRegulation(t, true, map[string]float64{"cadmio": 0.001, "zinco": 5})
	report := ApplyLegislation(normalize(
		rec("S1", "1", "Metais Totais", "Cobre", "1", "mg/L"),
		rec("S1", "1", "Metais Totais", "Cádmio", "<0,001", "mg/L"),
		rec("S1", "1", "Metais Totais", "Zinco", "3", "mg/kg"),
		rec("S1", "1", "Metais Totais", "Ítrio", "95", "%"),
		rec("S1", "1", "pH", "Zinco", "7", "mg/L"),
		rec("", "1", "Metais Totais", "Zinco", "99", "mg/L"),
	), reg, measurement.DefaultLegalResolver())

	require.Len(t, report.Rows, 3)
	byAnalyte := make(map[string]LegislationRow)
	for _, r := range report.Rows {
		byAnalyte[r.LegalAnalyte] = r
	}

	assert.Equal(t, verdict.NoLimit, byAnalyte["cobre"].Status)
	assert.Equal(t, "no limit in CONAMA 430", byAnalyte["cobre"].Rationale)
	assert.Nil(t, byAnalyte["cobre"].Limit)

	assert.Equal(t, verdict.Conforming, byAnalyte["cadmio"].Status)
	assert.True(t, byAnalyte["cadmio"].Censored)
	assert.Equal(t, "below LQ; compared at the reported limit", byAnalyte["cadmio"].Rationale)

	assert.Equal(t, verdict.NoData, byAnalyte["zinco"].Status)
	assert.Equal(t, verdict.Approved, report.Rollup[0].Status)
}

func TestApplyLegislation_Idempotent(t *testing.T) {
	reg := testRegulation(t, true, map[string]float64{"chumbo": 0.01, "cromo": 0.05})
	records := normalize(
		rec("S2", "2", "Metais Totais", "Cromo", "0,1", "mg/L"),
		rec("S1", "1", "Metais Totais", "Chumbo", "5", "ug/L"),
		rec("S1", "1", "Metais Totais", "Cromio", "0,01", "mg/L"),
	)
	first := ApplyLegislation(records, reg, measurement.DefaultLegalResolver())
	second := ApplyLegislation(records, reg, measurement.DefaultLegalResolver())
	assert.Equal(t, first, second)

	require.Len(t, first.Rows, 3)
	assert.Equal(t, "S1", first.Rows[0].SampleGroupID)
	assert.Equal(t, "chumbo", first.Rows[0].LegalAnalyte)
	requireFloat(t, 0.005, first.Rows[0].Concentration)
	assert.Equal(t, verdict.NonConforming, first.Rollup[1].Status)
}

func TestApplyLegislation_Empty(t *testing.T) {
	report := ApplyLegislation(nil, testRegulation(t, true, nil), measurement.DefaultLegalResolver())
	assert.Empty(t, report.Rows)
	assert.Empty(t, report.Rollup)
	assert.Equal(t, "CONAMA 430", report.Regulation)
}
