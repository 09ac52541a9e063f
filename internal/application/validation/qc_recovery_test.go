package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/OperaLab/internal/domain/verdict"
)

func TestEvaluateQCRecovery(t *testing.T) {
	rows := EvaluateQCRecovery(normalize(
		rec("S1", "101", "Metais Totais", "Yttrium", "65", "%"),
		rec("S2", "102", "Metais Totais", "Ítrio", "70", "%"),
		rec("S3", "103", "Metais Totais", "Itrio (recuperação)", "130,0", " % "),
		rec("S4", "104", "Metais Totais", "Ítrio", "130,1", "%"),
		rec("S5", "105", "Metais Totais", "Ítrio", "", "%"),
		rec("S6", "106", "Metais Totais", "Ítrio", "0,05", "mg/L"),
		rec("S7", "107", "Metais Totais", "Chumbo", "98", "%"),
	), DefaultQCOptions())

	require.Len(t, rows, 5)
	want := []verdict.Status{verdict.NonConforming, verdict.OK, verdict.OK, verdict.NonConforming, verdict.NoData}
	for i, row := range rows {
		assert.Equal(t, want[i], row.Status, row.SampleGroupID)
	}
	assert.Equal(t, "101", rows[0].SampleNumber)
	assert.Equal(t, "Yttrium", rows[0].AnalysisName)
	requireFloat(t, 65, rows[0].RecoveryPct)
	assert.Equal(t, "recovery outside 70–130%", rows[0].Rationale)
	assert.Nil(t, rows[4].RecoveryPct)
}

func TestEvaluateQCRecovery_IgnoresCensoring(t *testing.T) {
	rows := EvaluateQCRecovery(normalize(rec("S1", "1", "M", "Ítrio", "<95", "%")), DefaultQCOptions())
	require.Len(t, rows, 1)
	assert.Equal(t, verdict.OK, rows[0].Status)
}

func TestEvaluateQCRecovery_CustomBandAndStandard(t *testing.T) {
	opts := QCOptions{InternalStandards: []string{"Escândio"}, MinPct: 80, MaxPct: 120}
	rows := EvaluateQCRecovery(normalize(
		rec("S1", "1", "M", "Escandio", "75", "%"),
		rec("S1", "1", "M", "Ítrio", "75", "%"),
	), opts)
	require.Len(t, rows, 1)
	assert.Equal(t, verdict.NonConforming, rows[0].Status)
	assert.Equal(t, "recovery outside 80–120%", rows[0].Rationale)
}
