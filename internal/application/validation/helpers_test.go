package validation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turtacn/OperaLab/internal/domain/measurement"
)

func rec(id, number, method, name, value, unit string) measurement.Record {
	return measurement.Record{
		SampleGroupID:  id,
		SampleNumber:   number,
		AnalysisMethod: method,
		AnalysisName:   name,
		RawValue:       value,
		RawUnit:        unit,
	}
}

func withLQ(r measurement.Record, lq string) measurement.Record {
	r.QuantificationLimit = &lq
	return r
}

func normalize(records ...measurement.Record) []measurement.Normalized {
	return measurement.NewNormalizer().Normalize(records)
}

func requireFloat(t *testing.T, want float64, got *float64) {
	t.Helper()
	require.NotNil(t, got)
	require.InDelta(t, want, *got, 1e-9)
}
