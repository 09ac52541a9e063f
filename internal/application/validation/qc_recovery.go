package validation

import (
	"fmt"

	"github.com/turtacn/OperaLab/internal/domain/measurement"
	"github.com/turtacn/OperaLab/internal/domain/verdict"
)

// QCOptions configures EvaluateQCRecovery.
type QCOptions struct {
	// InternalStandards are matched as accent-insensitive substrings of the
	// canonical analyte key.
	InternalStandards []string
	MinPct            float64
	MaxPct            float64
}

// DefaultQCOptions accepts yttrium recoveries in the 70–130 % band.
func DefaultQCOptions() QCOptions {
	return QCOptions{
		InternalStandards: append([]string(nil), DefaultInternalStandards...),
		MinPct:            DefaultQCMinPct,
		MaxPct:            DefaultQCMaxPct,
	}
}

// QCRow is one internal-standard recovery result.
type QCRow struct {
	SampleGroupID string         `json:"sample_group_id"`
	SampleNumber  string         `json:"sample_number"`
	Method        string         `json:"method"`
	AnalysisName  string         `json:"analysis_name"`
	RecoveryPct   *float64       `json:"recovery_pct"`
	Status        verdict.Status `json:"status"`
	Rationale     string         `json:"rationale"`
}

// IsInternalStandard reports whether r is a QC recovery record under opts:
// an internal-standard analyte reported in "%".
func (o QCOptions) IsInternalStandard(r measurement.Normalized) bool {
	if !measurement.IsPercentUnit(r.RawUnit) {
		return false
	}
	for _, std := range o.InternalStandards {
		if measurement.ContainsFolded(r.Key, std) {
			return true
		}
	}
	return false
}

// EvaluateQCRecovery checks every internal-standard recovery against the
// accepted band, bounds inclusive.  Censoring is ignored; a recovery is a
// plain percentage.  Rows keep input order.
func EvaluateQCRecovery(records []measurement.Normalized, opts QCOptions) []QCRow {
	band := fmt.Sprintf("%g–%g%%", opts.MinPct, opts.MaxPct)

	var rows []QCRow
	for _, r := range records {
		if !opts.IsInternalStandard(r) {
			continue
		}
		row := QCRow{
			SampleGroupID: r.SampleGroupID,
			SampleNumber:  r.SampleNumber,
			Method:        r.AnalysisMethod,
			AnalysisName:  r.AnalysisName,
			RecoveryPct:   r.Parsed.Value,
		}
		rec, ok := r.Parsed.Float()
		switch {
		case !ok:
			row.Status, row.Rationale = verdict.NoData, "recovery value missing or invalid"
		case rec >= opts.MinPct && rec <= opts.MaxPct:
			row.Status, row.Rationale = verdict.OK, "recovery within "+band
		default:
			row.Status, row.Rationale = verdict.NonConforming, "recovery outside "+band
		}
		rows = append(rows, row)
	}
	return rows
}
