package validation

import (
	"fmt"
	"sort"

	"github.com/turtacn/OperaLab/internal/domain/measurement"
	"github.com/turtacn/OperaLab/internal/domain/verdict"
)

// DissolvedTotalOptions configures CompareDissolvedTotal.
type DissolvedTotalOptions struct {
	// Margin multiplies the reference side (total or its LQ) of every
	// exceedance comparison.  1.0 compares exactly; values <= 0 mean 1.0.
	Margin float64
}

func (o DissolvedTotalOptions) margin() float64 {
	if o.Margin <= 0 {
		return DefaultMargin
	}
	return o.Margin
}

// DissolvedTotalRow is one joined (dissolved, total) pair.
type DissolvedTotalRow struct {
	SampleGroupID          string         `json:"sample_group_id"`
	Analyte                string         `json:"analyte"`
	DissolvedConcentration *float64       `json:"dissolved_concentration"`
	TotalConcentration     *float64       `json:"total_concentration"`
	DissolvedCensored      bool           `json:"dissolved_censored"`
	TotalCensored          bool           `json:"total_censored"`
	Status                 verdict.Status `json:"status"`
	Rationale              string         `json:"rationale"`
}

type sampleAnalyte struct {
	id      string
	analyte string
}

// CompareDissolvedTotal pairs every dissolved reading with the total reading
// of the same analyte in the same sample and checks that dissolved never
// exceeds total.
//
// Records without a sample group id, outside both fractions or reported in
// percent (QC recoveries) are ignored.  Records whose concentration is
// unusable take no part in the pairing; when a (sample, analyte) has nothing
// else, one NO_VALID_DATA row keeps it visible.
// Several readings on one side produce the full cross product.  Rows are
// ordered by sample id and analyte, pairs in input order.
func CompareDissolvedTotal(records []measurement.Normalized, opts DissolvedTotalOptions) []DissolvedTotalRow {
	dissolved := make(map[sampleAnalyte][]*measurement.Normalized)
	total := make(map[sampleAnalyte][]*measurement.Normalized)
	seen := make(map[sampleAnalyte]struct{})

	for i := range records {
		r := &records[i]
		if !r.Joinable() || r.Fraction == measurement.FractionNone || measurement.IsPercentUnit(r.RawUnit) {
			continue
		}
		k := sampleAnalyte{id: r.SampleGroupID, analyte: r.PairKey}
		seen[k] = struct{}{}
		if r.Concentration == nil {
			continue
		}
		if r.Fraction == measurement.FractionDissolved {
			dissolved[k] = append(dissolved[k], r)
		} else {
			total[k] = append(total[k], r)
		}
	}

	keys := make([]sampleAnalyte, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].id != keys[j].id {
			return keys[i].id < keys[j].id
		}
		return keys[i].analyte < keys[j].analyte
	})

	margin := opts.margin()
	var rows []DissolvedTotalRow
	for _, k := range keys {
		ds, ts := dissolved[k], total[k]
		switch {
		case len(ds) == 0 && len(ts) == 0:
			rows = append(rows, newDissolvedTotalRow(k, nil, nil, margin))
		case len(ds) == 0:
			for _, t := range ts {
				rows = append(rows, newDissolvedTotalRow(k, nil, t, margin))
			}
		case len(ts) == 0:
			for _, d := range ds {
				rows = append(rows, newDissolvedTotalRow(k, d, nil, margin))
			}
		default:
			for _, d := range ds {
				for _, t := range ts {
					rows = append(rows, newDissolvedTotalRow(k, d, t, margin))
				}
			}
		}
	}
	return rows
}

func newDissolvedTotalRow(k sampleAnalyte, d, t *measurement.Normalized, margin float64) DissolvedTotalRow {
	row := DissolvedTotalRow{SampleGroupID: k.id, Analyte: k.analyte}
	if d != nil {
		row.DissolvedConcentration = d.Concentration
		row.DissolvedCensored = d.Parsed.Censored
	}
	if t != nil {
		row.TotalConcentration = t.Concentration
		row.TotalCensored = t.Parsed.Censored
	}
	v := classifyDissolvedTotal(d, t, margin)
	row.Status, row.Rationale = v.Status, v.Rationale
	return row
}

// classifyDissolvedTotal is the decision table for one pair.  Steps are
// evaluated in order and every input reaches exactly one outcome.
func classifyDissolvedTotal(d, t *measurement.Normalized, margin float64) verdict.Verdict {
	var dv, tv *float64
	if d != nil {
		dv = d.Concentration
	}
	if t != nil {
		tv = t.Concentration
	}

	switch {
	case dv == nil && tv == nil:
		return verdict.Verdict{Status: verdict.NoValidData, Rationale: "unit not supported or value missing"}
	case dv == nil:
		return verdict.Verdict{Status: verdict.Unpaired, Rationale: "total only"}
	case tv == nil:
		return verdict.Verdict{Status: verdict.Unpaired, Rationale: "dissolved only"}
	}

	dCens, tCens := d.Parsed.Censored, t.Parsed.Censored
	note := marginNote(margin)

	switch {
	case !dCens && !tCens:
		if *dv > *tv*margin {
			return verdict.Verdict{Status: verdict.NonConforming, Rationale: "dissolved exceeds total" + note}
		}
		return verdict.Verdict{Status: verdict.OK, Rationale: "dissolved within total" + note}

	case !dCens && tCens:
		lq := t.LimitConcentration
		if lq == nil {
			return verdict.Verdict{Status: verdict.Inconclusive, Rationale: "total below LQ; LQ missing or unit not supported"}
		}
		if *dv > *lq*margin {
			return verdict.Verdict{Status: verdict.PotentialNonConforming, Rationale: "total below LQ; dissolved exceeds LQ" + note}
		}
		return verdict.Verdict{Status: verdict.OK, Rationale: "total below LQ; dissolved within LQ" + note}

	case dCens && !tCens:
		if *dv <= *tv*margin {
			return verdict.Verdict{Status: verdict.OK, Rationale: "dissolved below LQ"}
		}
		return verdict.Verdict{Status: verdict.Inconclusive, Rationale: "dissolved below LQ; reported limit exceeds total"}

	default:
		return verdict.Verdict{Status: verdict.OK, Rationale: "both below LQ"}
	}
}

func marginNote(margin float64) string {
	if margin == 1 {
		return ""
	}
	return fmt.Sprintf(" (margin x%g)", margin)
}
