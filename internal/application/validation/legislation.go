package validation

import (
	"sort"

	"github.com/turtacn/OperaLab/internal/domain/measurement"
	"github.com/turtacn/OperaLab/internal/domain/regulation"
	"github.com/turtacn/OperaLab/internal/domain/verdict"
)

// LegislationRow is one analyte evaluated against a regulatory limit.
type LegislationRow struct {
	SampleGroupID string               `json:"sample_group_id"`
	Analyte       string               `json:"analyte"`
	LegalAnalyte  string               `json:"legal_analyte"`
	Fraction      measurement.Fraction `json:"-"`
	FractionName  string               `json:"fraction"`
	Concentration *float64             `json:"concentration"`
	Censored      bool                 `json:"censored"`
	Limit         *float64             `json:"limit"`
	Status        verdict.Status       `json:"status"`
	Rationale     string               `json:"rationale,omitempty"`
}

// SampleRollup is the per-sample legislation verdict.
type SampleRollup struct {
	SampleGroupID string         `json:"sample_group_id"`
	Status        verdict.Status `json:"status"`
}

// LegislationReport is the outcome of applying one regulation.
type LegislationReport struct {
	Regulation  string           `json:"regulation"`
	PreferTotal bool             `json:"prefer_total"`
	Rows        []LegislationRow `json:"rows"`
	Rollup      []SampleRollup   `json:"rollup"`
}

type sampleLegal struct {
	id    string
	legal string
}

// ApplyLegislation compares each sample's best available concentration of
// every analyte with the regulation's limit.  For each (sample, legal
// analyte) the preferred fraction is used; when it was not measured the
// other fraction is used instead.  Records with no fraction, no sample group
// id or a percent unit are not concentrations and are skipped.
//
// A sample fails when any of its analytes is NON_CONFORMING; otherwise it is
// APPROVED.  The function is pure: the same input yields the same report.
func ApplyLegislation(records []measurement.Normalized, reg regulation.Regulation, resolver measurement.LegalResolver) LegislationReport {
	report := LegislationReport{Regulation: reg.Name, PreferTotal: reg.PreferTotal}

	byFraction := map[measurement.Fraction]map[sampleLegal][]*measurement.Normalized{
		measurement.FractionDissolved: {},
		measurement.FractionTotal:     {},
	}
	seen := make(map[sampleLegal]struct{})
	for i := range records {
		r := &records[i]
		if !r.Joinable() || r.Fraction == measurement.FractionNone || measurement.IsPercentUnit(r.RawUnit) {
			continue
		}
		k := sampleLegal{id: r.SampleGroupID, legal: resolver.Resolve(r.AnalysisName)}
		byFraction[r.Fraction][k] = append(byFraction[r.Fraction][k], r)
		seen[k] = struct{}{}
	}

	keys := make([]sampleLegal, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].id != keys[j].id {
			return keys[i].id < keys[j].id
		}
		return keys[i].legal < keys[j].legal
	})

	preferred := reg.PreferredFraction()
	failed := make(map[string]bool)
	var ids []string
	for _, k := range keys {
		chosen := byFraction[preferred][k]
		if len(chosen) == 0 {
			chosen = byFraction[preferred.Other()][k]
		}
		if _, ok := failed[k.id]; !ok {
			failed[k.id] = false
			ids = append(ids, k.id)
		}
		for _, r := range chosen {
			row := legislationRow(k, r, reg)
			if row.Status == verdict.NonConforming {
				failed[k.id] = true
			}
			report.Rows = append(report.Rows, row)
		}
	}

	for _, id := range ids {
		status := verdict.Approved
		if failed[id] {
			status = verdict.NonConforming
		}
		report.Rollup = append(report.Rollup, SampleRollup{SampleGroupID: id, Status: status})
	}
	return report
}

func legislationRow(k sampleLegal, r *measurement.Normalized, reg regulation.Regulation) LegislationRow {
	row := LegislationRow{
		SampleGroupID: k.id,
		Analyte:       r.Key,
		LegalAnalyte:  k.legal,
		Fraction:      r.Fraction,
		FractionName:  r.Fraction.String(),
		Concentration: r.Concentration,
		Censored:      r.Parsed.Censored,
	}

	limit, ok := reg.Limit(k.legal)
	switch {
	case !ok:
		row.Status, row.Rationale = verdict.NoLimit, "no limit in "+reg.Name
		return row
	case r.Concentration == nil:
		row.Limit = &limit
		row.Status, row.Rationale = verdict.NoData, "unit not supported or value missing"
		return row
	}

	row.Limit = &limit
	if *r.Concentration <= limit {
		row.Status = verdict.Conforming
	} else {
		row.Status = verdict.NonConforming
	}
	if row.Censored {
		row.Rationale = "below LQ; compared at the reported limit"
	}
	return row
}
