package validation

import (
	"math"
	"sort"
	"strings"

	"github.com/turtacn/OperaLab/internal/domain/measurement"
	"github.com/turtacn/OperaLab/internal/domain/verdict"
	"github.com/turtacn/OperaLab/pkg/errors"
)

// RPD is the relative percent difference |v1-v2| / mean * 100.  It is 0 when
// v1+v2 is 0.
func RPD(v1, v2 float64) float64 {
	sum := v1 + v2
	if sum == 0 {
		return 0
	}
	return math.Abs(v1-v2) / (sum / 2) * 100
}

// DuplicateRequest names the two samples to compare.
type DuplicateRequest struct {
	Sample1 string `json:"sample1"`
	Sample2 string `json:"sample2"`

	// TolerancePct is the maximum accepted RPD; 0 means DefaultTolerancePct.
	TolerancePct float64 `json:"tolerance_pct,omitempty"`
}

func (r DuplicateRequest) validate() (DuplicateRequest, error) {
	r.Sample1, r.Sample2 = strings.TrimSpace(r.Sample1), strings.TrimSpace(r.Sample2)
	switch {
	case r.Sample1 == "" || r.Sample2 == "":
		return r, errors.InvalidParam("both sample numbers are required")
	case r.Sample1 == r.Sample2:
		return r, errors.InvalidParam("a sample cannot be compared with itself").WithDetail(r.Sample1)
	case r.TolerancePct < 0 || math.IsNaN(r.TolerancePct) || math.IsInf(r.TolerancePct, 0):
		return r, errors.InvalidParam("tolerance must be a finite non-negative percentage")
	}
	if r.TolerancePct == 0 {
		r.TolerancePct = DefaultTolerancePct
	}
	return r, nil
}

// DuplicateRow is one analyte compared across the two samples.
type DuplicateRow struct {
	Method          string         `json:"method"`
	Analyte         string         `json:"analyte"`
	Unit            string         `json:"unit"`
	ValueSample1    *float64       `json:"value_sample1"`
	ValueSample2    *float64       `json:"value_sample2"`
	CensoredSample1 bool           `json:"censored_sample1"`
	CensoredSample2 bool           `json:"censored_sample2"`
	RPDPct          *float64       `json:"rpd_pct"`
	Status          verdict.Status `json:"status"`
	Rationale       string         `json:"rationale"`
}

// DuplicateReport is the outcome of one duplicate comparison.
type DuplicateReport struct {
	Sample1      string  `json:"sample1"`
	Sample2      string  `json:"sample2"`
	TolerancePct float64 `json:"tolerance_pct"`

	// SampleGroupIDs holds the group ids the two sample numbers belong to, so
	// the verdict can be attributed to samples.
	SampleGroupIDs []string `json:"sample_group_ids"`

	Rows []DuplicateRow `json:"rows"`
}

// Status is the most severe row status; NO_DATA when there are no rows.
func (r DuplicateReport) Status() verdict.Status {
	statuses := make([]verdict.Status, 0, len(r.Rows))
	for _, row := range r.Rows {
		statuses = append(statuses, row.Status)
	}
	return verdict.Max(statuses...)
}

type methodAnalyte struct {
	method  string
	analyte string
}

// CompareDuplicates compares the readings of two sample numbers analyte by
// analyte.  Percent results are excluded.  Rows are joined on (method,
// analyte); repeated readings produce the full cross product.  Rows are
// ordered most severe first, then by method and analyte.
func CompareDuplicates(records []measurement.Normalized, req DuplicateRequest) (DuplicateReport, error) {
	req, err := req.validate()
	if err != nil {
		return DuplicateReport{}, err
	}

	report := DuplicateReport{Sample1: req.Sample1, Sample2: req.Sample2, TolerancePct: req.TolerancePct}

	side1 := make(map[methodAnalyte][]*measurement.Normalized)
	side2 := make(map[methodAnalyte][]*measurement.Normalized)
	var keys []methodAnalyte
	groups := make(map[string]struct{})

	for i := range records {
		r := &records[i]
		number := strings.TrimSpace(r.SampleNumber)
		if number != req.Sample1 && number != req.Sample2 {
			continue
		}
		if r.Joinable() {
			groups[r.SampleGroupID] = struct{}{}
		}
		if measurement.IsPercentUnit(r.RawUnit) {
			continue
		}
		k := methodAnalyte{method: strings.TrimSpace(r.AnalysisMethod), analyte: r.Key}
		if _, ok := side1[k]; !ok {
			if _, ok := side2[k]; !ok {
				keys = append(keys, k)
			}
		}
		if number == req.Sample1 {
			side1[k] = append(side1[k], r)
		} else {
			side2[k] = append(side2[k], r)
		}
	}

	for _, k := range keys {
		a, b := side1[k], side2[k]
		if len(a) == 0 {
			a = []*measurement.Normalized{nil}
		}
		if len(b) == 0 {
			b = []*measurement.Normalized{nil}
		}
		for _, r1 := range a {
			for _, r2 := range b {
				report.Rows = append(report.Rows, newDuplicateRow(k, r1, r2, req.TolerancePct))
			}
		}
	}

	sort.SliceStable(report.Rows, func(i, j int) bool {
		ri, rj := report.Rows[i], report.Rows[j]
		if c := verdict.Compare(ri.Status, rj.Status); c != 0 {
			return c > 0
		}
		if ri.Method != rj.Method {
			return ri.Method < rj.Method
		}
		return ri.Analyte < rj.Analyte
	})

	for id := range groups {
		report.SampleGroupIDs = append(report.SampleGroupIDs, id)
	}
	sort.Strings(report.SampleGroupIDs)
	return report, nil
}

func newDuplicateRow(k methodAnalyte, r1, r2 *measurement.Normalized, tolerance float64) DuplicateRow {
	row := DuplicateRow{Method: k.method, Analyte: k.analyte}
	if r1 != nil {
		row.Unit = r1.RawUnit
		row.ValueSample1 = r1.Concentration
		row.CensoredSample1 = r1.Parsed.Censored
	}
	if r2 != nil {
		if row.Unit == "" {
			row.Unit = r2.RawUnit
		}
		row.ValueSample2 = r2.Concentration
		row.CensoredSample2 = r2.Parsed.Censored
	}

	v1, v2 := row.ValueSample1, row.ValueSample2
	c1, c2 := row.CensoredSample1, row.CensoredSample2
	switch {
	case v1 == nil && v2 == nil:
		row.Status, row.Rationale = verdict.NoData, "values missing"
	case v1 == nil || v2 == nil:
		row.Status, row.Rationale = verdict.Unpaired, "value missing for one sample"
	case c1 && c2:
		row.Status, row.Rationale = verdict.OK, "both below LQ"
	case c1 || c2:
		row.Status, row.Rationale = verdict.Inconclusive, "one value below LQ"
	default:
		rpd := RPD(*v1, *v2)
		row.RPDPct = &rpd
		if rpd <= tolerance {
			row.Status, row.Rationale = verdict.Conforming, "RPD within tolerance"
		} else {
			row.Status, row.Rationale = verdict.NonConforming, "RPD exceeds tolerance"
		}
	}
	return row
}

// ListSampleNumbers returns the distinct, sorted sample numbers in records.
func ListSampleNumbers(records []measurement.Record) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range records {
		n := strings.TrimSpace(r.SampleNumber)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
