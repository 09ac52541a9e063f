package validation

import (
	"sort"

	"github.com/turtacn/OperaLab/internal/domain/verdict"
)

// AggregateInput gathers the checker outputs of one batch.
type AggregateInput struct {
	// SampleGroupIDs lists samples that must appear in the result even when
	// no checker produced a row for them.
	SampleGroupIDs []string

	DissolvedTotal []DissolvedTotalRow
	QC             []QCRow
	Duplicates     []DuplicateReport
	Legislation    *LegislationReport
}

// SampleVerdict is the verdict of one sample group.
type SampleVerdict struct {
	SampleGroupID string                     `json:"sample_group_id"`
	Status        verdict.Status             `json:"status"`
	Sources       map[Checker]verdict.Status `json:"sources"`
	QCFailed      bool                       `json:"qc_failed"`
}

// Aggregation holds the sample verdicts and the batch verdict.
type Aggregation struct {
	Samples []SampleVerdict `json:"samples"`
	Batch   verdict.Status  `json:"batch"`
}

// Tier projects a status onto the sample verdict vocabulary.  Informational
// and passing statuses both map to APPROVED.
func Tier(s verdict.Status) verdict.Status {
	switch s.Severity() {
	case verdict.SeverityFail:
		return verdict.NonConforming
	case verdict.SeverityAttention:
		return verdict.Attention
	case verdict.SeverityInconclusive:
		return verdict.Inconclusive
	default:
		return verdict.Approved
	}
}

// Aggregate computes the verdict of every sample group as the most severe
// checker output keyed to it, and the batch verdict as the most severe sample
// verdict.  A QC recovery failure forces NON_CONFORMING.  Rows without a
// sample group id are not attributed to any sample.  An empty batch is
// APPROVED.  Samples are ordered most severe first, then by id.
func Aggregate(in AggregateInput) Aggregation {
	samples := make(map[string]*SampleVerdict)
	get := func(id string) *SampleVerdict {
		sv, ok := samples[id]
		if !ok {
			sv = &SampleVerdict{SampleGroupID: id, Status: verdict.Approved, Sources: make(map[Checker]verdict.Status)}
			samples[id] = sv
		}
		return sv
	}
	add := func(id string, checker Checker, s verdict.Status) {
		if id == "" {
			return
		}
		sv := get(id)
		if prev, ok := sv.Sources[checker]; !ok || verdict.Compare(s, prev) > 0 {
			sv.Sources[checker] = s
		}
	}

	for _, id := range in.SampleGroupIDs {
		if id != "" {
			get(id)
		}
	}
	for _, row := range in.DissolvedTotal {
		add(row.SampleGroupID, CheckerDissolvedTotal, row.Status)
	}
	for _, row := range in.QC {
		add(row.SampleGroupID, CheckerQCRecovery, row.Status)
		if row.Status == verdict.NonConforming && row.SampleGroupID != "" {
			get(row.SampleGroupID).QCFailed = true
		}
	}
	for _, rep := range in.Duplicates {
		if len(rep.Rows) == 0 {
			continue
		}
		status := rep.Status()
		for _, id := range rep.SampleGroupIDs {
			add(id, CheckerDuplicates, status)
		}
	}
	if in.Legislation != nil {
		for _, r := range in.Legislation.Rollup {
			add(r.SampleGroupID, CheckerLegislation, r.Status)
		}
	}

	out := Aggregation{Batch: verdict.Approved}
	for _, sv := range samples {
		worst := verdict.Approved
		for _, s := range sv.Sources {
			worst = verdict.Max(worst, Tier(s))
		}
		if sv.QCFailed {
			worst = verdict.NonConforming
		}
		sv.Status = worst
		out.Samples = append(out.Samples, *sv)
		out.Batch = verdict.Max(out.Batch, worst)
	}

	sort.Slice(out.Samples, func(i, j int) bool {
		a, b := out.Samples[i], out.Samples[j]
		if c := verdict.Compare(a.Status, b.Status); c != 0 {
			return c > 0
		}
		return a.SampleGroupID < b.SampleGroupID
	})
	return out
}
