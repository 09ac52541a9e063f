// Package reporting stores evaluation reports, renders their result tables
// and exports them to storage sinks.
package reporting

import (
	"github.com/turtacn/OperaLab/internal/application/validation"
	"github.com/turtacn/OperaLab/internal/domain/measurement"
	"github.com/turtacn/OperaLab/internal/domain/verdict"
	"github.com/turtacn/OperaLab/internal/infrastructure/tabular"
)

// Result table names.  They double as export file stems.
const (
	TableDissolvedTotal    = "dissolved_total"
	TableQC                = "qc_recovery"
	TableDuplicates        = "duplicates"
	TableLegislation       = "legislation"
	TableLegislationRollup = "legislation_rollup"
	TableSamples           = "samples"
)

// TableNames lists every table in export order.
var TableNames = []string{
	TableSamples,
	TableDissolvedTotal,
	TableQC,
	TableDuplicates,
	TableLegislation,
	TableLegislationRollup,
}

// Renderer turns report sections into tabular.Tables.
type Renderer struct {
	Writer *tabular.Writer
	Locale verdict.Locale
}

// NewRenderer returns a Renderer.  A nil writer uses ';' and DecimalComma.
func NewRenderer(w *tabular.Writer, locale verdict.Locale) *Renderer {
	if w == nil {
		w = tabular.NewWriter(0, measurement.DecimalComma)
	}
	if locale == "" {
		locale = verdict.LocalePT
	}
	return &Renderer{Writer: w, Locale: locale}
}

// Tables renders every table of r that has at least one row, in TableNames
// order.
func (rd *Renderer) Tables(r *validation.Report) []tabular.Table {
	var out []tabular.Table
	for _, name := range TableNames {
		t, _ := rd.Table(r, name)
		if t.Len() > 0 {
			out = append(out, t)
		}
	}
	return out
}

// Table renders one table by name.  The boolean is false for unknown names.
func (rd *Renderer) Table(r *validation.Report, name string) (tabular.Table, bool) {
	switch name {
	case TableDissolvedTotal:
		return rd.dissolvedTotal(r), true
	case TableQC:
		return rd.qc(r), true
	case TableDuplicates:
		return rd.duplicates(r), true
	case TableLegislation:
		return rd.legislation(r), true
	case TableLegislationRollup:
		return rd.legislationRollup(r), true
	case TableSamples:
		return rd.samples(r), true
	default:
		return tabular.Table{Name: name}, false
	}
}

// Bytes renders one table as delimited text.
func (rd *Renderer) Bytes(t tabular.Table) ([]byte, error) {
	return rd.Writer.Bytes(t)
}

func (rd *Renderer) status(s verdict.Status) (string, string) {
	return s.String(), s.Label(rd.Locale)
}

func (rd *Renderer) dissolvedTotal(r *validation.Report) tabular.Table {
	t := tabular.Table{
		Name: TableDissolvedTotal,
		Header: []string{"sample_group_id", "analyte", "dissolved_mg_l", "total_mg_l",
			"dissolved_censored", "total_censored", "status", "status_label", "rationale"},
	}
	for _, row := range r.DissolvedTotal {
		code, label := rd.status(row.Status)
		t.Rows = append(t.Rows, []string{
			row.SampleGroupID,
			row.Analyte,
			rd.Writer.Number(row.DissolvedConcentration),
			rd.Writer.Number(row.TotalConcentration),
			tabular.YesNo(row.DissolvedCensored),
			tabular.YesNo(row.TotalCensored),
			code, label, row.Rationale,
		})
	}
	return t
}

func (rd *Renderer) qc(r *validation.Report) tabular.Table {
	t := tabular.Table{
		Name:   TableQC,
		Header: []string{"sample_group_id", "sample_number", "method", "analysis", "recovery_pct", "status", "status_label", "rationale"},
	}
	for _, row := range r.QC {
		code, label := rd.status(row.Status)
		t.Rows = append(t.Rows, []string{
			row.SampleGroupID, row.SampleNumber, row.Method, row.AnalysisName,
			rd.Writer.Number(row.RecoveryPct),
			code, label, row.Rationale,
		})
	}
	return t
}

func (rd *Renderer) duplicates(r *validation.Report) tabular.Table {
	t := tabular.Table{
		Name: TableDuplicates,
		Header: []string{"sample1", "sample2", "method", "analyte", "unit", "value_sample1", "value_sample2",
			"censored_sample1", "censored_sample2", "rpd_pct", "tolerance_pct", "status", "status_label", "rationale"},
	}
	for _, rep := range r.Duplicates {
		tol := rep.TolerancePct
		for _, row := range rep.Rows {
			code, label := rd.status(row.Status)
			t.Rows = append(t.Rows, []string{
				rep.Sample1, rep.Sample2, row.Method, row.Analyte, row.Unit,
				rd.Writer.Number(row.ValueSample1),
				rd.Writer.Number(row.ValueSample2),
				tabular.YesNo(row.CensoredSample1),
				tabular.YesNo(row.CensoredSample2),
				rd.Writer.Number(row.RPDPct),
				rd.Writer.Number(&tol),
				code, label, row.Rationale,
			})
		}
	}
	return t
}

func (rd *Renderer) legislation(r *validation.Report) tabular.Table {
	t := tabular.Table{
		Name: TableLegislation,
		Header: []string{"regulation", "sample_group_id", "analyte", "legal_analyte", "fraction",
			"concentration_mg_l", "censored", "limit_mg_l", "status", "status_label", "rationale"},
	}
	if r.Legislation == nil {
		return t
	}
	for _, row := range r.Legislation.Rows {
		code, label := rd.status(row.Status)
		t.Rows = append(t.Rows, []string{
			r.Legislation.Regulation, row.SampleGroupID, row.Analyte, row.LegalAnalyte, row.FractionName,
			rd.Writer.Number(row.Concentration),
			tabular.YesNo(row.Censored),
			rd.Writer.Number(row.Limit),
			code, label, row.Rationale,
		})
	}
	return t
}

func (rd *Renderer) legislationRollup(r *validation.Report) tabular.Table {
	t := tabular.Table{
		Name:   TableLegislationRollup,
		Header: []string{"regulation", "sample_group_id", "status", "status_label"},
	}
	if r.Legislation == nil {
		return t
	}
	for _, row := range r.Legislation.Rollup {
		code, label := rd.status(row.Status)
		t.Rows = append(t.Rows, []string{r.Legislation.Regulation, row.SampleGroupID, code, label})
	}
	return t
}

var sampleSources = []validation.Checker{
	validation.CheckerDissolvedTotal,
	validation.CheckerQCRecovery,
	validation.CheckerDuplicates,
	validation.CheckerLegislation,
}

func (rd *Renderer) samples(r *validation.Report) tabular.Table {
	header := []string{"sample_group_id", "status", "status_label", "qc_failed"}
	for _, c := range sampleSources {
		header = append(header, string(c))
	}
	t := tabular.Table{Name: TableSamples, Header: header}
	for _, s := range r.Samples {
		code, label := rd.status(s.Status)
		row := []string{s.SampleGroupID, code, label, tabular.YesNo(s.QCFailed)}
		for _, c := range sampleSources {
			src := ""
			if st, ok := s.Sources[c]; ok {
				src = st.String()
			}
			row = append(row, src)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
