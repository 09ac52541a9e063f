package client

import "time"

// Record is one analytical result row as exported by the LIMS.
type Record struct {
	SampleGroupID       string  `json:"sample_group_id"`
	SampleNumber        string  `json:"sample_number"`
	AnalysisName        string  `json:"analysis_name"`
	AnalysisMethod      string  `json:"analysis_method"`
	RawValue            string  `json:"raw_value"`
	RawUnit             string  `json:"raw_unit"`
	QuantificationLimit *string `json:"quantification_limit,omitempty"`
}

// RecordsInput carries a record set as structured records or as pasted
// delimited text.  The server prefers CSV when both are set.
type RecordsInput struct {
	Records []Record `json:"records,omitempty"`
	CSV     string   `json:"csv,omitempty"`
	Source  string   `json:"source,omitempty"`
}

// DuplicatePair names two samples to compare.  A zero TolerancePct uses the
// server default.
type DuplicatePair struct {
	Sample1      string  `json:"sample1"`
	Sample2      string  `json:"sample2"`
	TolerancePct float64 `json:"tolerance_pct,omitempty"`
}

// EvaluateInput is the body of an evaluation.
type EvaluateInput struct {
	RecordsInput
	Regulation string          `json:"regulation,omitempty"`
	Duplicates []DuplicatePair `json:"duplicates,omitempty"`
}

// SampleVerdict is the aggregated status of one sample group.
type SampleVerdict struct {
	SampleGroupID string            `json:"sample_group_id"`
	Status        string            `json:"status"`
	Sources       map[string]string `json:"sources"`
	QCFailed      bool              `json:"qc_failed"`
}

// DuplicateRow compares one analyte between two samples.
type DuplicateRow struct {
	Method       string   `json:"method"`
	Analyte      string   `json:"analyte"`
	Unit         string   `json:"unit"`
	ValueSample1 *float64 `json:"value_sample1"`
	ValueSample2 *float64 `json:"value_sample2"`
	RPDPct       *float64 `json:"rpd_pct"`
	Status       string   `json:"status"`
	Rationale    string   `json:"rationale"`
}

// DuplicateReport is the outcome of one duplicate comparison.
type DuplicateReport struct {
	Sample1        string         `json:"sample1"`
	Sample2        string         `json:"sample2"`
	TolerancePct   float64        `json:"tolerance_pct"`
	SampleGroupIDs []string       `json:"sample_group_ids"`
	Rows           []DuplicateRow `json:"rows"`
}

// DuplicateResult is the response of a standalone duplicate check.
type DuplicateResult struct {
	Status string          `json:"status"`
	Report DuplicateReport `json:"report"`
}

// LegislationRow compares one analyte to its legal limit.
type LegislationRow struct {
	SampleGroupID string   `json:"sample_group_id"`
	Analyte       string   `json:"analyte"`
	LegalAnalyte  string   `json:"legal_analyte"`
	Fraction      string   `json:"fraction"`
	Concentration *float64 `json:"concentration"`
	Censored      bool     `json:"censored"`
	Limit         *float64 `json:"limit"`
	Status        string   `json:"status"`
	Rationale     string   `json:"rationale,omitempty"`
}

// SampleRollup is the legislation status of one sample group.
type SampleRollup struct {
	SampleGroupID string `json:"sample_group_id"`
	Status        string `json:"status"`
}

// LegislationReport is the outcome of a legislation check.
type LegislationReport struct {
	Regulation  string           `json:"regulation"`
	PreferTotal bool             `json:"prefer_total"`
	Rows        []LegislationRow `json:"rows"`
	Rollup      []SampleRollup   `json:"rollup"`
}

// Report is a complete evaluation.  Per-checker detail rows other than
// duplicates and legislation are fetched as tables.
type Report struct {
	ID          string             `json:"id"`
	Source      string             `json:"source,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	RecordCount int                `json:"record_count"`
	Duplicates  []DuplicateReport  `json:"duplicates,omitempty"`
	Legislation *LegislationReport `json:"legislation,omitempty"`
	Samples     []SampleVerdict    `json:"samples"`
	Batch       string             `json:"batch"`
}

// ExportInput selects a stored report by ID or evaluates the inline records.
type ExportInput struct {
	EvaluateInput
	ReportID string `json:"report_id,omitempty"`
}

// Export maps table names to delimited text.
type Export struct {
	ReportID string            `json:"report_id"`
	Batch    string            `json:"batch"`
	Tables   map[string]string `json:"tables"`
	Names    []string          `json:"names"`
}

// Regulation is one catalog entry.
type Regulation struct {
	Name        string             `json:"name"`
	Limits      map[string]float64 `json:"limits_mgL"`
	PreferTotal bool               `json:"prefer_total"`
	Matrices    []string           `json:"matrices,omitempty"`
	Description string             `json:"description,omitempty"`
}

// ListRegulationsOptions filters catalog listings.
type ListRegulationsOptions struct {
	Filter string
	Matrix string
}
