package measurement

import "strings"

// Record is one measurement row as read from the laboratory export.  Values
// are kept verbatim; all interpretation happens in Normalizer.
type Record struct {
	SampleGroupID  string `json:"sample_group_id"`
	SampleNumber   string `json:"sample_number"`
	AnalysisName   string `json:"analysis_name"`
	AnalysisMethod string `json:"analysis_method"`
	RawValue       string `json:"raw_value"`
	RawUnit        string `json:"raw_unit"`

	// QuantificationLimit is nil when the input has no LQ column.
	QuantificationLimit *string `json:"quantification_limit,omitempty"`

	// Row is the 1-based data row in the source table, 0 when unknown.
	Row int `json:"row,omitempty"`
}

// Joinable reports whether the record carries a sample group id.  Records
// without one take part in no join.
func (r Record) Joinable() bool {
	return strings.TrimSpace(r.SampleGroupID) != ""
}

// LimitText returns the raw quantification limit or "".
func (r Record) LimitText() string {
	if r.QuantificationLimit == nil {
		return ""
	}
	return *r.QuantificationLimit
}

// ─────────────────────────────────────────────────────────────────────────────
// Fraction
// ─────────────────────────────────────────────────────────────────────────────

// Fraction is the sample preparation a result was obtained with.
type Fraction int

const (
	FractionNone Fraction = iota
	FractionDissolved
	FractionTotal
)

func (f Fraction) String() string {
	switch f {
	case FractionDissolved:
		return "dissolved"
	case FractionTotal:
		return "total"
	default:
		return "none"
	}
}

// Other returns the opposite fraction; FractionNone maps to itself.
func (f Fraction) Other() Fraction {
	switch f {
	case FractionDissolved:
		return FractionTotal
	case FractionTotal:
		return FractionDissolved
	default:
		return FractionNone
	}
}

// FractionMarkers are the substrings of analysis_method that identify each
// fraction.  Matching is case- and accent-insensitive.
type FractionMarkers struct {
	Dissolved []string
	Total     []string
}

// DefaultFractionMarkers covers the Portuguese LIMS labels and English.
func DefaultFractionMarkers() FractionMarkers {
	return FractionMarkers{
		Dissolved: []string{"dissolvidos", "dissolved"},
		Total:     []string{"totais", "total"},
	}
}

// Classify returns the fraction of an analysis method.  A method matching a
// dissolved marker is dissolved even when it also matches a total marker
// ("Metais Totais Dissolvidos").
func (m FractionMarkers) Classify(method string) Fraction {
	for _, marker := range m.Dissolved {
		if ContainsFolded(method, marker) {
			return FractionDissolved
		}
	}
	for _, marker := range m.Total {
		if ContainsFolded(method, marker) {
			return FractionTotal
		}
	}
	return FractionNone
}
