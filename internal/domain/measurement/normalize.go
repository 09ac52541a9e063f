package measurement

import "strings"

// Normalized is a Record together with everything derived from it.  It is
// produced once per evaluation and never mutated.
type Normalized struct {
	Record

	// Parsed is RawValue read with the normaliser's number policy.
	Parsed ParsedValue

	// Concentration is Parsed converted to mg/L; nil when the value or the
	// unit cannot be used.
	Concentration *float64

	// Limit is the quantification limit read with the same policy.
	Limit ParsedValue

	// LimitConcentration is Limit converted to mg/L using RawUnit.
	LimitConcentration *float64

	// Key is the canonical analyte key with fraction words kept.
	Key string

	// PairKey is Key with the pairing suffixes stripped.
	PairKey string

	Fraction      Fraction
	UnitSupported bool
}

// Normalizer derives Normalized records.  The zero value is not usable; call
// NewNormalizer or fill every field.
type Normalizer struct {
	Policy          NumberPolicy
	Markers         FractionMarkers
	PairingSuffixes SuffixSet
}

// NewNormalizer returns a Normalizer with the default policy, markers and
// pairing suffixes.
func NewNormalizer() Normalizer {
	return Normalizer{
		Policy:          DecimalComma,
		Markers:         DefaultFractionMarkers(),
		PairingSuffixes: DefaultPairingSuffixes,
	}
}

// Normalize returns a fresh slice with one Normalized per input record, in
// input order.
func (n Normalizer) Normalize(records []Record) []Normalized {
	out := make([]Normalized, 0, len(records))
	for _, r := range records {
		out = append(out, n.normalizeOne(r))
	}
	return out
}

func (n Normalizer) normalizeOne(r Record) Normalized {
	r.SampleGroupID = strings.TrimSpace(r.SampleGroupID)
	parsed := n.Policy.Parse(r.RawValue)
	key := CanonicalKey(r.AnalysisName)

	nr := Normalized{
		Record:        r,
		Parsed:        parsed,
		Concentration: ToReferenceUnit(parsed.Value, r.RawUnit),
		Key:           key,
		PairKey:       n.PairingSuffixes.Strip(key),
		Fraction:      n.Markers.Classify(r.AnalysisMethod),
		UnitSupported: IsSupportedUnit(r.RawUnit),
	}
	if r.QuantificationLimit != nil {
		nr.Limit = n.Policy.Parse(*r.QuantificationLimit)
		nr.LimitConcentration = ToReferenceUnit(nr.Limit.Value, r.RawUnit)
	}
	return nr
}
