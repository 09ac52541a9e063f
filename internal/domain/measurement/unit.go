package measurement

import "strings"

// ReferenceUnit is the unit every concentration is converted to.
const ReferenceUnit = "mg/L"

// PercentUnit is the literal unit of QC recovery results.
const PercentUnit = "%"

// unitDivisors maps folded unit labels to the divisor that converts a value
// in that unit to mg/L.
var unitDivisors = map[string]float64{
	"mg/l":  1,
	"mg/l.": 1,
	"mg":    1,
	"ug/l":  1000,
	"ug":    1000,
}

// NormalizeUnitLabel folds a unit label for lookup: trimmed, lower-cased,
// accents removed, micro sign and Greek mu mapped to "u", spaces dropped.
func NormalizeUnitLabel(raw string) string {
	s := Fold(strings.TrimSpace(raw))
	s = strings.NewReplacer("µ", "u", "μ", "u", " ", "").Replace(s)
	return s
}

// IsSupportedUnit reports whether raw converts to mg/L.
func IsSupportedUnit(raw string) bool {
	_, ok := unitDivisors[NormalizeUnitLabel(raw)]
	return ok
}

// IsPercentUnit reports whether the raw unit, trimmed, is literally "%".
func IsPercentUnit(raw string) bool {
	return strings.TrimSpace(raw) == PercentUnit
}

// ToReferenceUnit converts value from rawUnit to mg/L.  It returns nil when
// value is nil, the unit is blank or the unit is not in the mg/L or µg/L
// family.  A nil result means "cannot evaluate", never zero.
func ToReferenceUnit(value *float64, rawUnit string) *float64 {
	if value == nil || strings.TrimSpace(rawUnit) == "" {
		return nil
	}
	div, ok := unitDivisors[NormalizeUnitLabel(rawUnit)]
	if !ok {
		return nil
	}
	out := *value / div
	return &out
}
