package measurement

import (
	"math"
	"strconv"
	"strings"

	"github.com/turtacn/OperaLab/pkg/errors"
)

// CensorPrefix marks a value reported below its quantification limit.
const CensorPrefix = "<"

// Names accepted by PolicyByName and the input.number_policy setting.
const (
	PolicyNameDecimalComma = "decimal_comma"
	PolicyNameDecimalPoint = "decimal_point"
)

// NumberPolicy is the explicit locale convention used to read and write
// numbers.  The engine never guesses the convention per value: every "." in a
// DecimalComma input is a thousands separator, so "0.009" reads as 9.
type NumberPolicy struct {
	Name               string
	DecimalSeparator   rune
	ThousandsSeparator rune
}

var (
	// DecimalComma reads "1.234,5" as 1234.5.  It is the LIMS export convention
	// and the default.
	DecimalComma = NumberPolicy{Name: PolicyNameDecimalComma, DecimalSeparator: ',', ThousandsSeparator: '.'}

	// DecimalPoint reads "1,234.5" as 1234.5.
	DecimalPoint = NumberPolicy{Name: PolicyNameDecimalPoint, DecimalSeparator: '.', ThousandsSeparator: ','}
)

// PolicyByName resolves a policy name.  The empty name yields DecimalComma.
func PolicyByName(name string) (NumberPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyNameDecimalComma, "comma":
		return DecimalComma, nil
	case PolicyNameDecimalPoint, "point", "dot":
		return DecimalPoint, nil
	default:
		return NumberPolicy{}, errors.New(errors.ErrCodeInvalidPolicy, errors.DefaultMessageForCode(errors.ErrCodeInvalidPolicy)).WithDetail(name)
	}
}

// ParsedValue is the result of reading a raw value.  A nil Value means the
// input could not be read as a number; it is never a stand-in for zero.
type ParsedValue struct {
	Value    *float64
	Censored bool
}

// Valid reports whether a numeric value is present.
func (v ParsedValue) Valid() bool { return v.Value != nil }

// Float returns the numeric value and whether it is present.
func (v ParsedValue) Float() (float64, bool) {
	if v.Value == nil {
		return 0, false
	}
	return *v.Value, true
}

// Parse reads raw under policy p.  Leading and trailing space is ignored, a
// leading "<" sets Censored, every thousands separator is removed and the
// decimal separator becomes ".".  Parse never fails: unreadable input yields a
// nil Value while Censored still reflects the "<" prefix.
func (p NumberPolicy) Parse(raw string) ParsedValue {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ParsedValue{}
	}

	var out ParsedValue
	if strings.HasPrefix(s, CensorPrefix) {
		out.Censored = true
		s = strings.TrimSpace(strings.TrimPrefix(s, CensorPrefix))
	}

	s = strings.ReplaceAll(s, string(p.ThousandsSeparator), "")
	if p.DecimalSeparator != '.' {
		s = strings.ReplaceAll(s, string(p.DecimalSeparator), ".")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return out
	}
	out.Value = &f
	return out
}

// Format renders f with the policy's decimal separator and no grouping.
func (p NumberPolicy) Format(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if p.DecimalSeparator != '.' {
		s = strings.Replace(s, ".", string(p.DecimalSeparator), 1)
	}
	return s
}

// ParseValue parses raw with DecimalComma.
func ParseValue(raw string) ParsedValue {
	return DecimalComma.Parse(raw)
}
