// Package verdict defines the closed status vocabulary produced by every
// checker and the total order used to aggregate it.  Display text lives in
// Label and is never used for decisions.
package verdict

import (
	"fmt"
	"sort"
	"strings"
)

// Status is a checker outcome.
type Status int

const (
	OK Status = iota
	Conforming
	Approved
	Inconclusive
	PotentialNonConforming
	Attention
	NonConforming
	NoData
	NoValidData
	NoLimit
	Unpaired
)

// Severity tiers, least to most severe.  Informational outcomes describe
// missing data and never raise a sample's verdict.
type Severity int

const (
	SeverityInformational Severity = iota
	SeverityPass
	SeverityInconclusive
	SeverityAttention
	SeverityFail
)

func (s Severity) String() string {
	switch s {
	case SeverityPass:
		return "pass"
	case SeverityInconclusive:
		return "inconclusive"
	case SeverityAttention:
		return "attention"
	case SeverityFail:
		return "fail"
	default:
		return "informational"
	}
}

type statusInfo struct {
	code     string
	severity Severity
	// rank orders statuses that share a severity, lower first.
	rank     int
	labelPT  string
	labelEN  string
}

var statusTable = map[Status]statusInfo{
	NoData:                 {"NO_DATA", SeverityInformational, 0, "Sem dados", "No data"},
	NoValidData:            {"NO_VALID_DATA", SeverityInformational, 1, "Sem dados válidos", "No valid data"},
	NoLimit:                {"NO_LIMIT", SeverityInformational, 2, "Sem limite", "No limit"},
	Unpaired:               {"UNPAIRED", SeverityInformational, 3, "Sem par para comparação", "No pair to compare"},
	Approved:               {"APPROVED", SeverityPass, 0, "APROVADO", "Approved"},
	Conforming:             {"CONFORMING", SeverityPass, 1, "Conforme", "Conforming"},
	OK:                     {"OK", SeverityPass, 2, "OK", "OK"},
	Inconclusive:           {"INCONCLUSIVE", SeverityInconclusive, 0, "INCONCLUSIVO", "Inconclusive"},
	Attention:              {"ATTENTION", SeverityAttention, 0, "ATENÇÃO", "Attention"},
	PotentialNonConforming: {"POTENTIAL_NON_CONFORMING", SeverityAttention, 1, "POTENCIAL NÃO CONFORME", "Potentially non-conforming"},
	NonConforming:          {"NON_CONFORMING", SeverityFail, 0, "NÃO CONFORME", "Non-conforming"},
}

// All returns every status, least severe first.
func All() []Status {
	out := make([]Status, 0, len(statusTable))
	for s := range statusTable {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return Compare(out[i], out[j]) < 0 })
	return out
}

// Valid reports whether s is a member of the vocabulary.
func (s Status) Valid() bool {
	_, ok := statusTable[s]
	return ok
}

// String returns the stable upper-snake code ("NON_CONFORMING").
func (s Status) String() string {
	if info, ok := statusTable[s]; ok {
		return info.code
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Severity returns the tier of s.
func (s Status) Severity() Severity {
	return statusTable[s].severity
}

// Informational reports whether s carries no severity.
func (s Status) Informational() bool {
	return s.Severity() == SeverityInformational
}

// Locale selects display text.
type Locale string

const (
	LocalePT Locale = "pt"
	LocaleEN Locale = "en"
)

// Label returns display text for s.  Unknown locales fall back to Portuguese,
// the language of the laboratory reports.
func (s Status) Label(locale Locale) string {
	info, ok := statusTable[s]
	if !ok {
		return s.String()
	}
	if strings.EqualFold(string(locale), string(LocaleEN)) {
		return info.labelEN
	}
	return info.labelPT
}

// Compare orders statuses by severity first and then by a fixed rank inside
// the tier.  It returns -1, 0 or +1.
func Compare(a, b Status) int {
	ia, ib := statusTable[a], statusTable[b]
	switch {
	case ia.severity != ib.severity:
		if ia.severity < ib.severity {
			return -1
		}
		return 1
	case ia.rank != ib.rank:
		if ia.rank < ib.rank {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// Max returns the most severe of the given statuses; with no arguments it
// returns NoData.
func Max(statuses ...Status) Status {
	if len(statuses) == 0 {
		return NoData
	}
	best := statuses[0]
	for _, s := range statuses[1:] {
		if Compare(s, best) > 0 {
			best = s
		}
	}
	return best
}

// Parse resolves a status code, case-insensitively.  Hyphens and spaces are
// accepted in place of underscores.
func Parse(code string) (Status, error) {
	c := strings.ToUpper(strings.NewReplacer("-", "_", " ", "_").Replace(strings.TrimSpace(code)))
	for s, info := range statusTable {
		if info.code == c {
			return s, nil
		}
	}
	return 0, fmt.Errorf("verdict: unknown status %q", code)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("verdict: invalid status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// SortByStatus stably sorts items so the most severe status comes first.
func SortByStatus[T any](items []T, status func(T) Status) {
	sort.SliceStable(items, func(i, j int) bool {
		return Compare(status(items[i]), status(items[j])) > 0
	})
}

// Verdict is a status with its explanation.
type Verdict struct {
	Status    Status `json:"status"`
	Rationale string `json:"rationale,omitempty"`
}
