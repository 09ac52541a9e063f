package measurement

import "strings"

// CanonicalKey folds an analysis name into the key used for joining:
// accents stripped, lower-cased, trimmed, internal whitespace collapsed.
// Fraction words are kept; SuffixSet.Strip removes them where a checker
// needs that.
func CanonicalKey(raw string) string {
	return strings.Join(strings.Fields(Fold(raw)), " ")
}

// SuffixSet is a list of trailing words removed from canonical keys.
type SuffixSet []string

// DefaultPairingSuffixes are stripped before pairing a dissolved reading with
// its total counterpart.
var DefaultPairingSuffixes = SuffixSet{"dissolvido", "dissolvidos", "dissolved"}

// DefaultLegalSuffixes are stripped before alias resolution in the
// legislation checker; legal limits are stated per element.
var DefaultLegalSuffixes = SuffixSet{
	"dissolvido", "dissolvidos", "dissolved",
	"total", "totais",
	"lixiviado", "leachate",
	"solubilizado", "solubilized",
}

// Strip removes trailing suffix words from key until none matches.  Matching
// is word-bounded and case/accent-insensitive.  A key is never stripped to the
// empty string.
func (s SuffixSet) Strip(key string) string {
	key = CanonicalKey(key)
	suffixes := make([]string, 0, len(s))
	for _, suf := range s {
		if c := CanonicalKey(suf); c != "" {
			suffixes = append(suffixes, c)
		}
	}

	for {
		stripped := false
		for _, suf := range suffixes {
			if strings.HasSuffix(key, " "+suf) {
				key = strings.TrimSpace(strings.TrimSuffix(key, suf))
				stripped = true
				break
			}
		}
		if !stripped {
			return key
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Aliases
// ─────────────────────────────────────────────────────────────────────────────

// AliasMap maps synonym spellings to one canonical legal analyte name.  It is
// immutable once built.
type AliasMap struct {
	m map[string]string
}

// NewAliasMap canonicalises both sides of entries.
func NewAliasMap(entries map[string]string) AliasMap {
	m := make(map[string]string, len(entries))
	for from, to := range entries {
		k, v := CanonicalKey(from), CanonicalKey(to)
		if k == "" || v == "" {
			continue
		}
		m[k] = v
	}
	return AliasMap{m: m}
}

// Apply returns the legal name for key; unknown keys pass through
// canonicalised.
func (a AliasMap) Apply(key string) string {
	k := CanonicalKey(key)
	if v, ok := a.m[k]; ok {
		return v
	}
	return k
}

// Len returns the number of entries.
func (a AliasMap) Len() int { return len(a.m) }

// With returns a new AliasMap holding a's entries overlaid with extra.
func (a AliasMap) With(extra map[string]string) AliasMap {
	merged := make(map[string]string, len(a.m)+len(extra))
	for k, v := range a.m {
		merged[k] = v
	}
	for k, v := range NewAliasMap(extra).m {
		merged[k] = v
	}
	return AliasMap{m: merged}
}

var defaultAliases = NewAliasMap(map[string]string{
	// chromium
	"cromio":   "cromo",
	"chromium": "cromo",
	"cr":       "cromo",

	"cr+6":                "cromo hexavalente",
	"cr6":                 "cromo hexavalente",
	"cr 6":                "cromo hexavalente",
	"cr vi":               "cromo hexavalente",
	"crvi":                "cromo hexavalente",
	"cromio hexavalente":  "cromo hexavalente",
	"hexavalent chromium": "cromo hexavalente",

	"cr iii":             "cromo trivalente",
	"cr3+":               "cromo trivalente",
	"cromio trivalente":  "cromo trivalente",
	"trivalent chromium": "cromo trivalente",

	// lead
	"pb":   "chumbo",
	"lead": "chumbo",

	// arsenic, cadmium, mercury
	"as":      "arsenio",
	"arsenic": "arsenio",
	"cd":      "cadmio",
	"cadmium": "cadmio",
	"hg":      "mercurio",
	"mercury": "mercurio",

	// yttrium
	"yttrium": "itrio",
})

// DefaultAliases returns the built-in synonym table.
func DefaultAliases() AliasMap { return defaultAliases }

// ApplyAlias resolves key through DefaultAliases.
func ApplyAlias(key string) string { return defaultAliases.Apply(key) }

// LegalResolver maps an analysis name to the legal analyte name regulatory
// limits are keyed by: canonical key, legal suffixes stripped, alias applied.
// The catalog and the legislation checker must share one resolver so both
// sides of the lookup use the same path.
type LegalResolver struct {
	Suffixes SuffixSet
	Aliases  AliasMap
}

// DefaultLegalResolver uses DefaultLegalSuffixes and DefaultAliases.
func DefaultLegalResolver() LegalResolver {
	return LegalResolver{Suffixes: DefaultLegalSuffixes, Aliases: DefaultAliases()}
}

// Resolve returns the legal analyte name for raw.
func (l LegalResolver) Resolve(raw string) string {
	return l.Aliases.Apply(l.Suffixes.Strip(raw))
}
