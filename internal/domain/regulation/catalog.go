// Package regulation models regulatory limit sets ("especificações", VMP) and
// the read-only catalog that holds them.
package regulation

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/turtacn/OperaLab/internal/domain/measurement"
	"github.com/turtacn/OperaLab/pkg/errors"
)

// Regulation is one named limit set.
type Regulation struct {
	Name string `json:"name"`

	// Limits maps legal analyte names to the maximum permitted concentration
	// in mg/L.  Inside a Catalog the keys are already resolved.
	Limits map[string]float64 `json:"limits_mgL"`

	// PreferTotal selects the total fraction when both fractions were
	// measured; otherwise the dissolved fraction is preferred.
	PreferTotal bool `json:"prefer_total"`

	// Matrices lists the sample matrix codes the regulation applies to
	// (drinking water, effluent, soil leachate...).
	Matrices []string `json:"matrices,omitempty"`

	Description string `json:"description,omitempty"`
}

// Limit returns the limit for a resolved legal analyte name.
func (r Regulation) Limit(legalKey string) (float64, bool) {
	v, ok := r.Limits[legalKey]
	return v, ok
}

// PreferredFraction returns the fraction evaluated first.
func (r Regulation) PreferredFraction() measurement.Fraction {
	if r.PreferTotal {
		return measurement.FractionTotal
	}
	return measurement.FractionDissolved
}

// AppliesTo reports whether the regulation lists matrix code.
func (r Regulation) AppliesTo(matrix string) bool {
	for _, m := range r.Matrices {
		if strings.EqualFold(strings.TrimSpace(m), strings.TrimSpace(matrix)) {
			return true
		}
	}
	return false
}

// Catalog is an immutable set of regulations.  It is built once at startup
// and shared read-only by concurrent evaluations.
type Catalog struct {
	regs     map[string]Regulation
	names    []string
	resolver measurement.LegalResolver
}

// NewCatalog validates regs and resolves every limit key through resolver.
// Negative or non-finite limits, and two spellings of one analyte with
// different limits, are rejected with ErrCodeCatalogInvalid.
func NewCatalog(regs map[string]Regulation, resolver measurement.LegalResolver) (*Catalog, error) {
	c := &Catalog{
		regs:     make(map[string]Regulation, len(regs)),
		names:    make([]string, 0, len(regs)),
		resolver: resolver,
	}

	for name, reg := range regs {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, catalogInvalid("regulation with empty name")
		}
		if reg.Name == "" {
			reg.Name = name
		}

		limits := make(map[string]float64, len(reg.Limits))
		for analyte, limit := range reg.Limits {
			if math.IsNaN(limit) || math.IsInf(limit, 0) || limit < 0 {
				return nil, catalogInvalid(fmt.Sprintf("%s: limit for %q must be a finite non-negative number", name, analyte))
			}
			key := resolver.Resolve(analyte)
			if key == "" {
				return nil, catalogInvalid(fmt.Sprintf("%s: empty analyte name", name))
			}
			if prev, dup := limits[key]; dup && prev != limit {
				return nil, catalogInvalid(fmt.Sprintf("%s: conflicting limits for %q (%g and %g)", name, key, prev, limit))
			}
			limits[key] = limit
		}
		reg.Limits = limits
		reg.Matrices = append([]string(nil), reg.Matrices...)

		c.regs[name] = reg
		c.names = append(c.names, name)
	}
	sort.Strings(c.names)
	return c, nil
}

func catalogInvalid(detail string) error {
	return errors.New(errors.ErrCodeCatalogInvalid, errors.DefaultMessageForCode(errors.ErrCodeCatalogInvalid)).WithDetail(detail)
}

// Resolver returns the resolver the catalog keys were built with.
func (c *Catalog) Resolver() measurement.LegalResolver {
	return c.resolver
}

// Len returns the number of regulations.
func (c *Catalog) Len() int { return len(c.names) }

// Names returns the regulation names, sorted.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Get looks a regulation up by exact name and falls back to a trimmed,
// case-insensitive match.
func (c *Catalog) Get(name string) (Regulation, error) {
	if reg, ok := c.regs[name]; ok {
		return reg, nil
	}
	want := strings.TrimSpace(name)
	for _, n := range c.names {
		if strings.EqualFold(n, want) {
			return c.regs[n], nil
		}
	}
	return Regulation{}, errors.New(errors.ErrCodeRegulationNotFound, errors.DefaultMessageForCode(errors.ErrCodeRegulationNotFound)).WithDetail(name)
}

// Filter returns the sorted names containing text (accent- and
// case-insensitive).  Empty text returns every name.
func (c *Catalog) Filter(text string) []string {
	if strings.TrimSpace(text) == "" {
		return c.Names()
	}
	var out []string
	for _, n := range c.names {
		if measurement.ContainsFolded(n, text) {
			out = append(out, n)
		}
	}
	return out
}

// ForMatrix returns the sorted names of regulations that apply to matrix.
func (c *Catalog) ForMatrix(matrix string) []string {
	var out []string
	for _, n := range c.names {
		if c.regs[n].AppliesTo(matrix) {
			out = append(out, n)
		}
	}
	return out
}
