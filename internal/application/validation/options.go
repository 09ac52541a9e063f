// Package validation implements the checkers of the validation engine and the
// pipeline that runs them over one batch of measurement records.
//
// Every checker is a pure function of its normalised input: no checker reads
// or writes shared state, so independent batches can be evaluated
// concurrently against the same read-only regulatory catalog.
package validation

import (
	"github.com/turtacn/OperaLab/internal/domain/measurement"
)

// Default checker parameters.
const (
	DefaultMargin       = 1.0
	DefaultQCMinPct     = 70.0
	DefaultQCMaxPct     = 130.0
	DefaultTolerancePct = 20.0
)

// DefaultInternalStandards are the QC spike analytes matched by default.
var DefaultInternalStandards = []string{"itrio", "yttrium"}

// Options configures an Evaluator.
type Options struct {
	Normalizer     measurement.Normalizer
	DissolvedTotal DissolvedTotalOptions
	QC             QCOptions

	// DuplicateTolerancePct applies to duplicate requests that leave their
	// tolerance at zero.
	DuplicateTolerancePct float64
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Normalizer:            measurement.NewNormalizer(),
		DissolvedTotal:        DissolvedTotalOptions{Margin: DefaultMargin},
		QC:                    DefaultQCOptions(),
		DuplicateTolerancePct: DefaultTolerancePct,
	}
}

// Checker names a checker in aggregated results and metrics.
type Checker string

const (
	CheckerDissolvedTotal Checker = "dissolved_total"
	CheckerQCRecovery     Checker = "qc_recovery"
	CheckerDuplicates     Checker = "duplicates"
	CheckerLegislation    Checker = "legislation"
)

// withDefaults fills unset fields so a zero Options behaves like
// DefaultOptions.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Normalizer.Policy.Name == "" {
		o.Normalizer.Policy = def.Normalizer.Policy
	}
	if len(o.Normalizer.Markers.Dissolved) == 0 && len(o.Normalizer.Markers.Total) == 0 {
		o.Normalizer.Markers = def.Normalizer.Markers
	}
	if o.Normalizer.PairingSuffixes == nil {
		o.Normalizer.PairingSuffixes = def.Normalizer.PairingSuffixes
	}
	if o.DissolvedTotal.Margin <= 0 {
		o.DissolvedTotal.Margin = DefaultMargin
	}
	if len(o.QC.InternalStandards) == 0 {
		o.QC.InternalStandards = def.QC.InternalStandards
	}
	if o.QC.MinPct == 0 && o.QC.MaxPct == 0 {
		o.QC.MinPct, o.QC.MaxPct = def.QC.MinPct, def.QC.MaxPct
	}
	if o.DuplicateTolerancePct <= 0 {
		o.DuplicateTolerancePct = DefaultTolerancePct
	}
	return o
}
