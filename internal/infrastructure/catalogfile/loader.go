// Package catalogfile loads regulatory catalogs from JSON or YAML files.
//
// A catalog maps regulation names to limit sets:
//
//	CONAMA 430:
//	  limits_mgL: {chumbo: 0.5, cadmio: 0.2}
//	  prefer_total: true
//	  matrices: [effluent]
//	  description: Effluent discharge
//
// prefer_total defaults to true when absent.  applicable_matrices is accepted
// as an alias of matrices.  Unknown keys are ignored and reported through the
// logger given with WithLogger.
package catalogfile

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/turtacn/OperaLab/internal/domain/measurement"
	"github.com/turtacn/OperaLab/internal/domain/regulation"
	"github.com/turtacn/OperaLab/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OperaLab/pkg/errors"
)

// Format is the encoding of a catalog file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath infers the format from the file extension; anything that is
// not .json is read as YAML.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

type entry struct {
	Limits             map[string]float64 `yaml:"limits_mgL"`
	PreferTotal        *bool              `yaml:"prefer_total"`
	Matrices           []string           `yaml:"matrices"`
	ApplicableMatrices []string           `yaml:"applicable_matrices"`
	Description        string             `yaml:"description"`
}

var knownFields = map[string]bool{
	"limits_mgL":          true,
	"prefer_total":        true,
	"matrices":            true,
	"applicable_matrices": true,
	"description":         true,
}

type options struct {
	logger logging.Logger
}

// Option configures Load and Parse.
type Option func(*options)

// WithLogger reports ignored catalog keys to logger.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Load reads the catalog at path.
func Load(path string, resolver measurement.LegalResolver, opts ...Option) (*regulation.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.CodeNotFound, "catalog file not found").WithDetail(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeCatalogInvalid, "failed to read catalog").WithDetail(path)
	}
	cat, err := Parse(data, FormatForPath(path), resolver, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "failed to load catalog "+path)
	}
	return cat, nil
}

// Parse decodes a catalog document.  JSON is decoded by the YAML parser,
// which accepts it as a subset; format only affects error messages.
func Parse(data []byte, format Format, resolver measurement.LegalResolver, opts ...Option) (*regulation.Catalog, error) {
	o := buildOptions(opts)
	malformed := "malformed " + string(format) + " catalog"

	nodes := make(map[string]yaml.Node)
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&nodes); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, errors.ErrCodeCatalogInvalid, malformed)
	}

	regs := make(map[string]regulation.Regulation, len(nodes))
	for name, node := range nodes {
		var e entry
		if err := node.Decode(&e); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCatalogInvalid, malformed).WithDetail(name)
		}
		for _, field := range unknownFields(&node) {
			o.logger.Warn("ignoring unknown catalog field",
				logging.String("regulation", name), logging.String("field", field))
		}
		preferTotal := true
		if e.PreferTotal != nil {
			preferTotal = *e.PreferTotal
		}
		regs[name] = regulation.Regulation{
			Name:        strings.TrimSpace(name),
			Limits:      e.Limits,
			PreferTotal: preferTotal,
			Matrices:    append(e.Matrices, e.ApplicableMatrices...),
			Description: e.Description,
		}
	}
	return regulation.NewCatalog(regs, resolver)
}

// unknownFields lists the keys of a mapping node that entry does not read,
// sorted.
func unknownFields(node *yaml.Node) []string {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	var out []string
	for i := 0; i+1 < len(node.Content); i += 2 {
		if key := node.Content[i].Value; !knownFields[key] {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}
