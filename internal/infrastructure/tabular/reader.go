// Package tabular reads laboratory exports into measurement records and
// writes result tables as delimited text.
package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/turtacn/OperaLab/internal/domain/measurement"
	"github.com/turtacn/OperaLab/pkg/errors"
)

// CandidateDelimiters are tried in order when the reader sniffs the input.
var CandidateDelimiters = []rune{'\t', ';', ',', '|'}

// minSniffColumns is the narrowest header accepted when no candidate carries
// every required column; the missing one is then reported by name.
const minSniffColumns = 4

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ColumnMap names the input columns each record field is read from.
type ColumnMap struct {
	SampleGroupID       string `json:"sample_group_id"`
	SampleNumber        string `json:"sample_number"`
	AnalysisName        string `json:"analysis_name"`
	AnalysisMethod      string `json:"analysis_method"`
	RawValue            string `json:"raw_value"`
	RawUnit             string `json:"raw_unit"`
	QuantificationLimit string `json:"quantification_limit"`
}

// DefaultColumnMap returns the headers of the LIMS export.
func DefaultColumnMap() ColumnMap {
	return ColumnMap{
		SampleGroupID:       "Id",
		SampleNumber:        "Nº Amostra",
		AnalysisName:        "Análise",
		AnalysisMethod:      "Método de Análise",
		RawValue:            "Valor",
		RawUnit:             "Unidade de Medida",
		QuantificationLimit: "LQ - Limite Quantificação",
	}
}

// withDefaults fills blank entries from DefaultColumnMap.
func (m ColumnMap) withDefaults() ColumnMap {
	def := DefaultColumnMap()
	fill := func(v *string, d string) {
		if strings.TrimSpace(*v) == "" {
			*v = d
		}
	}
	fill(&m.SampleGroupID, def.SampleGroupID)
	fill(&m.SampleNumber, def.SampleNumber)
	fill(&m.AnalysisName, def.AnalysisName)
	fill(&m.AnalysisMethod, def.AnalysisMethod)
	fill(&m.RawValue, def.RawValue)
	fill(&m.RawUnit, def.RawUnit)
	fill(&m.QuantificationLimit, def.QuantificationLimit)
	return m
}

// Required returns the headers that must be present.  The quantification
// limit column is optional.
func (m ColumnMap) Required() []string {
	return []string{m.SampleGroupID, m.SampleNumber, m.AnalysisName, m.AnalysisMethod, m.RawValue, m.RawUnit}
}

type columnIndex struct {
	id, number, name, method, value, unit, lq int
}

// index locates every column of m in header.  It returns the first required
// header that is missing.
func (m ColumnMap) index(header []string) (columnIndex, string) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		k := headerKey(h)
		if _, dup := pos[k]; !dup {
			pos[k] = i
		}
	}
	find := func(name string) int {
		if i, ok := pos[headerKey(name)]; ok {
			return i
		}
		return -1
	}

	idx := columnIndex{
		id:     find(m.SampleGroupID),
		number: find(m.SampleNumber),
		name:   find(m.AnalysisName),
		method: find(m.AnalysisMethod),
		value:  find(m.RawValue),
		unit:   find(m.RawUnit),
		lq:     find(m.QuantificationLimit),
	}
	for _, req := range []struct {
		name string
		at   int
	}{
		{m.SampleGroupID, idx.id},
		{m.SampleNumber, idx.number},
		{m.AnalysisName, idx.name},
		{m.AnalysisMethod, idx.method},
		{m.RawValue, idx.value},
		{m.RawUnit, idx.unit},
	} {
		if req.at < 0 {
			return idx, req.name
		}
	}
	return idx, ""
}

func headerKey(h string) string {
	return measurement.CanonicalKey(strings.TrimPrefix(h, string(utf8BOM)))
}

// Reader parses delimited laboratory exports.
type Reader struct {
	Columns ColumnMap

	// Delimiter forces the field separator; 0 sniffs it from the header
	// line.
	Delimiter rune
}

// NewReader returns a sniffing Reader for cols.
func NewReader(cols ColumnMap) *Reader {
	return &Reader{Columns: cols.withDefaults()}
}

// Read parses in into records.  A missing required column is reported with
// ErrCodeMissingColumn before any row is read.  Data rows with every cell
// blank are skipped.
func (r *Reader) Read(in io.Reader) ([]measurement.Record, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidRecordSet, "failed to read input")
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidRecordSet, "input is empty")
	}

	cols := r.Columns.withDefaults()
	delim := r.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(data, cols)
	}

	cr := newCSVReader(data, delim)
	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidRecordSet, "failed to read header")
	}
	idx, missing := cols.index(header)
	if missing != "" {
		return nil, errors.MissingColumn(missing)
	}

	var records []measurement.Record
	for row := 1; ; row++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidRecordSet, "malformed row")
		}
		if blankRow(fields) {
			continue
		}
		cell := func(i int) string {
			if i < 0 || i >= len(fields) {
				return ""
			}
			return fields[i]
		}
		rec := measurement.Record{
			SampleGroupID:  strings.TrimSpace(cell(idx.id)),
			SampleNumber:   strings.TrimSpace(cell(idx.number)),
			AnalysisName:   strings.TrimSpace(cell(idx.name)),
			AnalysisMethod: strings.TrimSpace(cell(idx.method)),
			RawValue:       cell(idx.value),
			RawUnit:        cell(idx.unit),
			Row:            row,
		}
		if idx.lq >= 0 {
			lq := cell(idx.lq)
			rec.QuantificationLimit = &lq
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadFile opens path and reads it.
func (r *Reader) ReadFile(path string) ([]measurement.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.CodeNotFound, "input file not found").WithDetail(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeInvalidRecordSet, "failed to open input").WithDetail(path)
	}
	defer f.Close()
	return r.Read(bufio.NewReader(f))
}

// ReadString parses pasted text.
func (r *Reader) ReadString(text string) ([]measurement.Record, error) {
	return r.Read(strings.NewReader(text))
}

func newCSVReader(data []byte, delim rune) *csv.Reader {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

// sniffDelimiter picks the first candidate whose header carries every
// required column, then the first giving at least minSniffColumns columns,
// then the one giving the most.
func sniffDelimiter(data []byte, cols ColumnMap) rune {
	best, bestWidth := CandidateDelimiters[0], 0
	var wide rune
	for _, d := range CandidateDelimiters {
		header, err := newCSVReader(data, d).Read()
		if err != nil {
			continue
		}
		if _, missing := cols.index(header); missing == "" {
			return d
		}
		if wide == 0 && len(header) >= minSniffColumns {
			wide = d
		}
		if len(header) > bestWidth {
			best, bestWidth = d, len(header)
		}
	}
	if wide != 0 {
		return wide
	}
	return best
}

func blankRow(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
