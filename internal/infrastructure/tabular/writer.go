package tabular

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/turtacn/OperaLab/internal/domain/measurement"
	"github.com/turtacn/OperaLab/pkg/errors"
)

// Table is one named result table.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (t Table) Len() int { return len(t.Rows) }

// Writer renders tables as delimited text.
type Writer struct {
	Delimiter rune
	Policy    measurement.NumberPolicy
}

// NewWriter returns a Writer.  A zero delimiter means ';' and a zero policy
// means DecimalComma.
func NewWriter(delimiter rune, policy measurement.NumberPolicy) *Writer {
	if delimiter == 0 {
		delimiter = ';'
	}
	if policy.DecimalSeparator == 0 {
		policy = measurement.DecimalComma
	}
	return &Writer{Delimiter: delimiter, Policy: policy}
}

// Write emits the header row followed by every data row.
func (w *Writer) Write(out io.Writer, t Table) error {
	cw := csv.NewWriter(out)
	cw.Comma = w.Delimiter
	if err := cw.Write(t.Header); err != nil {
		return errors.Wrap(err, errors.ErrCodeExportFailed, "failed to write header").WithDetail(t.Name)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return errors.Wrap(err, errors.ErrCodeExportFailed, "failed to write rows").WithDetail(t.Name)
	}
	return nil
}

// Bytes renders t in memory.
func (w *Writer) Bytes(t Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := w.Write(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Number formats an optional number with the writer's policy; nil is blank.
func (w *Writer) Number(v *float64) string {
	if v == nil {
		return ""
	}
	return w.Policy.Format(*v)
}

// YesNo renders a flag.
func YesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
