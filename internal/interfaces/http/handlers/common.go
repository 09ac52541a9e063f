// Package handlers implements the HTTP endpoints of the validation API.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/OperaLab/internal/application/validation"
	"github.com/turtacn/OperaLab/internal/domain/measurement"
	"github.com/turtacn/OperaLab/pkg/errors"
)

// ReportService evaluates record sets and serves stored reports.
// reporting.Service implements it.
type ReportService interface {
	Evaluate(ctx context.Context, records []measurement.Record, req validation.EvaluationRequest) (*validation.Report, error)
	Report(ctx context.Context, id string) (*validation.Report, error)
	Tables(r *validation.Report) (map[string][]byte, error)
	Table(r *validation.Report, name string) ([]byte, error)
}

// CheckerService runs single checkers.  validation.Evaluator implements it.
type CheckerService interface {
	Duplicates(ctx context.Context, records []measurement.Record, req validation.DuplicateRequest) (validation.DuplicateReport, error)
	Legislation(ctx context.Context, records []measurement.Record, name string) (validation.LegislationReport, error)
}

// RecordReader parses pasted delimited text.
type RecordReader interface {
	ReadString(text string) ([]measurement.Record, error)
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// writeError maps err to its HTTP status.  Server-side failures are masked.
func writeError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)
	resp := ErrorResponse{Code: code.String(), Message: errors.DefaultMessageForCode(code)}

	var ae *errors.AppError
	if status < http.StatusInternalServerError && errors.As(err, &ae) {
		resp.Message = ae.Message
		resp.Detail = ae.Detail
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

// RecordsInput carries a record set either as structured records or as
// pasted delimited text.  csv wins when both are given.
type RecordsInput struct {
	Records []measurement.Record `json:"records"`
	CSV     string               `json:"csv"`
	Source  string               `json:"source"`
}

func (in RecordsInput) load(reader RecordReader) ([]measurement.Record, error) {
	if strings.TrimSpace(in.CSV) != "" {
		return reader.ReadString(in.CSV)
	}
	if len(in.Records) == 0 {
		return nil, errors.InvalidParam("records or csv is required")
	}
	return in.Records, nil
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, errors.Wrap(err, errors.CodeInvalidParam, "malformed request body"))
		return false
	}
	return true
}
