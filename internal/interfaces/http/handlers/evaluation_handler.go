package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/OperaLab/internal/application/validation"
)

// EvaluationHandler serves the evaluation and single-checker endpoints.
type EvaluationHandler struct {
	reports  ReportService
	checkers CheckerService
	reader   RecordReader
}

// NewEvaluationHandler creates an EvaluationHandler.
func NewEvaluationHandler(reports ReportService, checkers CheckerService, reader RecordReader) *EvaluationHandler {
	return &EvaluationHandler{reports: reports, checkers: checkers, reader: reader}
}

// EvaluationBody is the request body of POST /evaluations.
type EvaluationBody struct {
	RecordsInput
	Regulation string                        `json:"regulation"`
	Duplicates []validation.DuplicateRequest `json:"duplicates"`
}

func (b EvaluationBody) request() validation.EvaluationRequest {
	return validation.EvaluationRequest{Regulation: b.Regulation, Duplicates: b.Duplicates, Source: b.Source}
}

// Evaluate handles POST /api/v1/evaluations.
func (h *EvaluationHandler) Evaluate(c *gin.Context) {
	var body EvaluationBody
	if !bindJSON(c, &body) {
		return
	}
	records, err := body.load(h.reader)
	if err != nil {
		writeError(c, err)
		return
	}
	report, err := h.reports.Evaluate(c.Request.Context(), records, body.request())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// DuplicateBody is the request body of POST /duplicates.
type DuplicateBody struct {
	RecordsInput
	validation.DuplicateRequest
}

// Duplicates handles POST /api/v1/duplicates.
func (h *EvaluationHandler) Duplicates(c *gin.Context) {
	var body DuplicateBody
	if !bindJSON(c, &body) {
		return
	}
	records, err := body.load(h.reader)
	if err != nil {
		writeError(c, err)
		return
	}
	report, err := h.checkers.Duplicates(c.Request.Context(), records, body.DuplicateRequest)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": report.Status(), "report": report})
}

// Legislation handles POST /api/v1/legislation/:name.
func (h *EvaluationHandler) Legislation(c *gin.Context) {
	var body RecordsInput
	if !bindJSON(c, &body) {
		return
	}
	records, err := body.load(h.reader)
	if err != nil {
		writeError(c, err)
		return
	}
	report, err := h.checkers.Legislation(c.Request.Context(), records, c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ExportBody is the request body of POST /exports.  A report_id exports a
// stored report; otherwise the records are evaluated first.
type ExportBody struct {
	EvaluationBody
	ReportID string `json:"report_id"`
}

// ExportResponse maps table names to delimited text.
type ExportResponse struct {
	ReportID string            `json:"report_id"`
	Batch    string            `json:"batch"`
	Tables   map[string]string `json:"tables"`
	Names    []string          `json:"names"`
}

// Export handles POST /api/v1/exports.
func (h *EvaluationHandler) Export(c *gin.Context) {
	var body ExportBody
	if !bindJSON(c, &body) {
		return
	}
	ctx := c.Request.Context()

	var report *validation.Report
	var err error
	if body.ReportID != "" {
		report, err = h.reports.Report(ctx, body.ReportID)
	} else {
		records, lerr := body.load(h.reader)
		if lerr != nil {
			writeError(c, lerr)
			return
		}
		report, err = h.reports.Evaluate(ctx, records, body.request())
	}
	if err != nil {
		writeError(c, err)
		return
	}

	tables, err := h.reports.Tables(report)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := ExportResponse{ReportID: report.ID, Batch: report.Batch.String(), Tables: make(map[string]string, len(tables))}
	for name, data := range tables {
		resp.Tables[name] = string(data)
		resp.Names = append(resp.Names, name)
	}
	sort.Strings(resp.Names)
	c.JSON(http.StatusOK, resp)
}
