package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ReportHandler serves stored reports.
type ReportHandler struct {
	reports ReportService
}

// NewReportHandler creates a ReportHandler.
func NewReportHandler(reports ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Get handles GET /api/v1/reports/:id.
func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.reports.Report(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Table handles GET /api/v1/reports/:id/tables/:table and returns the table
// as delimited text.
func (h *ReportHandler) Table(c *gin.Context) {
	report, err := h.reports.Report(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	data, err := h.reports.Table(report, c.Param("table"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+report.ID+"-"+c.Param("table")+`.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}
