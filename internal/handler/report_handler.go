package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evandijk/tutorbase-api/internal/service"
	"github.com/evandijk/tutorbase-api/pkg/response"
)

// ReportHandler exposes monthly income reports.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Monthly godoc
// @Summary Monthly income reports, newest month first
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/monthly [get]
func (h *ReportHandler) Monthly(c *gin.Context) {
	reports, err := h.reports.Monthly(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, nil)
}

// Export godoc
// @Summary Export one month's report as CSV or PDF
// @Tags Reports
// @Produce octet-stream
// @Param key path string true "Month key (YYYY-MM)"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /reports/monthly/{key}/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")

	export, err := h.reports.ExportMonth(c.Request.Context(), currentUserID(c), c.Param("key"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	c.Data(http.StatusOK, export.ContentType, export.Content)
}
