package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schedule-browser/internal/service"
	"github.com/noah-isme/schedule-browser/pkg/response"
)

type pageExporter interface {
	Export(ctx context.Context, format service.ExportFormat) (*service.ExportFile, error)
}

// ExportHandler streams the displayed schedule page as a file.
type ExportHandler struct {
	exporter pageExporter
}

// NewExportHandler constructs handler.
func NewExportHandler(exporter pageExporter) *ExportHandler {
	return &ExportHandler{exporter: exporter}
}

// Download godoc
// @Summary Export the displayed page
// @Tags Schedules
// @Produce text/csv
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "csv, pdf or xlsx" Enums(csv, pdf, xlsx)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /schedules/export [get]
func (h *ExportHandler) Download(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exporter.Export(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
