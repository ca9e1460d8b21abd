package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/asiste-app/asiste-api/internal/service"
	"github.com/asiste-app/asiste-api/pkg/response"
)

type exportService interface {
	SessionRoster(ctx context.Context, sessionID string, format service.ExportFormat) (*service.ExportFile, error)
}

// ExportHandler streams roster exports as file downloads.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// SessionRoster godoc
// @Summary Download the session roster as CSV or PDF
// @Tags Dashboard
// @Produce octet-stream
// @Param id path string true "Session ID"
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} binary
// @Router /sessions/{id}/attendance/export [get]
func (h *ExportHandler) SessionRoster(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", string(service.FormatCSV)))

	file, err := h.service.SessionRoster(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(200, file.ContentType, file.Body)
}
