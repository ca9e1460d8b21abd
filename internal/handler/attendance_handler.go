package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/asiste-app/asiste-api/internal/models"
	"github.com/asiste-app/asiste-api/internal/service"
	appErrors "github.com/asiste-app/asiste-api/pkg/errors"
	"github.com/asiste-app/asiste-api/pkg/response"
)

type attendanceService interface {
	Record(ctx context.Context, req service.RecordRequest) (*service.RecordResult, error)
	Justify(ctx context.Context, recordID string, req service.JustifyRequest) error
	RecentActivity(ctx context.Context, studentID string, limit int) ([]models.ActivityEntry, error)
}

// AttendanceHandler exposes scan recording and justification.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(service attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

type recordRequestBody struct {
	QRToken string   `json:"qr_token"`
	ScanLat *float64 `json:"scan_lat"`
	ScanLon *float64 `json:"scan_lon"`
}

// Record godoc
// @Summary Record attendance from a scanned QR code
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body recordRequestBody true "Scan payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Record(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if claims.DeviceID == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrDeviceMismatch, "no device bound to this account"))
		return
	}

	var body recordRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	result, err := h.service.Record(c.Request.Context(), service.RecordRequest{
		DeviceID:  *claims.DeviceID,
		StudentID: claims.UserID,
		QRToken:   body.QRToken,
		ScanLat:   body.ScanLat,
		ScanLon:   body.ScanLon,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Justify godoc
// @Summary Justify a recorded attendance
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body service.JustifyRequest true "Justification"
// @Success 204 "No Content"
// @Failure 404 {object} response.Envelope
// @Router /attendance/{id}/justify [post]
func (h *AttendanceHandler) Justify(c *gin.Context) {
	var req service.JustifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	if err := h.service.Justify(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Activity godoc
// @Summary Recent scan activity for a student
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Param limit query int false "Max entries (default 10)"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/activity [get]
func (h *AttendanceHandler) Activity(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	entries, err := h.service.RecentActivity(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries)
}
