package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/asiste-app/asiste-api/internal/models"
	"github.com/asiste-app/asiste-api/pkg/response"
)

type statsService interface {
	StudentStats(ctx context.Context, studentID string) (*models.StudentStats, error)
	ClassRoster(ctx context.Context, sessionID string) ([]models.RosterEntry, error)
	TeacherDashboard(ctx context.Context, teacherID string) (*models.TeacherDashboard, error)
}

// DashboardHandler exposes the aggregate endpoints: student stats, session
// rosters and the teacher semaphore dashboard.
type DashboardHandler struct {
	service statsService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service statsService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// StudentStats godoc
// @Summary Attendance statistics for a student
// @Tags Dashboard
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/stats [get]
func (h *DashboardHandler) StudentStats(c *gin.Context) {
	stats, err := h.service.StudentStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

// ClassRoster godoc
// @Summary Scan roster for a session, most recent first
// @Tags Dashboard
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/attendance [get]
func (h *DashboardHandler) ClassRoster(c *gin.Context) {
	roster, err := h.service.ClassRoster(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster)
}

// TeacherDashboard godoc
// @Summary Semaphore dashboard for a teacher
// @Tags Dashboard
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id}/dashboard [get]
func (h *DashboardHandler) TeacherDashboard(c *gin.Context) {
	dashboard, err := h.service.TeacherDashboard(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard)
}
