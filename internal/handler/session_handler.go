package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/asiste-app/asiste-api/internal/models"
	"github.com/asiste-app/asiste-api/internal/service"
	appErrors "github.com/asiste-app/asiste-api/pkg/errors"
	"github.com/asiste-app/asiste-api/pkg/response"
)

type sessionService interface {
	Open(ctx context.Context, teacherID string, refLat, refLon *float64) (*service.OpenSessionResult, error)
	Close(ctx context.Context, sessionID string) (*models.ClassSession, error)
	GetOpen(ctx context.Context) (*models.ClassSession, error)
}

// SessionHandler exposes the class-session lifecycle.
type SessionHandler struct {
	service sessionService
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(service sessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

type openSessionRequest struct {
	RefLat *float64 `json:"ref_lat"`
	RefLon *float64 `json:"ref_lon"`
}

// Open godoc
// @Summary Open a class session and issue its QR code
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body openSessionRequest true "Optional geofence center"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Open(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	result, err := h.service.Open(c.Request.Context(), claims.UserID, req.RefLat, req.RefLon)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Close godoc
// @Summary Close a class session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/close [post]
func (h *SessionHandler) Close(c *gin.Context) {
	session, err := h.service.Close(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session)
}

// GetOpen godoc
// @Summary Return the currently open session, if any
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sessions/open [get]
func (h *SessionHandler) GetOpen(c *gin.Context) {
	session, err := h.service.GetOpen(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"open": session != nil, "session": session})
}
