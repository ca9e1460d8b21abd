package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/asiste-app/asiste-api/internal/models"
	appErrors "github.com/asiste-app/asiste-api/pkg/errors"
	"github.com/asiste-app/asiste-api/pkg/qr"
)

type sessionRepository interface {
	Create(ctx context.Context, session *models.ClassSession) (*models.ClassSession, error)
	FindByID(ctx context.Context, id string) (*models.ClassSession, error)
	FindOpen(ctx context.Context) (*models.ClassSession, error)
	Close(ctx context.Context, id string, endedAt time.Time) error
}

// OpenSessionResult bundles the created session with its scannable token.
type OpenSessionResult struct {
	Session  *models.ClassSession `json:"session"`
	QRToken  string               `json:"qr_token"`
	QRBase64 string               `json:"qr_base64"`
}

// SessionService drives the class-session lifecycle and QR issuance.
type SessionService struct {
	repo      sessionRepository
	logger    *zap.Logger
	metrics   *MetricsService
	imageSize int
}

// NewSessionService constructs the session service.
func NewSessionService(repo sessionRepository, logger *zap.Logger, metrics *MetricsService, imageSize int) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if imageSize <= 0 {
		imageSize = 256
	}
	return &SessionService{repo: repo, logger: logger, metrics: metrics, imageSize: imageSize}
}

// Open starts a new attendance window for the teacher, optionally anchored
// to a geofence center, and returns the session together with its QR
// token and rendered image. Fails with the session conflict when any
// session is already open; the pre-check keeps the common path friendly
// while the store's partial unique index decides races.
func (s *SessionService) Open(ctx context.Context, teacherID string, refLat, refLon *float64) (*OpenSessionResult, error) {
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
	}
	if (refLat == nil) != (refLon == nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reference coordinates must be provided together")
	}

	current, err := s.repo.FindOpen(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "check open session")
	}
	if current != nil {
		return nil, appErrors.Clone(appErrors.ErrSessionConflict, "")
	}

	now := time.Now().UTC()
	session := &models.ClassSession{
		TeacherID: teacherID,
		Date:      now.Truncate(24 * time.Hour),
		StartedAt: now,
		Open:      true,
		RefLat:    refLat,
		RefLon:    refLon,
	}

	stored, err := s.repo.Create(ctx, session)
	if err != nil {
		return nil, err
	}

	token, err := qr.Encode(qr.Payload{
		SessionID: stored.ID,
		TeacherID: stored.TeacherID,
		Lat:       stored.RefLat,
		Lon:       stored.RefLon,
		IssuedAt:  stored.StartedAt,
	})
	if err != nil {
		return nil, err
	}
	image, err := qr.RenderBase64PNG(token, s.imageSize)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.SetOpenSessions(1)
	}
	s.logger.Info("class session opened",
		zap.String("session_id", stored.ID),
		zap.String("teacher_id", teacherID),
		zap.Bool("geofenced", stored.HasReference()))

	return &OpenSessionResult{Session: stored, QRToken: token, QRBase64: image}, nil
}

// Close ends the session. Closing an already-closed session succeeds and
// refreshes the end time.
func (s *SessionService) Close(ctx context.Context, sessionID string) (*models.ClassSession, error) {
	if sessionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session id is required")
	}

	if err := s.repo.Close(ctx, sessionID, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "close session")
	}

	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "reload session")
	}

	if s.metrics != nil {
		s.metrics.SetOpenSessions(0)
	}
	s.logger.Info("class session closed", zap.String("session_id", sessionID))
	return session, nil
}

// GetOpen returns the currently open session, or nil when none is open.
func (s *SessionService) GetOpen(ctx context.Context) (*models.ClassSession, error) {
	session, err := s.repo.FindOpen(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "find open session")
	}
	return session, nil
}
