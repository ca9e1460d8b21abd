package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/asiste-app/asiste-api/internal/models"
	appErrors "github.com/asiste-app/asiste-api/pkg/errors"
	"github.com/asiste-app/asiste-api/pkg/geo"
	"github.com/asiste-app/asiste-api/pkg/qr"
)

type attendanceRepository interface {
	Create(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	FindBySessionAndStudent(ctx context.Context, sessionID, studentID string) (*models.AttendanceRecord, error)
	Justify(ctx context.Context, recordID, reason string, comment *string) error
	ListByStudent(ctx context.Context, studentID string, limit int) ([]models.AttendanceRecord, error)
}

type attendanceUserRepository interface {
	FindStudentByIDAndDevice(ctx context.Context, studentID, deviceID string) (*models.User, error)
}

type attendanceSessionRepository interface {
	FindByID(ctx context.Context, id string) (*models.ClassSession, error)
}

// RecordRequest is a student's scan submission.
type RecordRequest struct {
	DeviceID  string   `json:"device_id" validate:"required"`
	StudentID string   `json:"student_id" validate:"required"`
	QRToken   string   `json:"qr_token" validate:"required"`
	ScanLat   *float64 `json:"scan_lat" validate:"omitempty,min=-90,max=90"`
	ScanLon   *float64 `json:"scan_lon" validate:"omitempty,min=-180,max=180"`
}

// RecordResult is the verdict returned to the scanning client.
type RecordResult struct {
	RecordID  string    `json:"record_id"`
	SessionID string    `json:"session_id"`
	Valid     bool      `json:"valid"`
	DistanceM *float64  `json:"distance_m,omitempty"`
	ScannedAt time.Time `json:"scanned_at"`
}

// JustifyRequest marks a recorded absence or invalid scan as justified.
type JustifyRequest struct {
	Reason  string  `json:"reason" validate:"required,min=3"`
	Comment *string `json:"comment"`
}

// AttendanceService validates and records scans. Each precondition fails
// fast; the single insert at the end is the only write, so no rollback
// logic exists. Re-delivered scans are absorbed by the duplicate check.
type AttendanceService struct {
	records    attendanceRepository
	users      attendanceUserRepository
	sessions   attendanceSessionRepository
	validator  *validator.Validate
	logger     *zap.Logger
	metrics    *MetricsService
	thresholdM float64
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(
	records attendanceRepository,
	users attendanceUserRepository,
	sessions attendanceSessionRepository,
	validate *validator.Validate,
	logger *zap.Logger,
	metrics *MetricsService,
	thresholdM float64,
) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if thresholdM <= 0 {
		// 5 m geofence + 2 m GPS tolerance.
		thresholdM = 7
	}
	return &AttendanceService{
		records:    records,
		users:      users,
		sessions:   sessions,
		validator:  validate,
		logger:     logger,
		metrics:    metrics,
		thresholdM: thresholdM,
	}
}

// Record runs the scan pipeline: device/identity check, QR decode, session
// open check, duplicate check, distance computation, verdict, single
// insert. Out-of-range scans are persisted as invalid, not rejected.
func (s *AttendanceService) Record(ctx context.Context, req RecordRequest) (*RecordResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scan payload")
	}
	if (req.ScanLat == nil) != (req.ScanLon == nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scan coordinates must be provided together")
	}

	student, err := s.users.FindStudentByIDAndDevice(ctx, req.StudentID, req.DeviceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.observeScan("rejected_device")
			return nil, appErrors.Clone(appErrors.ErrDeviceMismatch, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "resolve student")
	}

	payload, err := qr.Decode(req.QRToken)
	if err != nil {
		s.observeScan("rejected_qr")
		return nil, err
	}

	session, err := s.sessions.FindByID(ctx, payload.SessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.observeScan("rejected_closed")
			return nil, appErrors.Clone(appErrors.ErrSessionClosed, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "resolve session")
	}
	if !session.Open {
		s.observeScan("rejected_closed")
		return nil, appErrors.Clone(appErrors.ErrSessionClosed, "")
	}

	existing, err := s.records.FindBySessionAndStudent(ctx, session.ID, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "check duplicate scan")
	}
	if existing != nil {
		s.observeScan("rejected_duplicate")
		return nil, appErrors.Clone(appErrors.ErrDuplicateScan, "")
	}

	var distance *float64
	if req.ScanLat != nil && req.ScanLon != nil && session.HasReference() {
		d := geo.Distance(*req.ScanLat, *req.ScanLon, *session.RefLat, *session.RefLon)
		distance = &d
	}
	// Unknown distance defaults to valid; validity is gated only when both
	// coordinate pairs were captured.
	valid := distance == nil || *distance <= s.thresholdM

	record := &models.AttendanceRecord{
		SessionID: session.ID,
		StudentID: student.ID,
		ScannedAt: time.Now().UTC(),
		ScanLat:   req.ScanLat,
		ScanLon:   req.ScanLon,
		DistanceM: distance,
		Valid:     valid,
		Justified: false,
	}

	stored, err := s.records.Create(ctx, record)
	if err != nil {
		if errors.Is(err, appErrors.ErrDuplicateScan) {
			s.observeScan("rejected_duplicate")
		}
		return nil, err
	}

	if valid {
		s.observeScan("valid")
	} else {
		s.observeScan("invalid")
	}
	s.logger.Info("attendance recorded",
		zap.String("record_id", stored.ID),
		zap.String("session_id", session.ID),
		zap.String("student_id", student.ID),
		zap.Bool("valid", stored.Valid))

	return &RecordResult{
		RecordID:  stored.ID,
		SessionID: stored.SessionID,
		Valid:     stored.Valid,
		DistanceM: stored.DistanceM,
		ScannedAt: stored.ScannedAt,
	}, nil
}

// Justify marks a record justified with a reason and optional comment. The
// valid flag is never altered; a justified record counts as present in the
// aggregates regardless of validity.
func (s *AttendanceService) Justify(ctx context.Context, recordID string, req JustifyRequest) error {
	if recordID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "record id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid justification payload")
	}

	if err := s.records.Justify(ctx, recordID, req.Reason, req.Comment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "justify record")
	}

	s.logger.Info("attendance justified", zap.String("record_id", recordID))
	return nil
}

// RecentActivity returns the student's latest scans classified for the
// activity feed, newest first.
func (s *AttendanceService) RecentActivity(ctx context.Context, studentID string, limit int) ([]models.ActivityEntry, error) {
	records, err := s.records.ListByStudent(ctx, studentID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "list activity")
	}

	entries := make([]models.ActivityEntry, 0, len(records))
	for _, r := range records {
		kind := models.ActivityAttendance
		switch {
		case r.Justified:
			kind = models.ActivityJustified
		case !r.Valid:
			kind = models.ActivityInvalid
		}
		entries = append(entries, models.ActivityEntry{
			Kind:      kind,
			SessionID: r.SessionID,
			ScannedAt: r.ScannedAt,
		})
	}
	return entries, nil
}

func (s *AttendanceService) observeScan(result string) {
	if s.metrics != nil {
		s.metrics.RecordScan(result)
	}
}
