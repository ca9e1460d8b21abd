package service

import (
	"context"
	"database/sql"
	"errors"
	"math"

	"go.uber.org/zap"

	"github.com/asiste-app/asiste-api/internal/models"
	appErrors "github.com/asiste-app/asiste-api/pkg/errors"
)

type statsAttendanceRepository interface {
	CountPresence(ctx context.Context, studentID string) (present, justified int, err error)
	ListBySession(ctx context.Context, sessionID string) ([]models.RosterEntry, error)
}

type statsSessionRepository interface {
	CountAll(ctx context.Context) (int, error)
}

type statsUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListStudents(ctx context.Context) ([]models.User, error)
}

const dashboardCachePrefix = "dashboard:teacher:"

// StatsService computes attendance aggregates: per-student statistics,
// per-session rosters and the teacher semaphore dashboard. Absent rows
// degrade to zeros rather than errors.
type StatsService struct {
	attendance statsAttendanceRepository
	sessions   statsSessionRepository
	users      statsUserRepository
	cache      *CacheService
	logger     *zap.Logger
}

// NewStatsService constructs the stats service.
func NewStatsService(
	attendance statsAttendanceRepository,
	sessions statsSessionRepository,
	users statsUserRepository,
	cache *CacheService,
	logger *zap.Logger,
) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{attendance: attendance, sessions: sessions, users: users, cache: cache, logger: logger}
}

// StudentStats summarises one student's attendance across every session
// ever opened. The global session count is a deliberate simplification:
// sessions opened before the student enrolled still count.
func (s *StatsService) StudentStats(ctx context.Context, studentID string) (*models.StudentStats, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}

	total, err := s.sessions.CountAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "count sessions")
	}
	present, justified, err := s.attendance.CountPresence(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "count presence")
	}

	percentage := 0
	if total > 0 {
		percentage = int(math.Round(100 * float64(present) / float64(total)))
	}

	return &models.StudentStats{
		Present:       present,
		Absent:        total - present,
		Justified:     justified,
		TotalSessions: total,
		Percentage:    percentage,
	}, nil
}

// ClassRoster returns the scan roster for a session, most recent first. An
// unknown session yields an empty roster.
func (s *StatsService) ClassRoster(ctx context.Context, sessionID string) ([]models.RosterEntry, error) {
	if sessionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session id is required")
	}
	entries, err := s.attendance.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "list roster")
	}
	if entries == nil {
		entries = []models.RosterEntry{}
	}
	return entries, nil
}

// TeacherDashboard buckets every student into the semaphore and returns
// per-student detail. The payload is cached per teacher.
func (s *StatsService) TeacherDashboard(ctx context.Context, teacherID string) (*models.TeacherDashboard, error) {
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
	}

	teacher, err := s.users.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "fetch teacher")
	}
	if teacher.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}

	cacheKey := dashboardCachePrefix + teacherID
	if s.cache.Enabled() {
		var cached models.TeacherDashboard
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return &cached, nil
		}
	}

	students, err := s.users.ListStudents(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "list students")
	}

	dashboard := &models.TeacherDashboard{
		TotalStudents: len(students),
		Students:      make([]models.DashboardStudent, 0, len(students)),
	}
	for _, student := range students {
		stats, err := s.StudentStats(ctx, student.ID)
		if err != nil {
			return nil, err
		}
		color := models.SemaphoreFor(stats.Percentage)
		dashboard.Semaphore.Add(color)
		dashboard.Students = append(dashboard.Students, models.DashboardStudent{
			ID:         student.ID,
			FullName:   student.FullName,
			Matricula:  student.Matricula,
			Present:    stats.Present,
			Percentage: stats.Percentage,
			Color:      color,
		})
	}

	if s.cache.Enabled() {
		s.cache.Set(ctx, cacheKey, dashboard, 0)
	}
	return dashboard, nil
}

// InvalidateDashboards drops every cached dashboard for the teacher; used
// after writes that change the aggregates.
func (s *StatsService) InvalidateDashboards(ctx context.Context, teacherIDs ...string) {
	if !s.cache.Enabled() {
		return
	}
	keys := make([]string, 0, len(teacherIDs))
	for _, id := range teacherIDs {
		keys = append(keys, dashboardCachePrefix+id)
	}
	s.cache.Invalidate(ctx, keys...)
}
