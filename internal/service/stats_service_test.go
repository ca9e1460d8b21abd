package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/asiste-app/asiste-api/internal/models"
	appErrors "github.com/asiste-app/asiste-api/pkg/errors"
)

type mockStatsRepos struct {
	totalSessions int
	presence      map[string][2]int
	roster        []models.RosterEntry
	users         map[string]*models.User
	students      []models.User
}

func (m *mockStatsRepos) CountPresence(ctx context.Context, studentID string) (int, int, error) {
	p := m.presence[studentID]
	return p[0], p[1], nil
}

func (m *mockStatsRepos) ListBySession(ctx context.Context, sessionID string) ([]models.RosterEntry, error) {
	return m.roster, nil
}

func (m *mockStatsRepos) CountAll(ctx context.Context) (int, error) {
	return m.totalSessions, nil
}

func (m *mockStatsRepos) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStatsRepos) ListStudents(ctx context.Context) ([]models.User, error) {
	return m.students, nil
}

type mapCacheRepo struct {
	entries map[string]interface{}
}

func (m *mapCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	v, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if d, ok := dest.(*models.TeacherDashboard); ok {
		*d = *v.(*models.TeacherDashboard)
	}
	return nil
}

func (m *mapCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string]interface{})
	}
	m.entries[key] = value
	return nil
}

func (m *mapCacheRepo) Delete(ctx context.Context, keys ...string) {
	for _, k := range keys {
		delete(m.entries, k)
	}
}

func TestStudentStats(t *testing.T) {
	repos := &mockStatsRepos{
		totalSessions: 10,
		presence:      map[string][2]int{"u1": {8, 2}},
	}
	svc := NewStatsService(repos, repos, repos, nil, zap.NewNop())

	stats, err := svc.StudentStats(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 8, stats.Present)
	assert.Equal(t, 2, stats.Absent)
	assert.Equal(t, 2, stats.Justified)
	assert.Equal(t, 10, stats.TotalSessions)
	assert.Equal(t, 80, stats.Percentage)
}

func TestStudentStatsNoSessions(t *testing.T) {
	repos := &mockStatsRepos{totalSessions: 0, presence: map[string][2]int{}}
	svc := NewStatsService(repos, repos, repos, nil, zap.NewNop())

	stats, err := svc.StudentStats(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Percentage)
	assert.Equal(t, 0, stats.Absent)
}

func TestClassRosterEmpty(t *testing.T) {
	repos := &mockStatsRepos{}
	svc := NewStatsService(repos, repos, repos, nil, zap.NewNop())

	entries, err := svc.ClassRoster(context.Background(), "s1")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestTeacherDashboardSemaphore(t *testing.T) {
	m1, m2, m3, m4 := "2024-AAA111", "2024-BBB222", "2024-CCC333", "2024-DDD444"
	repos := &mockStatsRepos{
		totalSessions: 10,
		presence: map[string][2]int{
			"u1": {9, 0}, // 90% green
			"u2": {6, 1}, // 60% yellow
			"u3": {4, 0}, // 40% orange
			"u4": {1, 0}, // 10% red
		},
		users: map[string]*models.User{
			"t1": {ID: "t1", FullName: "Prof Ruiz", Role: models.RoleTeacher},
		},
		students: []models.User{
			{ID: "u1", FullName: "A", Matricula: &m1, Role: models.RoleStudent},
			{ID: "u2", FullName: "B", Matricula: &m2, Role: models.RoleStudent},
			{ID: "u3", FullName: "C", Matricula: &m3, Role: models.RoleStudent},
			{ID: "u4", FullName: "D", Matricula: &m4, Role: models.RoleStudent},
		},
	}
	svc := NewStatsService(repos, repos, repos, nil, zap.NewNop())

	dashboard, err := svc.TeacherDashboard(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 4, dashboard.TotalStudents)
	assert.Equal(t, 1, dashboard.Semaphore.Green)
	assert.Equal(t, 1, dashboard.Semaphore.Yellow)
	assert.Equal(t, 1, dashboard.Semaphore.Orange)
	assert.Equal(t, 1, dashboard.Semaphore.Red)
	require.Len(t, dashboard.Students, 4)
	assert.Equal(t, models.SemaphoreGreen, dashboard.Students[0].Color)
}

func TestTeacherDashboardRejectsStudentID(t *testing.T) {
	repos := &mockStatsRepos{
		users: map[string]*models.User{
			"u1": {ID: "u1", FullName: "Ana", Role: models.RoleStudent},
		},
	}
	svc := NewStatsService(repos, repos, repos, nil, zap.NewNop())

	_, err := svc.TeacherDashboard(context.Background(), "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestTeacherDashboardCached(t *testing.T) {
	repos := &mockStatsRepos{
		totalSessions: 10,
		presence:      map[string][2]int{"u1": {9, 0}},
		users: map[string]*models.User{
			"t1": {ID: "t1", FullName: "Prof Ruiz", Role: models.RoleTeacher},
		},
		students: []models.User{{ID: "u1", FullName: "A", Role: models.RoleStudent}},
	}
	cacheRepo := &mapCacheRepo{}
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc := NewStatsService(repos, repos, repos, cache, zap.NewNop())

	first, err := svc.TeacherDashboard(context.Background(), "t1")
	require.NoError(t, err)

	// Change the underlying counts; the cached payload keeps serving.
	repos.presence["u1"] = [2]int{1, 0}
	second, err := svc.TeacherDashboard(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, first.Students[0].Present, second.Students[0].Present)

	svc.InvalidateDashboards(context.Background(), "t1")
	third, err := svc.TeacherDashboard(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, third.Students[0].Present)
}
