package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/asiste-app/asiste-api/internal/models"
	appErrors "github.com/asiste-app/asiste-api/pkg/errors"
)

type mockAttendanceRepo struct {
	records map[string]*models.AttendanceRecord
	nextID  int
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{records: make(map[string]*models.AttendanceRecord)}
}

func pairKey(sessionID, studentID string) string {
	return sessionID + "/" + studentID
}

func (m *mockAttendanceRepo) Create(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	key := pairKey(record.SessionID, record.StudentID)
	if _, ok := m.records[key]; ok {
		return nil, appErrors.Clone(appErrors.ErrDuplicateScan, "")
	}
	m.nextID++
	record.ID = fmt.Sprintf("a%d", m.nextID)
	record.CreatedAt = time.Now().UTC()
	stored := *record
	m.records[key] = &stored
	return &stored, nil
}

func (m *mockAttendanceRepo) FindBySessionAndStudent(ctx context.Context, sessionID, studentID string) (*models.AttendanceRecord, error) {
	if r, ok := m.records[pairKey(sessionID, studentID)]; ok {
		return r, nil
	}
	return nil, nil
}

func (m *mockAttendanceRepo) Justify(ctx context.Context, recordID, reason string, comment *string) error {
	for _, r := range m.records {
		if r.ID == recordID {
			r.Justified = true
			r.JustifyReason = &reason
			r.JustifyComment = comment
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockAttendanceRepo) ListByStudent(ctx context.Context, studentID string, limit int) ([]models.AttendanceRecord, error) {
	var out []models.AttendanceRecord
	for _, r := range m.records {
		if r.StudentID == studentID {
			out = append(out, *r)
		}
	}
	return out, nil
}

type mockStudentResolver struct {
	students map[string]*models.User
}

func newMockStudentResolver(students ...*models.User) *mockStudentResolver {
	m := &mockStudentResolver{students: make(map[string]*models.User)}
	for _, s := range students {
		m.students[s.ID] = s
	}
	return m
}

func (m *mockStudentResolver) FindStudentByIDAndDevice(ctx context.Context, studentID, deviceID string) (*models.User, error) {
	s, ok := m.students[studentID]
	if !ok || s.DeviceID == nil || *s.DeviceID != deviceID || s.Role != models.RoleStudent {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

func testStudent(id, device string) *models.User {
	matricula := "2024-ABC123"
	return &models.User{
		ID:        id,
		Matricula: &matricula,
		FullName:  "Ana Torres",
		Email:     id + "@example.com",
		Role:      models.RoleStudent,
		DeviceID:  &device,
	}
}

func newAttendanceFixture(t *testing.T) (*AttendanceService, *SessionService, *mockAttendanceRepo, *mockSessionRepo) {
	t.Helper()
	records := newMockAttendanceRepo()
	sessions := newMockSessionRepo()
	users := newMockStudentResolver(
		testStudent("u1", "device_abc123"),
		testStudent("u2", "device_def456"),
	)
	attendanceSvc := NewAttendanceService(records, users, sessions, validator.New(), zap.NewNop(), nil, 7)
	sessionSvc := NewSessionService(sessions, zap.NewNop(), nil, 128)
	return attendanceSvc, sessionSvc, records, sessions
}

func TestRecordFullScanCycle(t *testing.T) {
	svc, sessionSvc, _, _ := newAttendanceFixture(t)

	refLat, refLon := 19.4326, -99.1332
	opened, err := sessionSvc.Open(context.Background(), "t1", &refLat, &refLon)
	require.NoError(t, err)

	// Scan at the reference point is valid with zero distance.
	res, err := svc.Record(context.Background(), RecordRequest{
		DeviceID:  "device_abc123",
		StudentID: "u1",
		QRToken:   opened.QRToken,
		ScanLat:   &refLat,
		ScanLon:   &refLon,
	})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	require.NotNil(t, res.DistanceM)
	assert.InDelta(t, 0, *res.DistanceM, 0.01)

	// Second scan from the same student is rejected.
	_, err = svc.Record(context.Background(), RecordRequest{
		DeviceID:  "device_abc123",
		StudentID: "u1",
		QRToken:   opened.QRToken,
		ScanLat:   &refLat,
		ScanLon:   &refLon,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrDuplicateScan)

	// A scan roughly 500 m away is persisted but marked invalid.
	farLat := refLat + 0.00449
	res, err = svc.Record(context.Background(), RecordRequest{
		DeviceID:  "device_def456",
		StudentID: "u2",
		QRToken:   opened.QRToken,
		ScanLat:   &farLat,
		ScanLon:   &refLon,
	})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	require.NotNil(t, res.DistanceM)
	assert.InDelta(t, 500, *res.DistanceM, 5)

	// After the session closes every further scan fails.
	_, err = sessionSvc.Close(context.Background(), opened.Session.ID)
	require.NoError(t, err)

	_, err = svc.Record(context.Background(), RecordRequest{
		DeviceID:  "device_abc123",
		StudentID: "u1",
		QRToken:   opened.QRToken,
		ScanLat:   &refLat,
		ScanLon:   &refLon,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrSessionClosed)
}

func TestRecordDeviceMismatch(t *testing.T) {
	svc, sessionSvc, _, _ := newAttendanceFixture(t)

	opened, err := sessionSvc.Open(context.Background(), "t1", nil, nil)
	require.NoError(t, err)

	_, err = svc.Record(context.Background(), RecordRequest{
		DeviceID:  "device_stolen99",
		StudentID: "u1",
		QRToken:   opened.QRToken,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrDeviceMismatch)
}

func TestRecordMalformedToken(t *testing.T) {
	svc, sessionSvc, _, _ := newAttendanceFixture(t)

	_, err := sessionSvc.Open(context.Background(), "t1", nil, nil)
	require.NoError(t, err)

	_, err = svc.Record(context.Background(), RecordRequest{
		DeviceID:  "device_abc123",
		StudentID: "u1",
		QRToken:   "{\"broken\":",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInvalidQR)
}

func TestRecordWithoutCoordinatesIsValid(t *testing.T) {
	svc, sessionSvc, _, _ := newAttendanceFixture(t)

	refLat, refLon := 19.4326, -99.1332
	opened, err := sessionSvc.Open(context.Background(), "t1", &refLat, &refLon)
	require.NoError(t, err)

	res, err := svc.Record(context.Background(), RecordRequest{
		DeviceID:  "device_abc123",
		StudentID: "u1",
		QRToken:   opened.QRToken,
	})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Nil(t, res.DistanceM)
}

func TestRecordCoordinatesMustPair(t *testing.T) {
	svc, sessionSvc, _, _ := newAttendanceFixture(t)

	opened, err := sessionSvc.Open(context.Background(), "t1", nil, nil)
	require.NoError(t, err)

	lat := 19.4326
	_, err = svc.Record(context.Background(), RecordRequest{
		DeviceID:  "device_abc123",
		StudentID: "u1",
		QRToken:   opened.QRToken,
		ScanLat:   &lat,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestJustifyKeepsValidFlag(t *testing.T) {
	svc, sessionSvc, records, _ := newAttendanceFixture(t)

	refLat, refLon := 19.4326, -99.1332
	opened, err := sessionSvc.Open(context.Background(), "t1", &refLat, &refLon)
	require.NoError(t, err)

	farLat := refLat + 0.01
	res, err := svc.Record(context.Background(), RecordRequest{
		DeviceID:  "device_abc123",
		StudentID: "u1",
		QRToken:   opened.QRToken,
		ScanLat:   &farLat,
		ScanLon:   &refLon,
	})
	require.NoError(t, err)
	require.False(t, res.Valid)

	comment := "bus strike"
	err = svc.Justify(context.Background(), res.RecordID, JustifyRequest{Reason: "transport", Comment: &comment})
	require.NoError(t, err)

	stored := records.records[pairKey(res.SessionID, "u1")]
	require.NotNil(t, stored)
	assert.True(t, stored.Justified)
	assert.False(t, stored.Valid)
	require.NotNil(t, stored.JustifyReason)
	assert.Equal(t, "transport", *stored.JustifyReason)
}

func TestJustifyMissingRecord(t *testing.T) {
	svc, _, _, _ := newAttendanceFixture(t)

	err := svc.Justify(context.Background(), "missing", JustifyRequest{Reason: "health"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestRecentActivityClassification(t *testing.T) {
	svc, _, records, _ := newAttendanceFixture(t)

	now := time.Now().UTC()
	reason := "health"
	records.records[pairKey("s1", "u1")] = &models.AttendanceRecord{ID: "a1", SessionID: "s1", StudentID: "u1", ScannedAt: now, Valid: true}
	records.records[pairKey("s2", "u1")] = &models.AttendanceRecord{ID: "a2", SessionID: "s2", StudentID: "u1", ScannedAt: now, Valid: false}
	records.records[pairKey("s3", "u1")] = &models.AttendanceRecord{ID: "a3", SessionID: "s3", StudentID: "u1", ScannedAt: now, Valid: false, Justified: true, JustifyReason: &reason}

	entries, err := svc.RecentActivity(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	kinds := make(map[string]models.ActivityKind)
	for _, e := range entries {
		kinds[e.SessionID] = e.Kind
	}
	assert.Equal(t, models.ActivityAttendance, kinds["s1"])
	assert.Equal(t, models.ActivityInvalid, kinds["s2"])
	assert.Equal(t, models.ActivityJustified, kinds["s3"])
}
