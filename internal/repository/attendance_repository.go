package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/asiste-app/asiste-api/internal/models"
	appErrors "github.com/asiste-app/asiste-api/pkg/errors"
)

const attendanceColumns = `id, session_id, student_id, scanned_at, scan_lat, scan_lon, distance_m, "valid", justified, justify_reason, justify_comment, created_at`

// duplicateScanConstraint is the unique index on (session_id, student_id).
const duplicateScanConstraint = "attendance_records_session_student_key"

// AttendanceRepository handles persistence for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Create inserts a new attendance record. A hit on the per-student unique
// index maps to the typed duplicate error so concurrent double scans are
// rejected, never overwritten.
func (r *AttendanceRepository) Create(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.CreatedAt = time.Now().UTC()

	query := `INSERT INTO attendance_records (id, session_id, student_id, scanned_at, scan_lat, scan_lon, distance_m, "valid", justified, justify_reason, justify_comment, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING ` + attendanceColumns
	var stored models.AttendanceRecord
	err := r.db.GetContext(ctx, &stored, query,
		record.ID, record.SessionID, record.StudentID, record.ScannedAt,
		record.ScanLat, record.ScanLon, record.DistanceM, record.Valid,
		record.Justified, record.JustifyReason, record.JustifyComment, record.CreatedAt)
	if err != nil {
		if uniqueViolation(err, duplicateScanConstraint) {
			return nil, appErrors.Wrap(err, appErrors.ErrDuplicateScan.Code, appErrors.ErrDuplicateScan.Status, appErrors.ErrDuplicateScan.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "store attendance record")
	}
	return &stored, nil
}

// FindBySessionAndStudent returns the record for the pair, or nil when the
// student has not scanned for the session yet.
func (r *AttendanceRepository) FindBySessionAndStudent(ctx context.Context, sessionID, studentID string) (*models.AttendanceRecord, error) {
	query := "SELECT " + attendanceColumns + " FROM attendance_records WHERE session_id = $1 AND student_id = $2 LIMIT 1"
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, sessionID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find attendance record: %w", err)
	}
	return &record, nil
}

// ListBySession returns the session roster joined with student identity,
// most recent scan first.
func (r *AttendanceRepository) ListBySession(ctx context.Context, sessionID string) ([]models.RosterEntry, error) {
	query := `SELECT ar.student_id, u.matricula, u.full_name AS student_name, ar.scanned_at,
ar.scan_lat, ar.scan_lon, ar.distance_m, ar."valid", ar.justified
FROM attendance_records ar
JOIN users u ON u.id = ar.student_id
WHERE ar.session_id = $1
ORDER BY ar.scanned_at DESC`
	var entries []models.RosterEntry
	if err := r.db.SelectContext(ctx, &entries, query, sessionID); err != nil {
		return nil, fmt.Errorf("list session roster: %w", err)
	}
	return entries, nil
}

// ListByStudent returns the student's most recent records, newest first.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID string, limit int) ([]models.AttendanceRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	query := fmt.Sprintf("SELECT "+attendanceColumns+" FROM attendance_records WHERE student_id = $1 ORDER BY scanned_at DESC LIMIT %d", limit)
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID); err != nil {
		return nil, fmt.Errorf("list student attendance: %w", err)
	}
	return records, nil
}

// presenceCounts carries the counted columns for CountPresence.
type presenceCounts struct {
	Present   int `db:"present"`
	Justified int `db:"justified"`
}

// CountPresence returns how many of the student's records count as present
// (valid or justified) and how many are justified.
func (r *AttendanceRepository) CountPresence(ctx context.Context, studentID string) (present, justified int, err error) {
	query := `SELECT
COUNT(*) FILTER (WHERE "valid" OR justified) AS present,
COUNT(*) FILTER (WHERE justified) AS justified
FROM attendance_records WHERE student_id = $1`
	var counts presenceCounts
	if err := r.db.GetContext(ctx, &counts, query, studentID); err != nil {
		return 0, 0, fmt.Errorf("count presence: %w", err)
	}
	return counts.Present, counts.Justified, nil
}

// Justify marks the record justified and stores the reason and optional
// comment. The valid flag is never touched. Returns sql.ErrNoRows when the
// record does not exist.
func (r *AttendanceRepository) Justify(ctx context.Context, recordID, reason string, comment *string) error {
	query := "UPDATE attendance_records SET justified = true, justify_reason = $1, justify_comment = $2 WHERE id = $3"
	res, err := r.db.ExecContext(ctx, query, reason, comment, recordID)
	if err != nil {
		return fmt.Errorf("justify attendance record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("justify attendance record: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
