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

const sessionColumns = `id, teacher_id, date, started_at, ended_at, "open", ref_lat, ref_lon, created_at`

// singleOpenConstraint is the partial unique index enforcing at most one
// open session system-wide.
const singleOpenConstraint = "class_sessions_single_open"

// SessionRepository handles persistence for class sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new open session. A hit on the single-open index is
// returned as the typed session conflict so concurrent opens race safely.
func (r *SessionRepository) Create(ctx context.Context, session *models.ClassSession) (*models.ClassSession, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	session.CreatedAt = time.Now().UTC()

	query := `INSERT INTO class_sessions (id, teacher_id, date, started_at, ended_at, "open", ref_lat, ref_lon, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + sessionColumns
	var stored models.ClassSession
	err := r.db.GetContext(ctx, &stored, query,
		session.ID, session.TeacherID, session.Date, session.StartedAt, session.EndedAt,
		session.Open, session.RefLat, session.RefLon, session.CreatedAt)
	if err != nil {
		if uniqueViolation(err, singleOpenConstraint) {
			return nil, appErrors.Wrap(err, appErrors.ErrSessionConflict.Code, appErrors.ErrSessionConflict.Status, appErrors.ErrSessionConflict.Message)
		}
		return nil, fmt.Errorf("create class session: %w", err)
	}
	return &stored, nil
}

// FindByID returns the session with the given id.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.ClassSession, error) {
	query := "SELECT " + sessionColumns + " FROM class_sessions WHERE id = $1 LIMIT 1"
	var session models.ClassSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// FindOpen returns the most recently opened open session, or nil when no
// session is open.
func (r *SessionRepository) FindOpen(ctx context.Context) (*models.ClassSession, error) {
	query := "SELECT " + sessionColumns + ` FROM class_sessions WHERE "open" = true ORDER BY started_at DESC LIMIT 1`
	var session models.ClassSession
	if err := r.db.GetContext(ctx, &session, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find open session: %w", err)
	}
	return &session, nil
}

// Close marks the session closed and stamps the end time; closing an
// already-closed session refreshes ended_at. Returns sql.ErrNoRows when
// the session does not exist.
func (r *SessionRepository) Close(ctx context.Context, id string, endedAt time.Time) error {
	query := `UPDATE class_sessions SET "open" = false, ended_at = $1 WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, endedAt, id)
	if err != nil {
		return fmt.Errorf("close class session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close class session: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountAll returns the total number of sessions ever opened.
func (r *SessionRepository) CountAll(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM class_sessions"); err != nil {
		return 0, fmt.Errorf("count class sessions: %w", err)
	}
	return total, nil
}
