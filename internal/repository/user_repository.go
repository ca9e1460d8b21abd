package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/asiste-app/asiste-api/internal/models"
	appErrors "github.com/asiste-app/asiste-api/pkg/errors"
)

const userColumns = "id, matricula, full_name, email, password_hash, role, device_id, created_at, updated_at"

// UserRepository handles persistence for user accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user, generating an id when absent. Unique
// violations on email, matricula or device map to a typed conflict.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `INSERT INTO users (id, matricula, full_name, email, password_hash, role, device_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + userColumns
	var stored models.User
	err := r.db.GetContext(ctx, &stored, query,
		user.ID, user.Matricula, user.FullName, user.Email, user.PasswordHash,
		user.Role, user.DeviceID, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if uniqueViolation(err, "") {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "email, matricula or device already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &stored, nil
}

// FindByEmail returns the user with the given email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE email = $1 LIMIT 1"
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID returns the user with the given id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = $1 LIMIT 1"
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindStudentByIDAndDevice resolves a student only when the claimed id and
// the presenting device binding agree.
func (r *UserRepository) FindStudentByIDAndDevice(ctx context.Context, studentID, deviceID string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = $1 AND device_id = $2 AND role = $3 LIMIT 1"
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, studentID, deviceID, models.RoleStudent); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByDevice returns the user bound to the given device id.
func (r *UserRepository) FindByDevice(ctx context.Context, deviceID string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE device_id = $1 LIMIT 1"
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, deviceID); err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsByEmail reports whether the email is already registered.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)", email)
}

// ExistsByMatricula reports whether the enrollment code is already taken.
func (r *UserRepository) ExistsByMatricula(ctx context.Context, matricula string) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE matricula = $1)", matricula)
}

// ExistsByDevice reports whether the device is already bound to an account.
func (r *UserRepository) ExistsByDevice(ctx context.Context, deviceID string) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE device_id = $1)", deviceID)
}

func (r *UserRepository) exists(ctx context.Context, query string, arg interface{}) (bool, error) {
	var found bool
	if err := r.db.GetContext(ctx, &found, query, arg); err != nil {
		return false, fmt.Errorf("check existence: %w", err)
	}
	return found, nil
}

// UpdateDevice re-binds the account to a new device id.
func (r *UserRepository) UpdateDevice(ctx context.Context, userID, deviceID string, updatedAt time.Time) error {
	query := "UPDATE users SET device_id = $1, updated_at = $2 WHERE id = $3"
	if _, err := r.db.ExecContext(ctx, query, deviceID, updatedAt, userID); err != nil {
		if uniqueViolation(err, "") {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "device already bound to another account")
		}
		return fmt.Errorf("update device binding: %w", err)
	}
	return nil
}

// ListStudents returns every student account ordered by name.
func (r *UserRepository) ListStudents(ctx context.Context) ([]models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE role = $1 ORDER BY full_name ASC"
	var students []models.User
	if err := r.db.SelectContext(ctx, &students, query, models.RoleStudent); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}
