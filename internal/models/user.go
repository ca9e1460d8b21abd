package models

import "time"

// UserRole represents the two supported account roles.
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
)

// Valid returns true when the role is a supported value.
func (r UserRole) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

// User represents an application user stored in the users table. Students
// carry an enrollment code (matricula) and a bound device identifier; the
// device binding is the trust anchor for attendance recording.
type User struct {
	ID           string    `db:"id" json:"id"`
	Matricula    *string   `db:"matricula" json:"matricula,omitempty"`
	FullName     string    `db:"full_name" json:"full_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         UserRole  `db:"role" json:"role"`
	DeviceID     *string   `db:"device_id" json:"device_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// UserInfo is the public projection returned by auth endpoints.
type UserInfo struct {
	ID        string   `json:"id"`
	Matricula *string  `json:"matricula,omitempty"`
	FullName  string   `json:"full_name"`
	Email     string   `json:"email"`
	Role      UserRole `json:"role"`
	DeviceID  *string  `json:"device_id,omitempty"`
}

// Info converts a stored user into its public projection.
func (u *User) Info() UserInfo {
	return UserInfo{
		ID:        u.ID,
		Matricula: u.Matricula,
		FullName:  u.FullName,
		Email:     u.Email,
		Role:      u.Role,
		DeviceID:  u.DeviceID,
	}
}
