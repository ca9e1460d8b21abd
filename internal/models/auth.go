package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims are the claims embedded in issued access tokens.
type JWTClaims struct {
	UserID    string   `json:"uid"`
	Role      UserRole `json:"role"`
	Matricula *string  `json:"matricula,omitempty"`
	DeviceID  *string  `json:"device_id,omitempty"`
	jwt.RegisteredClaims
}

// RegisterRequest is the payload for account registration. Students must
// provide an enrollment code and the device identifier that gets bound to
// the account.
type RegisterRequest struct {
	Matricula string `json:"matricula" validate:"omitempty,matricula"`
	FullName  string `json:"full_name" validate:"required,min=2"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Role      string `json:"role" validate:"required,user_role"`
	DeviceID  string `json:"device_id" validate:"required,device_id"`
}

// LoginRequest is the payload for email/password login. A device id, when
// present, re-binds the account to the submitting device.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	DeviceID string `json:"device_id" validate:"omitempty,device_id"`
}

// AuthResponse carries the issued token and the authenticated user.
type AuthResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	User        UserInfo  `json:"user"`
}

// DeviceVerification is the result of resolving a bound device.
type DeviceVerification struct {
	Valid bool      `json:"valid"`
	User  *UserInfo `json:"user,omitempty"`
}
