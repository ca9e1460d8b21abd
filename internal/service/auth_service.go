package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/asiste-app/asiste-api/internal/models"
	appErrors "github.com/asiste-app/asiste-api/pkg/errors"
)

type authUserRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByDevice(ctx context.Context, deviceID string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByMatricula(ctx context.Context, matricula string) (bool, error)
	ExistsByDevice(ctx context.Context, deviceID string) (bool, error)
	UpdateDevice(ctx context.Context, userID, deviceID string, updatedAt time.Time) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// AuthService provides registration, login and token validation. Device
// binding happens here: registration binds the submitting device, and a
// login from a new device re-binds the account to it.
type AuthService struct {
	repo      authUserRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	RegisterCustomValidators(validate)
	return &AuthService{repo: repo, validator: validate, logger: logger, config: config}
}

// Register creates an account, binds the submitting device and returns an
// access token.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	req.Matricula = NormalizeMatricula(req.Matricula)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	role := models.UserRole(strings.ToLower(req.Role))
	if role == models.RoleStudent && req.Matricula == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "matricula is required for students")
	}

	if taken, err := s.repo.ExistsByEmail(ctx, req.Email); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "check email")
	} else if taken {
		return nil, appErrors.Clone(appErrors.ErrValidation, "email already registered")
	}
	if req.Matricula != "" {
		if taken, err := s.repo.ExistsByMatricula(ctx, req.Matricula); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "check matricula")
		} else if taken {
			return nil, appErrors.Clone(appErrors.ErrValidation, "matricula already registered")
		}
	}
	if taken, err := s.repo.ExistsByDevice(ctx, req.DeviceID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "check device")
	} else if taken {
		return nil, appErrors.Clone(appErrors.ErrValidation, "device already bound to another account")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "hash password")
	}

	user := &models.User{
		FullName:     strings.TrimSpace(req.FullName),
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
		DeviceID:     &req.DeviceID,
	}
	if req.Matricula != "" {
		user.Matricula = &req.Matricula
	}

	stored, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		zap.String("user_id", stored.ID),
		zap.String("role", string(stored.Role)))

	return s.issueToken(stored)
}

// Login authenticates by email and password. When the client presents a
// device id that differs from the stored binding, the account is re-bound
// to the new device.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	if req.DeviceID != "" && (user.DeviceID == nil || *user.DeviceID != req.DeviceID) {
		if err := s.repo.UpdateDevice(ctx, user.ID, req.DeviceID, time.Now().UTC()); err != nil {
			return nil, err
		}
		user.DeviceID = &req.DeviceID
		s.logger.Info("device re-bound", zap.String("user_id", user.ID))
	}

	return s.issueToken(user)
}

// ValidateToken verifies an access token and returns its claims.
func (s *AuthService) ValidateToken(token string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	return claims, nil
}

// VerifyDevice resolves the account bound to a device id. An unknown
// device degrades to a not-valid verdict rather than an error.
func (s *AuthService) VerifyDevice(ctx context.Context, deviceID string) (*models.DeviceVerification, error) {
	if deviceID == "" {
		return &models.DeviceVerification{Valid: false}, nil
	}
	user, err := s.repo.FindByDevice(ctx, deviceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.DeviceVerification{Valid: false}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "fetch device binding")
	}
	info := user.Info()
	return &models.DeviceVerification{Valid: true, User: &info}, nil
}

func (s *AuthService) issueToken(user *models.User) (*models.AuthResponse, error) {
	now := time.Now().UTC()
	claims := &models.JWTClaims{
		UserID:    user.ID,
		Role:      user.Role,
		Matricula: user.Matricula,
		DeviceID:  user.DeviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.Expiration)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "sign access token")
	}

	return &models.AuthResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.Expiration.Seconds()),
		IssuedAt:    now,
		User:        user.Info(),
	}, nil
}
