package service

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/asiste-app/asiste-api/internal/models"
)

// matriculaPattern is the canonical enrollment-code format: a four-digit
// cohort year, a dash, and 4 to 9 uppercase alphanumerics.
var matriculaPattern = regexp.MustCompile(`^\d{4}-[A-Z0-9]{4,9}$`)

// devicePattern matches client device identifiers such as device_abc123,
// android_12345 or ios_67890.
var devicePattern = regexp.MustCompile(`^(device|android|ios)_[a-zA-Z0-9]{6,}$`)

// RegisterCustomValidators installs the domain validation tags used by the
// request DTOs.
func RegisterCustomValidators(v *validator.Validate) {
	_ = v.RegisterValidation("matricula", func(fl validator.FieldLevel) bool {
		return matriculaPattern.MatchString(strings.ToUpper(fl.Field().String()))
	})
	_ = v.RegisterValidation("device_id", func(fl validator.FieldLevel) bool {
		return devicePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		return models.UserRole(strings.ToLower(fl.Field().String())).Valid()
	})
}

// NormalizeMatricula upper-cases and trims an enrollment code before
// validation or storage.
func NormalizeMatricula(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
