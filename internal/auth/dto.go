package auth

import (
	"strings"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/core/common/validation"
)

const minPasswordLength = 8

type SignUpDTO struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"full_name"`
	CompanyName string `json:"company_name"`
	Role        string `json:"role"`
	Department  string `json:"department,omitempty"`
}

func (d SignUpDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Custom(validEmail)
	v.Field("password", d.Password).Required().Custom(longEnough)
	v.Field("full_name", d.FullName).Required().MaxLength(120)
	v.Field("company_name", d.CompanyName).Required().MaxLength(120)
	if d.Role != "" {
		v.Field("role", strings.ToLower(strings.TrimSpace(d.Role))).OneOf(internal.ErrCodeInvalidRole, "employee", "manager", "admin")
	}
	return v.Validate()
}

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d LoginDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required()
	v.Field("password", d.Password).Required()
	return v.Validate()
}

// RefreshTokenDTO for refresh token requests
type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

func (d RefreshTokenDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("refresh_token", d.RefreshToken).Required()
	return v.Validate()
}

type ForgotPasswordDTO struct {
	Email string `json:"email"`
}

type ResetPasswordDTO struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (d ResetPasswordDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("token", d.Token).Required()
	v.Field("password", d.Password).Required().Custom(longEnough)
	return v.Validate()
}

type SessionResponse struct {
	AuthTokens
	Landing   Landing `json:"landing"`
	ProfileID string  `json:"profile_id"`
}

func validEmail(v interface{}) *internal.AppError {
	s, _ := v.(string)
	at := strings.LastIndex(s, "@")
	if at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t") {
		return nil
	}
	return internal.NewValidationFieldError("email", "email is not valid", internal.ErrCodeValidationFailed)
}

func longEnough(v interface{}) *internal.AppError {
	s, _ := v.(string)
	if len([]rune(s)) >= minPasswordLength {
		return nil
	}
	return internal.NewValidationFieldError("password", "password must be at least 8 characters", internal.ErrCodeValidationFailed)
}
