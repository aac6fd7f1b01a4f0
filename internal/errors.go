package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"

	ErrorTypeInvalidTransition ErrorType = "INVALID_TRANSITION"
)

type ErrorCode string

const (
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount      ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidDescription ErrorCode = "INVALID_DESCRIPTION"
	ErrCodeInvalidCategory    ErrorCode = "INVALID_CATEGORY"
	ErrCodeInvalidDate        ErrorCode = "INVALID_DATE"
	ErrCodeInvalidDepartment  ErrorCode = "INVALID_DEPARTMENT"
	ErrCodeInvalidAttachment  ErrorCode = "INVALID_ATTACHMENT"
	ErrCodeInvalidStatus      ErrorCode = "INVALID_STATUS"
	ErrCodeInvalidRole        ErrorCode = "INVALID_ROLE"
	ErrCodeStaleScore         ErrorCode = "STALE_COMPLIANCE_SCORE"

	ErrCodeRequestNotFound   ErrorCode = "REQUEST_NOT_FOUND"
	ErrCodeAccessRestricted  ErrorCode = "REQUEST_ACCESS_RESTRICTED"
	ErrCodeInvalidTransition ErrorCode = "INVALID_STATUS_TRANSITION"
	ErrCodeStatusConflict    ErrorCode = "REQUEST_STATUS_CONFLICT"
	ErrCodeActionNotAllowed  ErrorCode = "ACTION_NOT_ALLOWED"

	ErrCodeNotificationNotFound ErrorCode = "NOTIFICATION_NOT_FOUND"
	ErrCodeProfileNotFound      ErrorCode = "PROFILE_NOT_FOUND"
	ErrCodeDepartmentNotFound   ErrorCode = "DEPARTMENT_NOT_FOUND"
	ErrCodeDepartmentExists     ErrorCode = "DEPARTMENT_EXISTS"
	ErrCodeDepartmentRequired   ErrorCode = "DEPARTMENT_REQUIRED"
	ErrCodeSelfModification     ErrorCode = "SELF_MODIFICATION"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeAccountSuspended   ErrorCode = "ACCOUNT_SUSPENDED"
	ErrCodeEmailTaken         ErrorCode = "EMAIL_TAKEN"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeResetTokenInvalid  ErrorCode = "RESET_TOKEN_INVALID"
	ErrCodeAdminOnly          ErrorCode = "ADMIN_ONLY"

	ErrCodeStorageFailed ErrorCode = "STORAGE_FAILED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if v, ok := e.Details.(ValidationErrors); ok && len(v.Errors) > 0 {
		messages := make([]string, len(v.Errors))
		for i, fe := range v.Errors {
			messages[i] = fe.Message
		}
		return strings.Join(messages, "; ")
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on type and code so wrapped copies of a sentinel compare equal.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func newAppError(t ErrorType, code ErrorCode, message string, status int) *AppError {
	return &AppError{Type: t, Code: code, Message: message, StatusCode: status}
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeValidation, code, message, http.StatusBadRequest)
}

// NewValidationFieldError reports a single invalid field.
func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return NewValidationError("Validation failed", ErrCodeValidationFailed).
		WithDetails(ValidationErrors{Errors: []ValidationError{{Field: field, Message: message, Code: string(code)}}})
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeNotFound, code, message, http.StatusNotFound)
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeUnauthorized, code, message, http.StatusUnauthorized)
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeForbidden, code, message, http.StatusForbidden)
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeConflict, code, message, http.StatusConflict)
}

func NewInvalidTransitionError(message string) *AppError {
	return newAppError(ErrorTypeInvalidTransition, ErrCodeInvalidTransition, message, http.StatusUnprocessableEntity)
}

func NewInternalError(message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, "INTERNAL_ERROR", message, http.StatusInternalServerError).WithCause(cause)
}

func NewExternalError(message string, code ErrorCode, cause error) *AppError {
	return newAppError(ErrorTypeExternal, code, message, http.StatusBadGateway).WithCause(cause)
}

var (
	ErrRequestNotFound    = NewNotFoundError("Request not found", ErrCodeRequestNotFound)
	ErrAccessRestricted   = NewForbiddenError("You do not have access to this request", ErrCodeAccessRestricted)
	ErrInvalidTransition  = NewInvalidTransitionError("Status transition is not allowed")
	ErrStatusConflict     = NewConflictError("Request status changed since it was loaded", ErrCodeStatusConflict)
	ErrActionNotAllowed   = NewForbiddenError("You are not allowed to perform this action", ErrCodeActionNotAllowed)
	ErrStaleScore         = NewValidationError("Compliance score is missing or does not match the submitted content", ErrCodeStaleScore)
	ErrInvalidStatus      = NewValidationError("Unknown request status", ErrCodeInvalidStatus)
	ErrInvalidRole        = NewValidationError("Unknown role", ErrCodeInvalidRole)
	ErrDepartmentNotFound = NewValidationError("Department does not exist in this organization", ErrCodeDepartmentNotFound)
	ErrDepartmentExists   = NewConflictError("Department already exists", ErrCodeDepartmentExists)

	ErrNotificationNotFound = NewNotFoundError("Notification not found", ErrCodeNotificationNotFound)
	ErrProfileNotFound      = NewNotFoundError("Profile not found", ErrCodeProfileNotFound)
	ErrDepartmentRequired   = NewForbiddenError("Select a department to continue", ErrCodeDepartmentRequired)
	ErrSelfModification     = NewForbiddenError("Admins cannot suspend or demote themselves", ErrCodeSelfModification)
	ErrAdminOnly            = NewForbiddenError("Admin access required", ErrCodeAdminOnly)

	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrAccountSuspended   = NewForbiddenError("Account is suspended", ErrCodeAccountSuspended)
	ErrEmailTaken         = NewConflictError("Email is already registered", ErrCodeEmailTaken)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
	ErrResetTokenInvalid  = NewValidationError("Reset link is invalid or has expired", ErrCodeResetTokenInvalid)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
