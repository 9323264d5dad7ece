package utils

import (
	"errors"
	"net/http"
)

// Domain-level errors used by the service layer to provide
// fine-grained failure reasons.
var (
	ErrInvalidPhone       = errors.New("invalid_phone")
	ErrPhoneExists        = errors.New("phone_exists")
	ErrDuplicatePhone     = errors.New("duplicate_phone")
	ErrUsernameTaken      = errors.New("username_taken")
	ErrEmailExists        = errors.New("email_exists")
	ErrPasswordMismatch   = errors.New("password_mismatch")
	ErrWeakPassword       = errors.New("weak_password")
	ErrPhoneNotVerified   = errors.New("phone_not_verified")
	ErrOutstandingCode    = errors.New("outstanding_code")
	ErrInvalidCode        = errors.New("invalid_code")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrUnauthorized       = errors.New("unauthorized")

	ErrAccountNotFound = errors.New("account_not_found")
	ErrTaskNotFound    = errors.New("task_not_found")
	ErrNotTaskOwner    = errors.New("not_task_owner")
	ErrInvalidPage     = errors.New("invalid_page")

	// For concurrency conflicts
	ErrRowVersionConflict = errors.New("row_version_conflict")

	ErrRateLimitExceeded = errors.New("rate_limit_exceeded")

	// For external delivery failures (Twilio, SendGrid, SMTP, broker)
	ErrExternalServiceFailure = errors.New("external_service_failure")
)

// WeakPasswordError lists every policy rule a password failed.
type WeakPasswordError struct {
	Reasons []string
}

func (e *WeakPasswordError) Error() string {
	return ErrWeakPassword.Error()
}

func (e *WeakPasswordError) Unwrap() error {
	return ErrWeakPassword
}

// AppError for structured error handling from services to controllers.
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HandleAppError centralizes responding to AppErrors.
func HandleAppError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		RespondErrorWithCode(w, appErr.StatusCode, appErr.Code, appErr.Message, nil, appErr.Err)
		return
	}
	RespondErrorWithCode(w, http.StatusInternalServerError, ErrCodeInternal, "An unexpected error occurred", nil, err)
}
