package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/poofware/todo-service/shared/go-middleware"
	"github.com/poofware/todo-service/shared/go-utils"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

// usernamePattern allows letters, digits and @/./+/-/_ characters.
var usernamePattern = regexp.MustCompile(`^[\w.@+-]{1,150}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("username", validUsername); err != nil {
		panic(fmt.Sprintf("register username validation: %v", err))
	}
	return v
}

func validUsername(fl validator.FieldLevel) bool {
	return usernamePattern.MatchString(fl.Field().String())
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// It writes the 400 response itself and reports whether the caller may go on.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Validation failed", validationDetails(err), err,
		)
		return false
	}
	return true
}

// validationDetails maps each failing field to the tag it failed.
func validationDetails(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

// currentAccountID reads the identity placed by the auth middleware.
func currentAccountID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authentication required", nil,
		)
		return uuid.Nil, false
	}
	return id, true
}

// respondServiceError maps a service-layer error onto the HTTP error taxonomy.
func respondServiceError(w http.ResponseWriter, err error) {
	var weak *utils.WeakPasswordError
	if errors.As(err, &weak) {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeWeakPassword, "This password is too weak", weak.Reasons, err,
		)
		return
	}
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		utils.HandleAppError(w, err)
		return
	}

	switch {
	// 400
	case errors.Is(err, utils.ErrInvalidPhone):
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPhone, "Invalid phone number", nil, err)
	case errors.Is(err, utils.ErrPhoneExists), errors.Is(err, utils.ErrDuplicatePhone):
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodePhoneExists, "This phone already exists", nil, err)
	case errors.Is(err, utils.ErrUsernameTaken):
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeUsernameTaken, "This username already exists", nil, err)
	case errors.Is(err, utils.ErrEmailExists):
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeEmailExists, "This email already exists", nil, err)
	case errors.Is(err, utils.ErrPasswordMismatch):
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodePasswordMismatch, "password and confirm_password do not match", nil, err)
	case errors.Is(err, utils.ErrWeakPassword):
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeWeakPassword, "This password is too weak", nil, err)
	case errors.Is(err, utils.ErrPhoneNotVerified):
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodePhoneNotVerified, "Phone number is not verified yet", nil, err)
	case errors.Is(err, utils.ErrOutstandingCode):
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeOutstandingCode, "You have a valid code, please wait a moment", nil, err)
	case errors.Is(err, utils.ErrInvalidCode):
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidCode, "You entered a wrong code", nil, err)
	case errors.Is(err, utils.ErrInvalidToken):
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidToken, "Token is invalid or already revoked", nil, err)

	// 401
	case errors.Is(err, utils.ErrInvalidCredentials):
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeInvalidCredentials, "You entered wrong username or password", nil, err)
	case errors.Is(err, utils.ErrUnauthorized):
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid or expired credentials", nil, err)

	// 403
	case errors.Is(err, utils.ErrNotTaskOwner):
		utils.RespondErrorWithCode(w, http.StatusForbidden, utils.ErrCodeForbidden, "This task is not yours", nil, err)

	// 404
	case errors.Is(err, utils.ErrAccountNotFound):
		utils.RespondErrorWithCode(w, http.StatusNotFound, utils.ErrCodeNotFound, "User not found", nil, err)
	case errors.Is(err, utils.ErrTaskNotFound):
		utils.RespondErrorWithCode(w, http.StatusNotFound, utils.ErrCodeNotFound, "Task not found", nil, err)
	case errors.Is(err, utils.ErrInvalidPage):
		utils.RespondErrorWithCode(w, http.StatusNotFound, utils.ErrCodeNotFound, "Invalid page.", nil, err)

	// 409 / 429 / 502
	case errors.Is(err, utils.ErrRowVersionConflict):
		utils.RespondErrorWithCode(w, http.StatusConflict, utils.ErrCodeRowVersionConflict, "The resource was modified concurrently, please retry", nil, err)
	case errors.Is(err, utils.ErrRateLimitExceeded):
		utils.RespondErrorWithCode(w, http.StatusTooManyRequests, utils.ErrCodeRateLimitExceeded, "Too many requests. Please try again later.", nil, err)
	case errors.Is(err, utils.ErrExternalServiceFailure):
		utils.RespondErrorWithCode(w, http.StatusBadGateway, utils.ErrCodeExternalServiceFailure, "An upstream service failed, please retry", nil, err)

	default:
		utils.RespondErrorWithCode(w, http.StatusInternalServerError, utils.ErrCodeInternal, "An unexpected error occurred", nil, err)
	}
}
