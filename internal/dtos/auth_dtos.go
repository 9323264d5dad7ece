package dtos

import (
	"github.com/google/uuid"
)

// ----------------------
// Sign-up / verification
// ----------------------

type SignUpRequest struct {
	Phone string `json:"phone" validate:"required,max=32"`
}

type SignUpResponse struct {
	ID         uuid.UUID `json:"id"`
	Phone      string    `json:"phone"`
	AuthStatus string    `json:"auth_status"`
	Access     string    `json:"access"`
	Refresh    string    `json:"refresh"`
	Detail     string    `json:"detail"`
}

type VerifyCodeRequest struct {
	Code string `json:"code" validate:"required,numeric,max=10"`
}

type VerifyCodeResponse struct {
	Detail     string `json:"detail"`
	Access     string `json:"access"`
	Refresh    string `json:"refresh"`
	UserStatus string `json:"user_status"`
}

// ----------------------
// Credentials
// ----------------------

type RegisterRequest struct {
	Username        string  `json:"username" validate:"required,username"`
	Password        string  `json:"password" validate:"required,max=128"`
	ConfirmPassword string  `json:"confirm_password" validate:"required,max=128"`
	Email           *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required,max=128"`
}

type TokenPairResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// ----------------------
// Refresh / logout
// ----------------------

type RefreshLoginRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type RefreshLoginResponse struct {
	Access string `json:"access"`
}

type LogoutRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// ----------------------
// Password recovery
// ----------------------

type ForgotPasswordRequest struct {
	Phone string `json:"phone" validate:"required,max=32"`
}

type ForgotPasswordResponse struct {
	Detail  string `json:"detail"`
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password" validate:"required,max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"required,max=128"`
}

// DetailResponse is the body of operations that only report an outcome.
type DetailResponse struct {
	Detail string `json:"detail"`
}
