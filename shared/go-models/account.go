package models

import (
	"time"

	"github.com/google/uuid"
)

// AuthStatus tracks how far an account has progressed through sign-up.
type AuthStatus string

const (
	AuthStatusNew        AuthStatus = "new"
	AuthStatusCode       AuthStatus = "code"
	AuthStatusRegistered AuthStatus = "registered"
)

// Rank orders statuses so transitions can be checked as forward-only.
func (s AuthStatus) Rank() int {
	switch s {
	case AuthStatusNew:
		return 0
	case AuthStatusCode:
		return 1
	case AuthStatusRegistered:
		return 2
	default:
		return -1
	}
}

func (s AuthStatus) Valid() bool {
	return s.Rank() >= 0
}

// Account is a phone-keyed identity. Username holds a generated placeholder
// until credentials are registered; PasswordHash is empty until then.
type Account struct {
	ID           uuid.UUID  `json:"id"`
	Phone        string     `json:"phone"`
	Username     *string    `json:"username"`
	Email        *string    `json:"email,omitempty"`
	PasswordHash string     `json:"-"`
	AuthStatus   AuthStatus `json:"auth_status"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (a *Account) UsernameOrEmpty() string {
	if a.Username == nil {
		return ""
	}
	return *a.Username
}

func (a *Account) EmailOrEmpty() string {
	if a.Email == nil {
		return ""
	}
	return *a.Email
}
