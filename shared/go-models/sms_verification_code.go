package models

import (
	"time"

	"github.com/google/uuid"
)

// SMSVerificationCode for sms_verification_codes table. Rows are append-only
// history; IsConfirmed flips at most once.
type SMSVerificationCode struct {
	ID          uuid.UUID
	AccountID   *uuid.UUID
	Phone       string
	Code        string
	ExpiresAt   time.Time
	IsConfirmed bool
	ConfirmedAt *time.Time
	CreatedAt   time.Time
}

// IsOutstanding reports whether the code can still be confirmed at now.
func (c *SMSVerificationCode) IsOutstanding(now time.Time) bool {
	return !c.IsConfirmed && c.ExpiresAt.After(now)
}
