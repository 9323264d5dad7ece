package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/poofware/todo-service/shared/go-models"
)

// SMSVerificationRepository is the append-only ledger of one-time codes.
// Time is always passed in so callers control the clock.
type SMSVerificationRepository interface {
	CreateCode(ctx context.Context, rec *models.SMSVerificationCode) error
	GetLatest(ctx context.Context, accountID uuid.UUID) (*models.SMSVerificationCode, error)
	HasOutstanding(ctx context.Context, accountID uuid.UUID, now time.Time) (bool, error)
	HasConfirmedForPhone(ctx context.Context, phone string) (bool, error)
	// Confirm flips is_confirmed on the newest unconfirmed, unexpired row
	// matching code. It reports false, without error, when nothing matched
	// or a concurrent caller won the row.
	Confirm(ctx context.Context, accountID uuid.UUID, code string, now time.Time) (bool, error)
	// CleanupBefore drops rows created before cutoff.
	CleanupBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type smsVerificationRepository struct {
	db DB
}

func NewSMSVerificationRepository(db DB) SMSVerificationRepository {
	return &smsVerificationRepository{db: db}
}

func (r *smsVerificationRepository) CreateCode(ctx context.Context, rec *models.SMSVerificationCode) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	q := `
        INSERT INTO sms_verification_codes
            (id, account_id, phone, code, expires_at, is_confirmed, created_at)
        VALUES ($1, $2, $3, $4, $5, FALSE, NOW())
        RETURNING created_at
    `
	return r.db.QueryRow(ctx, q, rec.ID, rec.AccountID, rec.Phone, rec.Code, rec.ExpiresAt).Scan(&rec.CreatedAt)
}

func (r *smsVerificationRepository) GetLatest(ctx context.Context, accountID uuid.UUID) (*models.SMSVerificationCode, error) {
	q := `
        SELECT id, account_id, phone, code, expires_at, is_confirmed, confirmed_at, created_at
        FROM sms_verification_codes
        WHERE account_id = $1
        ORDER BY created_at DESC
        LIMIT 1
    `
	var rec models.SMSVerificationCode
	err := r.db.QueryRow(ctx, q, accountID).Scan(
		&rec.ID,
		&rec.AccountID,
		&rec.Phone,
		&rec.Code,
		&rec.ExpiresAt,
		&rec.IsConfirmed,
		&rec.ConfirmedAt,
		&rec.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *smsVerificationRepository) HasOutstanding(ctx context.Context, accountID uuid.UUID, now time.Time) (bool, error) {
	q := `
        SELECT EXISTS (
            SELECT 1 FROM sms_verification_codes
            WHERE account_id = $1 AND is_confirmed = FALSE AND expires_at > $2
        )
    `
	var exists bool
	err := r.db.QueryRow(ctx, q, accountID, now).Scan(&exists)
	return exists, err
}

func (r *smsVerificationRepository) HasConfirmedForPhone(ctx context.Context, phone string) (bool, error) {
	q := `
        SELECT EXISTS (
            SELECT 1 FROM sms_verification_codes
            WHERE phone = $1 AND is_confirmed = TRUE
        )
    `
	var exists bool
	err := r.db.QueryRow(ctx, q, phone).Scan(&exists)
	return exists, err
}

func (r *smsVerificationRepository) Confirm(ctx context.Context, accountID uuid.UUID, code string, now time.Time) (bool, error) {
	q := `
        UPDATE sms_verification_codes
        SET is_confirmed = TRUE, confirmed_at = $3
        WHERE id = (
            SELECT id FROM sms_verification_codes
            WHERE account_id = $1
              AND code = $2
              AND is_confirmed = FALSE
              AND expires_at > $3
            ORDER BY created_at DESC
            LIMIT 1
            FOR UPDATE SKIP LOCKED
        )
          AND is_confirmed = FALSE
    `
	tag, err := r.db.Exec(ctx, q, accountID, code, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *smsVerificationRepository) CleanupBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sms_verification_codes WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
