package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/poofware/todo-service/shared/go-models"
	"github.com/poofware/todo-service/shared/go-utils"
)

// AccountRepository persists accounts. Lookups return (nil, nil) when no row
// matches.
type AccountRepository interface {
	Create(ctx context.Context, a *models.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByPhone(ctx context.Context, phone string) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)

	SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	// SetCredentials stores username, password hash and optional e-mail and
	// moves the account to registered in one statement. Only accounts in
	// code or registered status are updated; ok reports whether one was.
	SetCredentials(ctx context.Context, id uuid.UUID, username, hash string, email *string) (ok bool, err error)
	// AdvanceStatus moves auth_status forward only; moved is false when the
	// account was already at or beyond status.
	AdvanceStatus(ctx context.Context, id uuid.UUID, status models.AuthStatus) (moved bool, err error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type accountRepository struct {
	db DB
}

func NewAccountRepository(db DB) AccountRepository {
	return &accountRepository{db: db}
}

const selectAccount = `
    SELECT id, phone, username, email, password_hash, auth_status, last_login, created_at, updated_at
    FROM accounts
`

func (r *accountRepository) Create(ctx context.Context, a *models.Account) error {
	q := `
        INSERT INTO accounts (id, phone, username, email, password_hash, auth_status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
        RETURNING created_at, updated_at
    `
	err := r.db.QueryRow(ctx, q,
		a.ID, a.Phone, a.Username, a.Email, a.PasswordHash, string(a.AuthStatus),
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return mapAccountConflict(err)
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return r.getOne(ctx, selectAccount+" WHERE id = $1", id)
}

func (r *accountRepository) GetByPhone(ctx context.Context, phone string) (*models.Account, error) {
	return r.getOne(ctx, selectAccount+" WHERE phone = $1", phone)
}

func (r *accountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	return r.getOne(ctx, selectAccount+" WHERE username = $1", username)
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.getOne(ctx, selectAccount+" WHERE lower(email) = lower($1)", email)
}

func (r *accountRepository) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrAccountNotFound
	}
	return nil
}

func (r *accountRepository) SetCredentials(
	ctx context.Context,
	id uuid.UUID,
	username, hash string,
	email *string,
) (bool, error) {
	q := `
        UPDATE accounts
        SET username = $2,
            password_hash = $3,
            email = COALESCE($4, email),
            auth_status = 'registered',
            updated_at = NOW()
        WHERE id = $1
          AND auth_status IN ('code', 'registered')
    `
	tag, err := r.db.Exec(ctx, q, id, username, hash, email)
	if err != nil {
		return false, mapAccountConflict(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *accountRepository) AdvanceStatus(ctx context.Context, id uuid.UUID, status models.AuthStatus) (bool, error) {
	q := `
        UPDATE accounts
        SET auth_status = $2, updated_at = NOW()
        WHERE id = $1
          AND (CASE auth_status WHEN 'new' THEN 0 WHEN 'code' THEN 1 ELSE 2 END) < $3
    `
	tag, err := r.db.Exec(ctx, q, id, string(status), status.Rank())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *accountRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE accounts SET last_login = $2 WHERE id = $1`, id, at)
	return err
}

func (r *accountRepository) getOne(ctx context.Context, q string, arg interface{}) (*models.Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, q, arg))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var (
		a      models.Account
		status string
	)
	err := row.Scan(
		&a.ID,
		&a.Phone,
		&a.Username,
		&a.Email,
		&a.PasswordHash,
		&status,
		&a.LastLogin,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.AuthStatus = models.AuthStatus(status)
	return &a, nil
}

func mapAccountConflict(err error) error {
	switch uniqueViolation(err) {
	case "":
		return err
	case "accounts_phone_key":
		return utils.ErrDuplicatePhone
	case "accounts_username_key":
		return utils.ErrUsernameTaken
	case "accounts_email_key", "accounts_email_lower_idx":
		return utils.ErrEmailExists
	default:
		return err
	}
}
