package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poofware/todo-service/shared/go-models"
	"github.com/poofware/todo-service/shared/go-repositories"
	"github.com/poofware/todo-service/shared/go-utils"
)

const (
	placeholderUsernamePrefix = "username-"
	maxPlaceholderAttempts    = 20
)

// IdentityStore is the durable record of accounts and their auth status.
// Lookups return utils.ErrAccountNotFound when nothing matches.
type IdentityStore interface {
	FindByPhone(ctx context.Context, phone string) (*models.Account, error)
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)

	// Create stores a new account in NEW status. An empty username gets a
	// generated placeholder. utils.ErrDuplicatePhone on phone conflict.
	Create(ctx context.Context, phone, username string) (*models.Account, error)
	// FetchOrCreate returns the account for phone, creating it when absent.
	FetchOrCreate(ctx context.Context, phone string) (acct *models.Account, created bool, err error)

	SetPassword(ctx context.Context, acct *models.Account, plaintext string) error
	// SetCredentials stores username, hashed password and optional e-mail
	// and marks the account REGISTERED. utils.ErrPhoneNotVerified when the
	// account has not confirmed a code yet.
	SetCredentials(ctx context.Context, acct *models.Account, username, plaintext string, email *string) error
	// UpdateStatus moves auth_status forward; a backwards request is a no-op.
	UpdateStatus(ctx context.Context, acct *models.Account, status models.AuthStatus) error
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
}

type identityStore struct {
	repo repositories.AccountRepository
	now  func() time.Time
}

func NewIdentityStore(repo repositories.AccountRepository) IdentityStore {
	return &identityStore{repo: repo, now: time.Now}
}

func (s *identityStore) FindByPhone(ctx context.Context, phone string) (*models.Account, error) {
	return found(s.repo.GetByPhone(ctx, phone))
}

func (s *identityStore) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	return found(s.repo.GetByUsername(ctx, username))
}

func (s *identityStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return found(s.repo.GetByID(ctx, id))
}

func (s *identityStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return found(s.repo.GetByEmail(ctx, email))
}

func (s *identityStore) Create(ctx context.Context, phone, username string) (*models.Account, error) {
	explicit := username != ""
	for attempt := 0; attempt < maxPlaceholderAttempts; attempt++ {
		acct := &models.Account{
			ID:         uuid.New(),
			Phone:      phone,
			AuthStatus: models.AuthStatusNew,
		}
		name := username
		if !explicit {
			var err error
			name, err = s.placeholderUsername(ctx, acct.ID)
			if err != nil {
				return nil, err
			}
		}
		acct.Username = utils.Ptr(name)

		err := s.repo.Create(ctx, acct)
		if err == nil {
			return acct, nil
		}
		// A generated name can lose a race with another sign-up; pick again.
		if errors.Is(err, utils.ErrUsernameTaken) && !explicit {
			continue
		}
		return nil, err
	}
	return nil, utils.ErrUsernameTaken
}

func (s *identityStore) FetchOrCreate(ctx context.Context, phone string) (*models.Account, bool, error) {
	acct, err := s.repo.GetByPhone(ctx, phone)
	if err != nil {
		return nil, false, err
	}
	if acct != nil {
		return acct, false, nil
	}

	acct, err = s.Create(ctx, phone, "")
	if errors.Is(err, utils.ErrDuplicatePhone) {
		// Lost a concurrent sign-up race for the same phone.
		existing, getErr := s.FindByPhone(ctx, phone)
		return existing, false, getErr
	}
	if err != nil {
		return nil, false, err
	}
	return acct, true, nil
}

func (s *identityStore) SetPassword(ctx context.Context, acct *models.Account, plaintext string) error {
	hash, err := utils.HashPassword(plaintext)
	if err != nil {
		return err
	}
	if err := s.repo.SetPasswordHash(ctx, acct.ID, hash); err != nil {
		return err
	}
	acct.PasswordHash = hash
	return nil
}

func (s *identityStore) SetCredentials(
	ctx context.Context,
	acct *models.Account,
	username, plaintext string,
	email *string,
) error {
	hash, err := utils.HashPassword(plaintext)
	if err != nil {
		return err
	}
	ok, err := s.repo.SetCredentials(ctx, acct.ID, username, hash, email)
	if err != nil {
		return err
	}
	if !ok {
		return utils.ErrPhoneNotVerified
	}
	acct.Username = utils.Ptr(username)
	acct.PasswordHash = hash
	if email != nil {
		acct.Email = utils.Ptr(*email)
	}
	acct.AuthStatus = models.AuthStatusRegistered
	return nil
}

func (s *identityStore) UpdateStatus(ctx context.Context, acct *models.Account, status models.AuthStatus) error {
	if !status.Valid() {
		return errors.New("unknown auth status " + string(status))
	}
	moved, err := s.repo.AdvanceStatus(ctx, acct.ID, status)
	if err != nil {
		return err
	}
	if moved {
		acct.AuthStatus = status
	}
	return nil
}

func (s *identityStore) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	return s.repo.TouchLastLogin(ctx, id, s.now())
}

// placeholderUsername derives username-<last uuid group>, appending digits
// while the name is taken.
func (s *identityStore) placeholderUsername(ctx context.Context, id uuid.UUID) (string, error) {
	parts := strings.Split(id.String(), "-")
	base := placeholderUsernamePrefix + parts[len(parts)-1]
	name := base
	for i := 1; ; i++ {
		existing, err := s.repo.GetByUsername(ctx, name)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return name, nil
		}
		name = base + strconv.Itoa(i)
	}
}

func found(acct *models.Account, err error) (*models.Account, error) {
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, utils.ErrAccountNotFound
	}
	return acct, nil
}
