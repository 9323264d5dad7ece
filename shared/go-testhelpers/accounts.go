package testhelpers

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poofware/todo-service/shared/go-models"
	"github.com/poofware/todo-service/shared/go-utils"
)

// FakeAccountRepository is an in-memory repositories.AccountRepository that
// enforces the same uniqueness rules as the accounts table.
type FakeAccountRepository struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*models.Account

	// CreateErr, when set, is returned by the next Create call.
	CreateErr error
}

func NewFakeAccountRepository() *FakeAccountRepository {
	return &FakeAccountRepository{accounts: map[uuid.UUID]*models.Account{}}
}

func (r *FakeAccountRepository) Create(ctx context.Context, a *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CreateErr != nil {
		err := r.CreateErr
		r.CreateErr = nil
		return err
	}
	for _, existing := range r.accounts {
		if existing.Phone == a.Phone {
			return utils.ErrDuplicatePhone
		}
		if a.Username != nil && existing.Username != nil && *existing.Username == *a.Username {
			return utils.ErrUsernameTaken
		}
		if a.Email != nil && existing.Email != nil && strings.EqualFold(*existing.Email, *a.Email) {
			return utils.ErrEmailExists
		}
	}
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	r.accounts[a.ID] = cloneAccount(a)
	return nil
}

func (r *FakeAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		return cloneAccount(a), nil
	}
	return nil, nil
}

func (r *FakeAccountRepository) GetByPhone(ctx context.Context, phone string) (*models.Account, error) {
	return r.find(func(a *models.Account) bool { return a.Phone == phone })
}

func (r *FakeAccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	return r.find(func(a *models.Account) bool { return a.Username != nil && *a.Username == username })
}

func (r *FakeAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.find(func(a *models.Account) bool { return a.Email != nil && strings.EqualFold(*a.Email, email) })
}

func (r *FakeAccountRepository) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return utils.ErrAccountNotFound
	}
	a.PasswordHash = hash
	a.UpdatedAt = time.Now()
	return nil
}

func (r *FakeAccountRepository) SetCredentials(
	ctx context.Context,
	id uuid.UUID,
	username, hash string,
	email *string,
) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok || a.AuthStatus.Rank() < models.AuthStatusCode.Rank() {
		return false, nil
	}
	for oid, other := range r.accounts {
		if oid == id {
			continue
		}
		if other.Username != nil && *other.Username == username {
			return false, utils.ErrUsernameTaken
		}
		if email != nil && other.Email != nil && strings.EqualFold(*other.Email, *email) {
			return false, utils.ErrEmailExists
		}
	}
	a.Username = utils.Ptr(username)
	a.PasswordHash = hash
	if email != nil {
		a.Email = utils.Ptr(*email)
	}
	a.AuthStatus = models.AuthStatusRegistered
	a.UpdatedAt = time.Now()
	return true, nil
}

func (r *FakeAccountRepository) AdvanceStatus(ctx context.Context, id uuid.UUID, status models.AuthStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok || a.AuthStatus.Rank() >= status.Rank() {
		return false, nil
	}
	a.AuthStatus = status
	a.UpdatedAt = time.Now()
	return true, nil
}

func (r *FakeAccountRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		a.LastLogin = utils.Ptr(at)
	}
	return nil
}

// Count returns the number of stored accounts.
func (r *FakeAccountRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.accounts)
}

// Put stores a copy of a directly, bypassing uniqueness checks.
func (r *FakeAccountRepository) Put(a *models.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[a.ID] = cloneAccount(a)
}

func (r *FakeAccountRepository) find(match func(*models.Account) bool) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if match(a) {
			return cloneAccount(a), nil
		}
	}
	return nil, nil
}

func cloneAccount(a *models.Account) *models.Account {
	c := *a
	if a.Username != nil {
		c.Username = utils.Ptr(*a.Username)
	}
	if a.Email != nil {
		c.Email = utils.Ptr(*a.Email)
	}
	if a.LastLogin != nil {
		c.LastLogin = utils.Ptr(*a.LastLogin)
	}
	return &c
}
