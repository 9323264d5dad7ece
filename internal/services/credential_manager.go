package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/poofware/todo-service/shared/go-models"
	"github.com/poofware/todo-service/shared/go-utils"
)

// dummyPasswordHash is compared against when a login names no account so the
// response time does not reveal whether the username exists. It is built on
// first use so it carries the current utils.PasswordHashCost.
var dummyPasswordHash = sync.OnceValue(func() string {
	hash, err := utils.HashPassword("todo-service-dummy-password")
	if err != nil {
		utils.Logger.WithError(err).Error("Failed to build dummy password hash")
	}
	return hash
})

// CredentialManager owns username/password registration, resets and
// password authentication.
type CredentialManager interface {
	Register(ctx context.Context, acct *models.Account, username, password, confirm string, email *string) error
	ResetPassword(ctx context.Context, acct *models.Account, password, confirm string) error
	Authenticate(ctx context.Context, username, password string) (*models.Account, error)
}

type credentialManager struct {
	identities IdentityStore
	policy     PasswordPolicy
}

func NewCredentialManager(identities IdentityStore, policy PasswordPolicy) CredentialManager {
	if policy == nil {
		policy = NewDefaultPasswordPolicy()
	}
	return &credentialManager{identities: identities, policy: policy}
}

func (m *credentialManager) Register(
	ctx context.Context,
	acct *models.Account,
	username, password, confirm string,
	email *string,
) error {
	if acct.AuthStatus.Rank() < models.AuthStatusCode.Rank() {
		return utils.ErrPhoneNotVerified
	}

	username = strings.TrimSpace(username)
	existing, err := m.identities.FindByUsername(ctx, username)
	switch {
	case err == nil && existing.ID != acct.ID:
		return utils.ErrUsernameTaken
	case err != nil && !errors.Is(err, utils.ErrAccountNotFound):
		return err
	}

	if password != confirm {
		return utils.ErrPasswordMismatch
	}

	attrs := PasswordAttributes{Username: username, Phone: acct.Phone}
	if email != nil {
		attrs.Email = *email
	}
	if err := m.policy.Validate(password, attrs); err != nil {
		return err
	}

	if email != nil {
		*email = strings.ToLower(strings.TrimSpace(*email))
		holder, err := m.identities.FindByEmail(ctx, *email)
		switch {
		case err == nil && holder.ID != acct.ID:
			return utils.ErrEmailExists
		case err != nil && !errors.Is(err, utils.ErrAccountNotFound):
			return err
		}
	}

	if err := m.identities.SetCredentials(ctx, acct, username, password, email); err != nil {
		return err
	}
	utils.Logger.WithField("account_id", acct.ID).Info("Account registered credentials")
	return nil
}

func (m *credentialManager) ResetPassword(ctx context.Context, acct *models.Account, password, confirm string) error {
	if password != confirm {
		return utils.ErrPasswordMismatch
	}
	attrs := PasswordAttributes{
		Username: acct.UsernameOrEmpty(),
		Phone:    acct.Phone,
		Email:    acct.EmailOrEmpty(),
	}
	if err := m.policy.Validate(password, attrs); err != nil {
		return err
	}
	if err := m.identities.SetPassword(ctx, acct, password); err != nil {
		return err
	}
	utils.Logger.WithField("account_id", acct.ID).Info("Account password reset")
	return nil
}

func (m *credentialManager) Authenticate(ctx context.Context, username, password string) (*models.Account, error) {
	acct, err := m.identities.FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, utils.ErrAccountNotFound) {
		utils.CheckPasswordHash(password, dummyPasswordHash())
		return nil, utils.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPasswordHash(password, acct.PasswordHash) {
		return nil, utils.ErrInvalidCredentials
	}
	return acct, nil
}
