package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/poofware/todo-service/shared/go-models"
	"github.com/poofware/todo-service/shared/go-utils"
)

// SignUpResult is returned by SignUp. CodeSent is false when an earlier
// code was still outstanding and no new one was issued.
type SignUpResult struct {
	Account  *models.Account
	Tokens   *TokenPair
	CodeSent bool
}

// VerifyResult is the outcome of VerifyCode. A wrong or expired code yields
// Confirmed=false with no tokens.
type VerifyResult struct {
	Confirmed bool
	Status    models.AuthStatus
	Tokens    *TokenPair
}

type ForgotPasswordResult struct {
	Tokens   *TokenPair
	CodeSent bool
}

// AuthService drives an account through NEW -> CODE -> REGISTERED and the
// session operations around it.
type AuthService interface {
	SignUp(ctx context.Context, rawPhone, clientIP string) (*SignUpResult, error)
	VerifyCode(ctx context.Context, accountID uuid.UUID, code string) (*VerifyResult, error)
	ResendCode(ctx context.Context, accountID uuid.UUID, clientIP string) error
	Register(ctx context.Context, accountID uuid.UUID, username, password, confirm string, email *string) error
	Login(ctx context.Context, username, password string) (*TokenPair, error)
	RefreshLogin(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, accountID uuid.UUID, refreshToken string) error
	ForgotPassword(ctx context.Context, rawPhone, clientIP string) (*ForgotPasswordResult, error)
	ResetPassword(ctx context.Context, accountID uuid.UUID, password, confirm string) error
}

type authService struct {
	identities  IdentityStore
	ledger      VerificationLedger
	credentials CredentialManager
	tokens      TokenService
	phones      PhoneValidator
	rateLimiter RateLimiterService
	notifier    NotificationService
}

func NewAuthService(
	identities IdentityStore,
	ledger VerificationLedger,
	credentials CredentialManager,
	tokens TokenService,
	phones PhoneValidator,
	rateLimiter RateLimiterService,
	notifier NotificationService,
) AuthService {
	return &authService{
		identities:  identities,
		ledger:      ledger,
		credentials: credentials,
		tokens:      tokens,
		phones:      phones,
		rateLimiter: rateLimiter,
		notifier:    notifier,
	}
}

// ---------------------------------------------------------------------
// Sign-up and verification
// ---------------------------------------------------------------------

func (s *authService) SignUp(ctx context.Context, rawPhone, clientIP string) (*SignUpResult, error) {
	phone, err := s.phones.Normalize(ctx, rawPhone)
	if err != nil {
		return nil, err
	}

	confirmed, err := s.ledger.HasConfirmed(ctx, phone)
	if err != nil {
		return nil, err
	}
	if confirmed {
		return nil, utils.ErrPhoneExists
	}
	existing, err := s.identities.FindByPhone(ctx, phone)
	switch {
	case err == nil && existing.AuthStatus != models.AuthStatusNew:
		return nil, utils.ErrPhoneExists
	case err != nil && !errors.Is(err, utils.ErrAccountNotFound):
		return nil, err
	}

	acct, created, err := s.identities.FetchOrCreate(ctx, phone)
	if err != nil {
		return nil, err
	}
	if created {
		utils.Logger.WithField("account_id", acct.ID).Info("Created account on sign-up")
	}

	sent, err := s.issueCodeUnlessOutstanding(ctx, acct, phone, clientIP)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.IssuePair(ctx, acct, false)
	if err != nil {
		return nil, err
	}
	return &SignUpResult{Account: acct, Tokens: pair, CodeSent: sent}, nil
}

func (s *authService) VerifyCode(ctx context.Context, accountID uuid.UUID, code string) (*VerifyResult, error) {
	acct, err := s.caller(ctx, accountID)
	if err != nil {
		return nil, err
	}

	ok, err := s.ledger.Confirm(ctx, acct.ID, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &VerifyResult{Confirmed: false, Status: acct.AuthStatus}, nil
	}

	if err := s.identities.UpdateStatus(ctx, acct, models.AuthStatusCode); err != nil {
		return nil, err
	}
	pair, err := s.tokens.IssuePair(ctx, acct, true)
	if err != nil {
		return nil, err
	}
	utils.Logger.WithField("account_id", acct.ID).Info("Phone verified")
	return &VerifyResult{Confirmed: true, Status: acct.AuthStatus, Tokens: pair}, nil
}

func (s *authService) ResendCode(ctx context.Context, accountID uuid.UUID, clientIP string) error {
	acct, err := s.caller(ctx, accountID)
	if err != nil {
		return err
	}
	outstanding, err := s.ledger.HasOutstanding(ctx, acct.ID)
	if err != nil {
		return err
	}
	if outstanding {
		return utils.ErrOutstandingCode
	}
	return s.issueCode(ctx, acct, acct.Phone, clientIP)
}

func (s *authService) Register(
	ctx context.Context,
	accountID uuid.UUID,
	username, password, confirm string,
	email *string,
) error {
	acct, err := s.caller(ctx, accountID)
	if err != nil {
		return err
	}
	return s.credentials.Register(ctx, acct, username, password, confirm, email)
}

// ---------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------

func (s *authService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	if err := s.rateLimiter.CheckLoginRateLimit(ctx, username); err != nil {
		return nil, err
	}

	acct, err := s.credentials.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if err := s.rateLimiter.ResetLoginRateLimit(ctx, username); err != nil {
		utils.Logger.WithError(err).Warn("Failed to reset login rate limit")
	}

	verified := acct.AuthStatus.Rank() >= models.AuthStatusCode.Rank()
	pair, err := s.tokens.IssuePair(ctx, acct, verified)
	if err != nil {
		return nil, err
	}
	if err := s.identities.TouchLastLogin(ctx, acct.ID); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *authService) RefreshLogin(ctx context.Context, refreshToken string) (string, error) {
	return s.tokens.Refresh(ctx, refreshToken)
}

func (s *authService) Logout(ctx context.Context, accountID uuid.UUID, refreshToken string) error {
	if err := s.tokens.Revoke(ctx, refreshToken, accountID); err != nil {
		return err
	}
	utils.Logger.WithField("account_id", accountID).Info("Logged out")
	return nil
}

// ---------------------------------------------------------------------
// Password recovery
// ---------------------------------------------------------------------

func (s *authService) ForgotPassword(ctx context.Context, rawPhone, clientIP string) (*ForgotPasswordResult, error) {
	phone, err := s.phones.Normalize(ctx, rawPhone)
	if err != nil {
		return nil, err
	}
	acct, err := s.identities.FindByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}

	sent, err := s.issueCodeUnlessOutstanding(ctx, acct, phone, clientIP)
	if err != nil {
		return nil, err
	}
	pair, err := s.tokens.IssuePair(ctx, acct, false)
	if err != nil {
		return nil, err
	}
	return &ForgotPasswordResult{Tokens: pair, CodeSent: sent}, nil
}

func (s *authService) ResetPassword(ctx context.Context, accountID uuid.UUID, password, confirm string) error {
	acct, err := s.caller(ctx, accountID)
	if err != nil {
		return err
	}
	return s.credentials.ResetPassword(ctx, acct, password, confirm)
}

// ---------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------

// caller loads the authenticated account. A token whose account is gone is
// treated as unauthorized.
func (s *authService) caller(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	acct, err := s.identities.FindByID(ctx, accountID)
	if errors.Is(err, utils.ErrAccountNotFound) {
		return nil, utils.ErrUnauthorized
	}
	return acct, err
}

func (s *authService) issueCodeUnlessOutstanding(
	ctx context.Context,
	acct *models.Account,
	phone, clientIP string,
) (bool, error) {
	outstanding, err := s.ledger.HasOutstanding(ctx, acct.ID)
	if err != nil {
		return false, err
	}
	if outstanding {
		return false, nil
	}
	if err := s.issueCode(ctx, acct, phone, clientIP); err != nil {
		return false, err
	}
	return true, nil
}

// issueCode persists a new code before handing it to the notifier.
func (s *authService) issueCode(ctx context.Context, acct *models.Account, phone, clientIP string) error {
	if err := s.rateLimiter.CheckSMSRateLimits(ctx, clientIP, phone); err != nil {
		return err
	}
	rec, err := s.ledger.Issue(ctx, acct, phone)
	if err != nil {
		return err
	}
	s.notifier.SendVerificationCode(acct, phone, rec.Code)
	return nil
}
