package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poofware/todo-service/internal/config"
	"github.com/poofware/todo-service/shared/go-models"
	"github.com/poofware/todo-service/shared/go-repositories"
	"github.com/poofware/todo-service/shared/go-utils"
)

// VerificationLedger issues and confirms one-time phone codes. Records are
// additive: issuing never overwrites an earlier code.
type VerificationLedger interface {
	Issue(ctx context.Context, acct *models.Account, phone string) (*models.SMSVerificationCode, error)
	HasOutstanding(ctx context.Context, accountID uuid.UUID) (bool, error)
	// Confirm reports whether submitted matched an unconfirmed, unexpired
	// code for the account. A miss is not an error.
	Confirm(ctx context.Context, accountID uuid.UUID, submitted string) (bool, error)
	HasConfirmed(ctx context.Context, phone string) (bool, error)
}

type verificationLedger struct {
	repo repositories.SMSVerificationRepository
	cfg  *config.Config
	now  func() time.Time
}

func NewVerificationLedger(repo repositories.SMSVerificationRepository, cfg *config.Config) VerificationLedger {
	return &verificationLedger{repo: repo, cfg: cfg, now: time.Now}
}

func (l *verificationLedger) Issue(ctx context.Context, acct *models.Account, phone string) (*models.SMSVerificationCode, error) {
	code, err := l.newCode(phone)
	if err != nil {
		return nil, err
	}

	rec := &models.SMSVerificationCode{
		ID:        uuid.New(),
		Phone:     phone,
		Code:      code,
		ExpiresAt: l.now().Add(l.cfg.VerificationCodeExpiry),
	}
	if acct != nil {
		rec.AccountID = utils.Ptr(acct.ID)
	}
	if err := l.repo.CreateCode(ctx, rec); err != nil {
		return nil, err
	}
	utils.Logger.WithField("phone", phone).Debugf("Issued verification code %s", rec.Code)
	return rec, nil
}

func (l *verificationLedger) HasOutstanding(ctx context.Context, accountID uuid.UUID) (bool, error) {
	return l.repo.HasOutstanding(ctx, accountID, l.now())
}

func (l *verificationLedger) Confirm(ctx context.Context, accountID uuid.UUID, submitted string) (bool, error) {
	if len(submitted) != l.cfg.VerificationCodeLength {
		return false, nil
	}
	return l.repo.Confirm(ctx, accountID, submitted, l.now())
}

func (l *verificationLedger) HasConfirmed(ctx context.Context, phone string) (bool, error) {
	return l.repo.HasConfirmedForPhone(ctx, phone)
}

func (l *verificationLedger) newCode(phone string) (string, error) {
	if IsFakePhone(l.cfg, phone) {
		return utils.FakeVerificationCode, nil
	}
	return generateVerificationCode(l.cfg.VerificationCodeLength)
}

// IsFakePhone reports whether phone is a test number under accept_fake_phones.
func IsFakePhone(cfg *config.Config, phone string) bool {
	return cfg.LDFlag_AcceptFakePhones && strings.HasPrefix(phone, utils.TestPhoneNumberBase)
}
