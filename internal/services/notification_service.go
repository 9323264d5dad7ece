package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poofware/todo-service/internal/config"
	"github.com/poofware/todo-service/shared/go-models"
	"github.com/poofware/todo-service/shared/go-utils"
)

// DefaultNotificationTimeout bounds a single out-of-band delivery.
const DefaultNotificationTimeout = 15 * time.Second

// VerificationMessage is handed to senders and travels on the queue.
type VerificationMessage struct {
	AccountID uuid.UUID `json:"account_id"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	Code      string    `json:"code"`
	IssuedAt  time.Time `json:"issued_at"`
}

// NotificationSender delivers one verification message.
type NotificationSender interface {
	Send(ctx context.Context, msg VerificationMessage) error
}

// NotificationService dispatches verification codes without blocking the
// request. Delivery failures are logged and never returned.
type NotificationService interface {
	SendVerificationCode(acct *models.Account, phone, code string)
	// Wait blocks until every in-flight delivery has finished.
	Wait()
}

type notificationService struct {
	sender  NotificationSender
	cfg     *config.Config
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewNotificationService(sender NotificationSender, cfg *config.Config) NotificationService {
	return &notificationService{sender: sender, cfg: cfg, timeout: DefaultNotificationTimeout}
}

func (s *notificationService) SendVerificationCode(acct *models.Account, phone, code string) {
	if IsFakePhone(s.cfg, phone) {
		utils.Logger.WithField("phone", phone).Debug("Skipping delivery to test phone number")
		return
	}

	msg := VerificationMessage{
		AccountID: acct.ID,
		Phone:     phone,
		Email:     acct.EmailOrEmpty(),
		Code:      code,
		IssuedAt:  time.Now().UTC(),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.sender.Send(ctx, msg); err != nil {
			utils.Logger.WithError(err).WithField("account_id", msg.AccountID).
				Error("Failed to deliver verification code")
			return
		}
		utils.Logger.WithField("account_id", msg.AccountID).Info("Verification code dispatched")
	}()
}

func (s *notificationService) Wait() {
	s.wg.Wait()
}

func smsText(cfg *config.Config, code string) string {
	return fmt.Sprintf(verificationSMSBody, cfg.OrganizationName, code)
}
