package services

import (
	"context"
	"fmt"
	"time"

	"github.com/poofware/todo-service/internal/config"
	"github.com/poofware/todo-service/shared/go-utils"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	twilio "github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gopkg.in/gomail.v2"
)

// NewNotificationSender builds the sender selected by NOTIFY_CHANNEL.
func NewNotificationSender(cfg *config.Config) (NotificationSender, error) {
	switch cfg.NotifyChannel {
	case config.NotifyChannelLog:
		return NewLogSender(), nil
	case config.NotifyChannelSMS:
		return NewSMSSender(newTwilioClient(cfg).Api, cfg), nil
	case config.NotifyChannelEmail:
		return NewEmailSender(NewSendGridMailer(cfg), cfg), nil
	case config.NotifyChannelSMTP:
		return NewEmailSender(NewSMTPMailer(cfg), cfg), nil
	case config.NotifyChannelQueue:
		return NewQueuePublisher(cfg.RabbitMQURL), nil
	default:
		return nil, fmt.Errorf("unknown notification channel %q", cfg.NotifyChannel)
	}
}

func newTwilioClient(cfg *config.Config) *twilio.RestClient {
	return twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})
}

// NewTwilioLookup returns the Lookups v2 API for the remote phone validator.
func NewTwilioLookup(cfg *config.Config) PhoneLookup {
	return newTwilioClient(cfg).LookupsV2
}

// ---------------------------------------------------------------------
// log
// ---------------------------------------------------------------------

type logSender struct{}

// NewLogSender only logs; the code itself is visible at debug level.
func NewLogSender() NotificationSender {
	return logSender{}
}

func (logSender) Send(_ context.Context, msg VerificationMessage) error {
	entry := utils.Logger.WithField("phone", msg.Phone)
	entry.Info("Verification code ready (log channel)")
	entry.Debugf("Verification code: %s", msg.Code)
	return nil
}

// ---------------------------------------------------------------------
// Twilio SMS
// ---------------------------------------------------------------------

// SMSClient is the Twilio Messages call.
type SMSClient interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type smsSender struct {
	client SMSClient
	cfg    *config.Config
}

func NewSMSSender(client SMSClient, cfg *config.Config) NotificationSender {
	return &smsSender{client: client, cfg: cfg}
}

func (s *smsSender) Send(ctx context.Context, msg VerificationMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(msg.Phone)
	params.SetFrom(s.cfg.TwilioFromPhone)
	params.SetBody(smsText(s.cfg, msg.Code))

	if _, err := s.client.CreateMessage(params); err != nil {
		return fmt.Errorf("%w: failed to send sms via twilio: %v", utils.ErrExternalServiceFailure, err)
	}
	return nil
}

// ---------------------------------------------------------------------
// E-mail
// ---------------------------------------------------------------------

// Mailer sends one e-mail with plain-text and HTML bodies.
type Mailer interface {
	Send(ctx context.Context, to, subject, plainText, html string) error
}

type emailSender struct {
	mailer Mailer
	cfg    *config.Config
}

// NewEmailSender mails the code to the account's address. Accounts without
// an e-mail are skipped.
func NewEmailSender(mailer Mailer, cfg *config.Config) NotificationSender {
	return &emailSender{mailer: mailer, cfg: cfg}
}

func (s *emailSender) Send(ctx context.Context, msg VerificationMessage) error {
	if msg.Email == "" {
		utils.Logger.WithField("account_id", msg.AccountID).Warn("No e-mail on account; verification e-mail skipped")
		return nil
	}
	subject := fmt.Sprintf(verificationEmailSubject, s.cfg.OrganizationName)
	html := fmt.Sprintf(
		verificationEmailHTML,
		subject,
		int(s.cfg.VerificationCodeExpiry/time.Minute),
		msg.Code,
		time.Now().Year(),
		s.cfg.OrganizationName,
	)
	return s.mailer.Send(ctx, msg.Email, subject, smsText(s.cfg, msg.Code), html)
}

type sendGridMailer struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewSendGridMailer(cfg *config.Config) Mailer {
	return &sendGridMailer{
		client:    sendgrid.NewSendClient(cfg.SendGridAPIKey),
		fromEmail: cfg.SendGridFromEmail,
		fromName:  cfg.OrganizationName,
	}
}

func (m *sendGridMailer) Send(ctx context.Context, to, subject, plainText, html string) error {
	from := mail.NewEmail(m.fromName, m.fromEmail)
	msg := mail.NewSingleEmail(from, subject, mail.NewEmail("", to), plainText, html)
	msg.TrackingSettings = &mail.TrackingSettings{
		ClickTracking: &mail.ClickTrackingSetting{
			Enable: utils.Ptr(false),
		},
	}

	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("%w: sendgrid: %v", utils.ErrExternalServiceFailure, err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: sendgrid status %d: %s", utils.ErrExternalServiceFailure, resp.StatusCode, resp.Body)
	}
	return nil
}

// SMTPDialer is the gomail call used by the SMTP mailer.
type SMTPDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpMailer struct {
	dialer SMTPDialer
	from   string
}

func NewSMTPMailer(cfg *config.Config) Mailer {
	return NewSMTPMailerWithDialer(
		gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		cfg.SMTPFrom,
	)
}

func NewSMTPMailerWithDialer(dialer SMTPDialer, from string) Mailer {
	return &smtpMailer{dialer: dialer, from: from}
}

func (m *smtpMailer) Send(ctx context.Context, to, subject, plainText, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", plainText)
	msg.AddAlternative("text/html", html)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("%w: smtp: %v", utils.ErrExternalServiceFailure, err)
	}
	return nil
}
