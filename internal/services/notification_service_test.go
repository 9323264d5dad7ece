package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/poofware/todo-service/shared/go-models"
	"github.com/poofware/todo-service/shared/go-utils"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gopkg.in/gomail.v2"
)

func TestNotificationService_DispatchesAsync(t *testing.T) {
	sender := &recordingSender{}
	svc := NewNotificationService(sender, testConfig())
	acct := &models.Account{ID: uuid.New(), Phone: testPhone, Email: utils.Ptr("a@example.com")}

	svc.SendVerificationCode(acct, testPhone, "12345")
	svc.Wait()

	msgs := sender.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, acct.ID, msgs[0].AccountID)
	assert.Equal(t, testPhone, msgs[0].Phone)
	assert.Equal(t, "a@example.com", msgs[0].Email)
	assert.Equal(t, "12345", msgs[0].Code)
}

func TestNotificationService_FailureIsSwallowed(t *testing.T) {
	sender := &recordingSender{err: errors.New("twilio down")}
	svc := NewNotificationService(sender, testConfig())

	assert.NotPanics(t, func() {
		svc.SendVerificationCode(&models.Account{ID: uuid.New()}, testPhone, "12345")
		svc.Wait()
	})
	assert.Len(t, sender.Messages(), 1)
}

type fakeSMSClient struct {
	params []*twilioApi.CreateMessageParams
	err    error
}

func (c *fakeSMSClient) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	c.params = append(c.params, params)
	return &twilioApi.ApiV2010Message{}, c.err
}

func TestSMSSender(t *testing.T) {
	cfg := testConfig()
	cfg.TwilioFromPhone = "+15005550006"
	client := &fakeSMSClient{}
	sender := NewSMSSender(client, cfg)

	require.NoError(t, sender.Send(context.Background(), VerificationMessage{Phone: testPhone, Code: "54321"}))
	require.Len(t, client.params, 1)
	assert.Equal(t, testPhone, *client.params[0].To)
	assert.Equal(t, cfg.TwilioFromPhone, *client.params[0].From)
	assert.Contains(t, *client.params[0].Body, "54321")

	client.err = errors.New("boom")
	err := sender.Send(context.Background(), VerificationMessage{Phone: testPhone, Code: "54321"})
	assert.ErrorIs(t, err, utils.ErrExternalServiceFailure)
}

type fakeMailer struct {
	to, subject, text, html string
	calls                   int
}

func (m *fakeMailer) Send(_ context.Context, to, subject, text, html string) error {
	m.calls++
	m.to, m.subject, m.text, m.html = to, subject, text, html
	return nil
}

func TestEmailSender(t *testing.T) {
	mailer := &fakeMailer{}
	sender := NewEmailSender(mailer, testConfig())

	require.NoError(t, sender.Send(context.Background(), VerificationMessage{Phone: testPhone, Code: "11111"}))
	assert.Zero(t, mailer.calls, "accounts without e-mail are skipped")

	msg := VerificationMessage{Phone: testPhone, Email: "bob@example.com", Code: "22222"}
	require.NoError(t, sender.Send(context.Background(), msg))
	assert.Equal(t, 1, mailer.calls)
	assert.Equal(t, "bob@example.com", mailer.to)
	assert.Contains(t, mailer.subject, "verification code")
	assert.Contains(t, mailer.html, "22222")
	assert.Contains(t, mailer.text, "22222")
}

type fakeDialer struct {
	sent []*gomail.Message
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return nil
}

func TestSMTPMailer(t *testing.T) {
	dialer := &fakeDialer{}
	mailer := NewSMTPMailerWithDialer(dialer, "noreply@example.com")

	require.NoError(t, mailer.Send(context.Background(), "bob@example.com", "Subject", "text", "<p>html</p>"))
	require.Len(t, dialer.sent, 1)
	assert.Equal(t, []string{"noreply@example.com"}, dialer.sent[0].GetHeader("From"))
	assert.Equal(t, []string{"bob@example.com"}, dialer.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"Subject"}, dialer.sent[0].GetHeader("Subject"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, mailer.Send(ctx, "bob@example.com", "Subject", "text", "html"))
}

type fakeAcknowledger struct {
	acked, nacked, requeued bool
}

func (a *fakeAcknowledger) Ack(uint64, bool) error {
	a.acked = true
	return nil
}

func (a *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}

func (a *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}

func TestNotificationConsumer_HandleDelivery(t *testing.T) {
	body, err := json.Marshal(VerificationMessage{AccountID: uuid.New(), Phone: testPhone, Code: "33333"})
	require.NoError(t, err)

	t.Run("ack on success", func(t *testing.T) {
		sender := &recordingSender{}
		ack := &fakeAcknowledger{}
		NewNotificationConsumer("amqp://unused", sender).
			HandleDelivery(context.Background(), amqp.Delivery{Acknowledger: ack, Body: body})
		assert.True(t, ack.acked)
		require.Len(t, sender.Messages(), 1)
		assert.Equal(t, "33333", sender.Messages()[0].Code)
	})

	t.Run("drop malformed payload", func(t *testing.T) {
		sender := &recordingSender{}
		for _, bad := range [][]byte{[]byte("{not json"), []byte(`{"phone":""}`)} {
			ack := &fakeAcknowledger{}
			NewNotificationConsumer("amqp://unused", sender).
				HandleDelivery(context.Background(), amqp.Delivery{Acknowledger: ack, Body: bad})
			assert.True(t, ack.nacked)
			assert.False(t, ack.requeued)
		}
		assert.Empty(t, sender.Messages())
	})

	t.Run("requeue once on delivery failure", func(t *testing.T) {
		sender := &recordingSender{err: errors.New("smtp down")}
		consumer := NewNotificationConsumer("amqp://unused", sender)

		ack := &fakeAcknowledger{}
		consumer.HandleDelivery(context.Background(), amqp.Delivery{Acknowledger: ack, Body: body})
		assert.True(t, ack.nacked)
		assert.True(t, ack.requeued)

		ack = &fakeAcknowledger{}
		consumer.HandleDelivery(context.Background(), amqp.Delivery{Acknowledger: ack, Body: body, Redelivered: true})
		assert.True(t, ack.nacked)
		assert.False(t, ack.requeued)
	})
}

func TestNewNotificationSender(t *testing.T) {
	cfg := testConfig()
	sender, err := NewNotificationSender(cfg)
	require.NoError(t, err)
	assert.IsType(t, logSender{}, sender)

	cfg.NotifyChannel = "smtp"
	sender, err = NewNotificationSender(cfg)
	require.NoError(t, err)
	assert.IsType(t, &emailSender{}, sender)

	cfg.NotifyChannel = "queue"
	sender, err = NewNotificationSender(cfg)
	require.NoError(t, err)
	assert.IsType(t, &QueuePublisher{}, sender)

	cfg.NotifyChannel = "carrier-pigeon"
	_, err = NewNotificationSender(cfg)
	assert.Error(t, err)
}
