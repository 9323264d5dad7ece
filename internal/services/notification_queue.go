package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/poofware/todo-service/shared/go-utils"
	amqp "github.com/rabbitmq/amqp091-go"
)

// VerificationQueueName is the durable queue between the API and cmd/notifier.
const VerificationQueueName = "verification.codes"

var errBadPayload = errors.New("bad verification payload")

func declareVerificationQueue(ch *amqp.Channel) error {
	_, err := ch.QueueDeclare(
		VerificationQueueName, // name
		true,                  // durable
		false,                 // autoDelete
		false,                 // exclusive
		false,                 // noWait
		nil,                   // args
	)
	return err
}

// ---------------------------------------------------------------------
// Publisher
// ---------------------------------------------------------------------

// QueuePublisher puts verification messages on RabbitMQ. The connection is
// dialed lazily and re-dialed after it drops.
type QueuePublisher struct {
	url  string
	mu   sync.Mutex
	conn *amqp.Connection
}

func NewQueuePublisher(url string) *QueuePublisher {
	return &QueuePublisher{url: url}
}

func (p *QueuePublisher) Send(ctx context.Context, msg VerificationMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ch, err := p.channel()
	if err != nil {
		return fmt.Errorf("%w: rabbitmq: %v", utils.ErrExternalServiceFailure, err)
	}
	defer func() { _ = ch.Close() }()

	if err := declareVerificationQueue(ch); err != nil {
		return fmt.Errorf("%w: queue declare: %v", utils.ErrExternalServiceFailure, err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", VerificationQueueName, false, false, pub); err != nil {
		return fmt.Errorf("%w: publish: %v", utils.ErrExternalServiceFailure, err)
	}
	return nil
}

func (p *QueuePublisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return nil, err
		}
		p.conn = conn
	}
	return p.conn.Channel()
}

func (p *QueuePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		return nil
	}
	return p.conn.Close()
}

// ---------------------------------------------------------------------
// Consumer
// ---------------------------------------------------------------------

// NotificationConsumer drains the verification queue and delivers each
// message through a real sender.
type NotificationConsumer struct {
	url      string
	deliver  NotificationSender
	timeout  time.Duration
	prefetch int
}

func NewNotificationConsumer(url string, deliver NotificationSender) *NotificationConsumer {
	return &NotificationConsumer{
		url:      url,
		deliver:  deliver,
		timeout:  DefaultNotificationTimeout,
		prefetch: 50,
	}
}

// Run consumes until ctx is cancelled, reconnecting with backoff whenever the
// broker connection is lost.
func (c *NotificationConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			utils.Logger.WithError(err).Warnf("notifier: failed to dial broker; retrying in %s", backoff)
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		utils.Logger.WithError(err).Warn("notifier: consume loop ended; reconnecting")
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *NotificationConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		utils.Logger.WithError(err).Warn("notifier: set QoS failed")
	}
	if err := declareVerificationQueue(ch); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(VerificationQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.HandleDelivery(ctx, d)
		}
	}
}

// HandleDelivery acks delivered messages. Undecodable payloads are dropped;
// a failed delivery is requeued once and dropped on its redelivery.
func (c *NotificationConsumer) HandleDelivery(ctx context.Context, d amqp.Delivery) {
	err := c.process(ctx, d.Body)
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			utils.Logger.WithError(ackErr).Warn("notifier: ack failed")
		}
	case errors.Is(err, errBadPayload):
		utils.Logger.WithError(err).Error("notifier: rejecting malformed message")
		_ = d.Nack(false, false)
	default:
		requeue := !d.Redelivered
		utils.Logger.WithError(err).WithField("requeue", requeue).Error("notifier: delivery failed")
		_ = d.Nack(false, requeue)
	}
}

func (c *NotificationConsumer) process(ctx context.Context, body []byte) error {
	var msg VerificationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	if msg.Phone == "" || msg.Code == "" {
		return fmt.Errorf("%w: phone and code are required", errBadPayload)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.deliver.Send(ctx, msg)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
