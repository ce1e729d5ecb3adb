package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrPermanent marks messages that can never be delivered; they are dropped
// instead of requeued.
var ErrPermanent = errors.New("permanent delivery failure")

// Consumer drains the verification queue into a Sender.
type Consumer struct {
	URL    string
	Queue  string
	Sender Sender
	Log    *slog.Logger
	// MaxAge drops messages whose code has certainly expired.
	MaxAge time.Duration
	Now    func() time.Time
}

// Run connects, consumes and reconnects with backoff until ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn("mail consumer: dial failed", "err", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warn("mail consumer: consume loop ended, reconnecting", "err", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		c.Log.Warn("mail consumer: set QoS failed", "err", err)
	}
	if _, err := declare(ch, c.Queue); err != nil {
		return err
	}
	msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
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
			c.settle(ctx, d)
		}
	}
}

func (c *Consumer) settle(ctx context.Context, d amqp.Delivery) {
	err := c.HandleMessage(ctx, d.Body)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, ErrPermanent):
		c.Log.Warn("mail consumer: dropping message", "err", err)
		_ = d.Nack(false, false)
	default:
		// requeue once; a redelivered failure is dropped to avoid tight loops
		c.Log.Error("mail consumer: delivery failed", "err", err, "redelivered", d.Redelivered)
		_ = d.Nack(false, !d.Redelivered)
	}
}

// HandleMessage decodes one payload and delivers it.
func (c *Consumer) HandleMessage(ctx context.Context, body []byte) error {
	var msg VerificationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: unmarshal: %v", ErrPermanent, err)
	}
	if msg.Email == "" || msg.Code == "" {
		return fmt.Errorf("%w: missing email or code", ErrPermanent)
	}
	if c.MaxAge > 0 && !msg.CreatedAt.IsZero() {
		now := time.Now
		if c.Now != nil {
			now = c.Now
		}
		if now().Sub(msg.CreatedAt) > c.MaxAge {
			return fmt.Errorf("%w: code older than %s", ErrPermanent, c.MaxAge)
		}
	}
	if err := c.Sender.Deliver(ctx, msg); err != nil {
		return fmt.Errorf("deliver to %s: %w", msg.Email, err)
	}
	c.Log.Info("verification code delivered", "email", msg.Email)
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
