package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// QueueDispatcher publishes verification messages to a durable RabbitMQ
// queue. Each Send opens its own connection; signups are rare enough that a
// long-lived channel is not worth the reconnect handling.
type QueueDispatcher struct {
	URL   string
	Queue string
	Now   func() time.Time
}

func NewQueueDispatcher(url, queue string) *QueueDispatcher {
	return &QueueDispatcher{URL: url, Queue: queue, Now: time.Now}
}

func (d *QueueDispatcher) Send(ctx context.Context, email, code string) error {
	conn, err := amqp.Dial(d.URL)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := declare(ch, d.Queue); err != nil {
		return err
	}

	pub, err := d.publishing(email, code)
	if err != nil {
		return err
	}
	if err := ch.PublishWithContext(ctx, "", d.Queue, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

func (d *QueueDispatcher) publishing(email, code string) (amqp.Publishing, error) {
	now := d.Now().UTC()
	body, err := json.Marshal(VerificationMessage{Email: email, Code: code, CreatedAt: now})
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal message: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    now,
		Body:         body,
	}, nil
}

func declare(ch *amqp.Channel, queue string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return q, fmt.Errorf("queue declare: %w", err)
	}
	return q, nil
}
