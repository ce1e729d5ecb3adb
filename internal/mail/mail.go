// Package mail moves verification codes from the API to the user's inbox:
// the server publishes to a durable queue and the mailer process consumes it
// and delivers over SMTP.
package mail

import (
	"context"
	"log/slog"
	"time"
)

// VerificationMessage is the queue payload.
type VerificationMessage struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

// Dispatcher hands a verification code to the delivery pipeline.
// Fire-and-forget: a nil error means accepted, not delivered.
type Dispatcher interface {
	Send(ctx context.Context, email, code string) error
}

// Sender performs the final delivery of one message.
type Sender interface {
	Deliver(ctx context.Context, msg VerificationMessage) error
}

// LogDispatcher only logs; used when no broker is configured. The code is
// logged at debug level so local setups can still verify accounts.
type LogDispatcher struct {
	Log *slog.Logger
}

func (d LogDispatcher) Send(ctx context.Context, email, code string) error {
	d.Log.Warn("verification code not dispatched, no broker configured", "email", email)
	d.Log.DebugContext(ctx, "undelivered verification code", "email", email, "code", code)
	return nil
}
