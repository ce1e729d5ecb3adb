package mail

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/oggyb/recipebox/internal/config"
)

// SMTPSender delivers verification emails through an SMTP relay.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.Sender,
	}
}

func (s *SMTPSender) Deliver(_ context.Context, msg VerificationMessage) error {
	return s.dialer.DialAndSend(BuildVerificationEmail(s.from, msg))
}

// BuildVerificationEmail renders the message sent for a verification code.
func BuildVerificationEmail(from string, msg VerificationMessage) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.Email)
	m.SetHeader("Subject", "Your RecipeBox verification code")
	m.SetBody("text/plain", fmt.Sprintf(
		"Welcome to RecipeBox!\n\nYour verification code is %s. It expires in a few minutes.\n", msg.Code))
	m.AddAlternative("text/html", fmt.Sprintf(
		"<p>Welcome to RecipeBox!</p><p>Your verification code is <strong>%s</strong>. It expires in a few minutes.</p>", msg.Code))
	return m
}
