package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oggyb/recipebox/internal/config"
	"github.com/oggyb/recipebox/internal/logger"
	"github.com/oggyb/recipebox/internal/mail"
)

func main() {
	cfg := config.New()
	cfg.Log.Component = "mailer"
	logger.InitFromConfig(cfg)
	log := logger.L()

	if cfg.AMQP.URL == "" || cfg.SMTP.Host == "" {
		log.Error("mailer needs AMQP_URL and SMTP_HOST")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := &mail.Consumer{
		URL:    cfg.AMQP.URL,
		Queue:  cfg.AMQP.VerificationQueue,
		Sender: mail.NewSMTPSender(cfg.SMTP),
		Log:    log,
		MaxAge: cfg.Identity.CodeTTL,
		Now:    time.Now,
	}

	log.Info("mailer started", "queue", cfg.AMQP.VerificationQueue)
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("mailer stopped", "err", err)
		os.Exit(1)
	}
	log.Info("mailer stopped")
}
