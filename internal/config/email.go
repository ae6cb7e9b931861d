package config

import (
	"context"
	"fmt"
	"os"

	"github.com/resend/resend-go/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ResendConfig struct {
	APIKey string
	From   string
}

// NewResendConfig reads the Resend credentials. Missing credentials are not
// fatal: the email channel then runs as a logged no-op.
func NewResendConfig(log *zap.Logger) *ResendConfig {
	cfg := &ResendConfig{
		APIKey: os.Getenv("RESEND_API_KEY"),
		From:   os.Getenv("FROM_EMAIL"),
	}
	if cfg.APIKey == "" {
		log.Warn("RESEND_API_KEY not set, email channel will be a no-op")
	}
	return cfg
}

type EmailService struct {
	client *resend.Client
	from   string
	log    *zap.Logger
}

func NewEmailService(lc fx.Lifecycle, config *ResendConfig, log *zap.Logger) *EmailService {
	service := &EmailService{from: config.From, log: log}
	if config.APIKey != "" {
		service.client = resend.NewClient(config.APIKey)
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Email service initialized", zap.Bool("configured", service.client != nil))
			return nil
		},
	})
	return service
}

// SendEmail delivers a single email through Resend. When the channel is not
// configured the message is logged and dropped, which counts as success.
func (e *EmailService) SendEmail(ctx context.Context, to, subject, body string) error {
	if e.client == nil {
		e.log.Info("email channel not configured, skipping send",
			zap.String("to", to),
			zap.String("subject", subject))
		return nil
	}

	params := &resend.SendEmailRequest{
		From:    e.from,
		To:      []string{to},
		Subject: subject,
		Html:    fmt.Sprintf("<p>%s</p>", body),
		Text:    body,
	}

	if _, err := e.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}

	e.log.Debug("email sent", zap.String("to", to))
	return nil
}
