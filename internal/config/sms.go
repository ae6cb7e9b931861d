package config

import (
	"context"
	"fmt"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// NewTwilioConfig reads the Twilio credentials. Missing credentials are not
// fatal: the SMS channel then runs as a logged no-op.
func NewTwilioConfig(log *zap.Logger) *TwilioConfig {
	cfg := &TwilioConfig{
		AccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		FromNumber: os.Getenv("TWILIO_PHONE_NUMBER"),
	}
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		log.Warn("Twilio credentials not set, SMS channel will be a no-op")
	}
	return cfg
}

type SMSService struct {
	client *twilio.RestClient
	from   string
	log    *zap.Logger
}

func NewSMSService(lc fx.Lifecycle, config *TwilioConfig, log *zap.Logger) *SMSService {
	service := &SMSService{from: config.FromNumber, log: log}
	if config.AccountSID != "" && config.AuthToken != "" {
		service.client = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: config.AccountSID,
			Password: config.AuthToken,
		})
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("SMS service initialized", zap.Bool("configured", service.client != nil))
			return nil
		},
	})
	return service
}

// SendSMS delivers a single text message through Twilio. When the channel is
// not configured the message is logged and dropped, which counts as success.
func (s *SMSService) SendSMS(ctx context.Context, to, body string) error {
	if s.client == nil {
		s.log.Info("SMS channel not configured, skipping send", zap.String("to", to))
		return nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("send SMS to %s: %w", to, err)
	}

	s.log.Debug("SMS sent", zap.String("to", to))
	return nil
}
