package config

import (
	"context"
	"fmt"
	"os"

	"github.com/appleboy/go-fcm"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type FCMConfig struct {
	ServerKey string
}

// NewFCMConfig reads the FCM server key. A missing key is not fatal: the
// push channel then runs as a logged no-op.
func NewFCMConfig(log *zap.Logger) *FCMConfig {
	cfg := &FCMConfig{ServerKey: os.Getenv("FCM_SERVER_KEY")}
	if cfg.ServerKey == "" {
		log.Warn("FCM_SERVER_KEY not set, push channel will be a no-op")
	}
	return cfg
}

type PushService struct {
	client *fcm.Client
	log    *zap.Logger
}

func NewPushService(lc fx.Lifecycle, config *FCMConfig, log *zap.Logger) *PushService {
	service := &PushService{log: log}
	if config.ServerKey != "" {
		client, err := fcm.NewClient(config.ServerKey)
		if err != nil {
			log.Warn("failed to initialize FCM client, push channel will be a no-op", zap.Error(err))
		} else {
			service.client = client
		}
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Push service initialized", zap.Bool("configured", service.client != nil))
			return nil
		},
	})
	return service
}

// SendPush delivers a single push notification to a device token. When the
// channel is not configured the message is logged and dropped, which counts
// as success.
func (p *PushService) SendPush(ctx context.Context, token, title, body string) error {
	if p.client == nil {
		p.log.Info("push channel not configured, skipping send", zap.String("title", title))
		return nil
	}

	msg := &fcm.Message{
		To: token,
		Notification: &fcm.Notification{
			Title: title,
			Body:  body,
		},
	}

	resp, err := p.client.Send(msg)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	if resp.Failure > 0 {
		return fmt.Errorf("send push: %d delivery failure(s)", resp.Failure)
	}

	p.log.Debug("push notification sent")
	return nil
}
