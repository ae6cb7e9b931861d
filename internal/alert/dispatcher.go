package alert

import (
	"context"
	"sync"

	"LifeLink/internal/config"

	"go.uber.org/zap"
)

type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
)

// Recipient carries whatever contact data a donor or hospital has. Every
// non-empty field selects a channel to attempt.
type Recipient struct {
	Name     string
	Phone    string
	Email    string
	FCMToken string
}

// Message is the payload delivered on every channel. EmailSubject, when
// set, replaces Title for the email channel only.
type Message struct {
	Title        string
	Body         string
	EmailSubject string
}

// Delivery is the outcome of one channel attempt for one recipient.
type Delivery struct {
	Recipient string
	Channel   Channel
	OK        bool
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type PushSender interface {
	SendPush(ctx context.Context, token, title, body string) error
}

// Dispatcher fans a message out to every recipient on every channel the
// recipient has data for. All attempts run concurrently; Dispatch returns
// only after every attempt has finished. Channel failures are logged and
// recorded as failed deliveries, never surfaced as errors: a caller's
// responsibility ends at "dispatch was attempted".
type Dispatcher struct {
	sms   SMSSender
	email EmailSender
	push  PushSender
	log   *zap.Logger
}

func NewDispatcher(sms *config.SMSService, email *config.EmailService, push *config.PushService, log *zap.Logger) *Dispatcher {
	return &Dispatcher{sms: sms, email: email, push: push, log: log}
}

func (d *Dispatcher) Dispatch(ctx context.Context, recipients []Recipient, msg Message) []Delivery {
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		deliveries []Delivery
	)

	record := func(recipient string, channel Channel, err error) {
		if err != nil {
			d.log.Warn("notification channel failed",
				zap.String("recipient", recipient),
				zap.String("channel", string(channel)),
				zap.Error(err))
		}
		mu.Lock()
		deliveries = append(deliveries, Delivery{Recipient: recipient, Channel: channel, OK: err == nil})
		mu.Unlock()
	}

	for _, rcpt := range recipients {
		rcpt := rcpt

		if rcpt.Phone != "" {
			wg.Add(1)
			go func() {
				defer wg.Done()
				record(rcpt.Name, ChannelSMS, d.sms.SendSMS(ctx, rcpt.Phone, msg.Body))
			}()
		}

		if rcpt.Email != "" {
			subject := msg.EmailSubject
			if subject == "" {
				subject = msg.Title
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				record(rcpt.Name, ChannelEmail, d.email.SendEmail(ctx, rcpt.Email, subject, msg.Body))
			}()
		}

		if rcpt.FCMToken != "" {
			wg.Add(1)
			go func() {
				defer wg.Done()
				record(rcpt.Name, ChannelPush, d.push.SendPush(ctx, rcpt.FCMToken, msg.Title, msg.Body))
			}()
		}
	}

	wg.Wait()
	return deliveries
}
