// Package sms delivers campaign text messages through Twilio.
package sms

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"leadflow_backend/platform/config"
	"leadflow_backend/platform/phone"
)

// ErrInvalidNumber is returned when the destination cannot be dialled.
var ErrInvalidNumber = errors.New("sms: invalid destination number")

type Sender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// messageCreator is the slice of the Twilio REST API the sender calls.
type messageCreator interface {
	CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error)
}

// TwilioSender sends messages from a number or a messaging service.
type TwilioSender struct {
	api              messageCreator
	from             string
	messagingService string
	region           string
}

// NewTwilioSender creates a sender from the Twilio settings.
func NewTwilioSender(cfg config.SMSConfig) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.GetTwilioAccountSID(),
		Password: cfg.GetTwilioAuthToken(),
	})
	return &TwilioSender{
		api:              client.Api,
		from:             cfg.GetTwilioFromNumber(),
		messagingService: cfg.GetTwilioMessagingServiceSID(),
		region:           cfg.GetDefaultPhoneRegion(),
	}
}

// SendSMS normalises the destination to E.164 and sends body to it.
func (s *TwilioSender) SendSMS(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	number, err := phone.ToE164(to, s.region)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidNumber, to)
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(number)
	params.SetBody(body)
	if s.messagingService != "" {
		params.SetMessagingServiceSid(s.messagingService)
	} else {
		params.SetFrom(s.from)
	}

	if _, err := s.api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio send: %w", err)
	}
	return nil
}

// NoopSender validates the number and delivers nothing.
type NoopSender struct {
	Region string
}

func (n NoopSender) SendSMS(_ context.Context, to, _ string) error {
	if _, err := phone.ToE164(to, n.Region); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidNumber, to)
	}
	return nil
}

var (
	_ Sender = (*TwilioSender)(nil)
	_ Sender = NoopSender{}
)
