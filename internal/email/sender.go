// Package email delivers campaign and account mail. SMTPSender talks to any SMTP relay
// through go-mail; NoopSender is used when SMTP is not configured.
package email

import (
	"context"
	"errors"
)

// ErrNoRecipient is returned when a message has no address to deliver to.
var ErrNoRecipient = errors.New("email: recipient address is empty")

// CampaignMessage is one rendered campaign email for one lead.
type CampaignMessage struct {
	To          string
	LeadName    string
	Subject     string
	Title       string
	Description string
}

type Sender interface {
	SendCampaignEmail(ctx context.Context, msg CampaignMessage) error
}

// AccountSender delivers mail about a user's own account.
type AccountSender interface {
	SendPasswordResetEmail(ctx context.Context, toEmail, name, resetURL string) error
}

// Mailer is a sender for every kind of mail the service sends.
type Mailer interface {
	Sender
	AccountSender
}

// NoopSender accepts every message and delivers nothing.
type NoopSender struct{}

func (NoopSender) SendCampaignEmail(_ context.Context, msg CampaignMessage) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	return nil
}

func (NoopSender) SendPasswordResetEmail(_ context.Context, toEmail, _, _ string) error {
	if toEmail == "" {
		return ErrNoRecipient
	}
	return nil
}

var (
	_ Sender        = NoopSender{}
	_ Sender        = (*SMTPSender)(nil)
	_ AccountSender = NoopSender{}
	_ AccountSender = (*SMTPSender)(nil)
	_ Mailer        = (*SMTPSender)(nil)
)
