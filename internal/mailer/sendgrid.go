package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridChannel is the fallback channel, hitting the SendGrid HTTP API
// directly when SMTP delivery fails.
type SendGridChannel struct {
	client *sendgrid.Client
}

func NewSendGridChannel(apiKey string) *SendGridChannel {
	return &SendGridChannel{client: sendgrid.NewSendClient(apiKey)}
}

func (c *SendGridChannel) Name() string { return "sendgrid" }

func (c *SendGridChannel) Send(ctx context.Context, msg Message) error {
	from := sgmail.NewEmail("", msg.From)
	to := sgmail.NewEmail("", msg.To)
	email := sgmail.NewSingleEmail(from, msg.Subject, to, "", msg.HTML)

	resp, err := c.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: unexpected status %d", resp.StatusCode)
	}
	return nil
}
