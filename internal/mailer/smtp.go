package mailer

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// SMTPChannel is the primary delivery channel. Credentials are captured once
// at construction and never logged.
type SMTPChannel struct {
	host     string
	port     int
	username string
	password string
}

func NewSMTPChannel(host string, port int, username, password string) *SMTPChannel {
	return &SMTPChannel{
		host:     host,
		port:     port,
		username: username,
		password: password,
	}
}

func (c *SMTPChannel) Name() string { return "smtp" }

func (c *SMTPChannel) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	d := gomail.NewDialer(c.host, c.port, c.username, c.password)

	// gomail has no context support; bound the wait ourselves so a hung
	// SMTP connection cannot stall a scheduler tick.
	errCh := make(chan error, 1)
	go func() {
		errCh <- d.DialAndSend(m)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send: %w", ctx.Err())
	}
}
