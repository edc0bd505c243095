package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskmanager/backend/internal/breaker"
	"taskmanager/backend/internal/models"

	"github.com/sirupsen/logrus"
)

// ErrAllChannelsFailed reports that every configured delivery channel was
// tried and none accepted the message.
var ErrAllChannelsFailed = errors.New("all delivery channels failed")

type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Channel is one way of delivering a rendered notification.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Dispatcher renders a task reminder and tries each channel in order until
// one succeeds. It is side-effect-free with respect to the task store.
type Dispatcher struct {
	channels    []Channel
	breakers    []*breaker.CircuitBreaker
	senderEmail string
	frontendURL string
	sendTimeout time.Duration
	logger      *logrus.Logger
}

func NewDispatcher(senderEmail, frontendURL string, sendTimeout time.Duration, logger *logrus.Logger, channels ...Channel) *Dispatcher {
	breakers := make([]*breaker.CircuitBreaker, len(channels))
	for i := range channels {
		breakers[i] = breaker.New(nil)
	}

	return &Dispatcher{
		channels:    channels,
		breakers:    breakers,
		senderEmail: senderEmail,
		frontendURL: frontendURL,
		sendTimeout: sendTimeout,
		logger:      logger,
	}
}

// Send delivers a reminder for task to recipient. The error is never
// swallowed: a total failure must reach the scheduler so the reminded flag
// stays untouched and the task remains eligible for the next window.
func (d *Dispatcher) Send(ctx context.Context, recipient string, task models.Task) error {
	if len(d.channels) == 0 {
		return fmt.Errorf("%w: no channels configured", ErrAllChannelsFailed)
	}

	msg := Message{
		From:    d.senderEmail,
		To:      recipient,
		Subject: fmt.Sprintf("Task Reminder: %s", task.Title),
		HTML:    renderReminder(task, d.frontendURL),
	}

	var lastErr error
	for i, channel := range d.channels {
		err := d.breakers[i].Execute(func() error {
			attemptCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
			defer cancel()
			return channel.Send(attemptCtx, msg)
		})
		if err == nil {
			d.logger.WithFields(logrus.Fields{
				"task_id":   task.ID,
				"recipient": recipient,
				"channel":   channel.Name(),
			}).Info("reminder email sent")
			return nil
		}

		lastErr = err
		d.logger.WithFields(logrus.Fields{
			"task_id": task.ID,
			"channel": channel.Name(),
		}).WithError(err).Warn("delivery channel failed, trying next")
	}

	return fmt.Errorf("%w: %v", ErrAllChannelsFailed, lastErr)
}
