// Package notifications decides what to send and to whom. Actual
// delivery runs through the injected transport interfaces; every failure
// is logged here and swallowed so the operation that triggered the
// notification is never affected.
package notifications

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/eproba/eproba-api/internal/models"
)

// Notifier is what the services depend on. Tests substitute a recorder.
type Notifier interface {
	Notify(targets []models.User, title, body, link string)
}

// PushSender delivers one push message to a set of device tokens.
type PushSender interface {
	Send(ctx context.Context, tokens []string, title, body, link string) error
}

// EmailSender delivers one email to a recipient.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// DeviceLister resolves the registered push tokens for a set of users.
type DeviceLister interface {
	ListDeviceTokens(userIDs []uint64) ([]string, error)
}

type Dispatcher struct {
	logger  *slog.Logger
	push    PushSender
	email   EmailSender
	devices DeviceLister

	internalDomain string
	baseURL        string
	timeout        time.Duration

	wg sync.WaitGroup
}

func NewDispatcher(logger *slog.Logger, push PushSender, email EmailSender, devices DeviceLister, internalDomain, baseURL string) *Dispatcher {
	return &Dispatcher{
		logger:         logger,
		push:           push,
		email:          email,
		devices:        devices,
		internalDomain: internalDomain,
		baseURL:        baseURL,
		timeout:        30 * time.Second,
	}
}

// Notify dispatches push and email for the targets on a detached
// goroutine. It returns immediately; delivery outcome never reaches the
// caller.
func (d *Dispatcher) Notify(targets []models.User, title, body, link string) {
	if len(targets) == 0 {
		return
	}
	users := make([]models.User, len(targets))
	copy(users, targets)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		d.dispatch(ctx, users, title, body, link)
	}()
}

// Wait blocks until all in-flight dispatches finish. Used by tests and
// graceful shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(ctx context.Context, users []models.User, title, body, link string) {
	fullLink := link
	if link != "" && strings.HasPrefix(link, "/") {
		fullLink = strings.TrimRight(d.baseURL, "/") + link
	}

	d.sendPush(ctx, users, title, body, fullLink)
	d.sendEmails(ctx, users, title, body)
}

func (d *Dispatcher) sendPush(ctx context.Context, users []models.User, title, body, link string) {
	if d.push == nil {
		d.logger.Warn("push sender not configured, push notifications are disabled")
		return
	}

	userIDs := make([]uint64, len(users))
	for i, u := range users {
		userIDs[i] = u.ID
	}

	tokens, err := d.devices.ListDeviceTokens(userIDs)
	if err != nil {
		d.logger.Error("failed to resolve device tokens", "error", err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	if err := d.push.Send(ctx, tokens, title, body, link); err != nil {
		d.logger.Error("failed to send push notification", "error", err, "devices", len(tokens))
	}
}

func (d *Dispatcher) sendEmails(ctx context.Context, users []models.User, subject, body string) {
	if d.email == nil {
		d.logger.Warn("email sender not configured, email notifications are disabled")
		return
	}

	for _, u := range users {
		if !u.EmailNotifications || d.isInternalAddress(u.Email) {
			continue
		}
		if err := d.email.Send(ctx, u.Email, subject, body); err != nil {
			d.logger.Error("failed to send notification email", "error", err, "user_id", u.ID)
		}
	}
}

func (d *Dispatcher) isInternalAddress(email string) bool {
	if d.internalDomain == "" {
		return false
	}
	return strings.HasSuffix(strings.ToLower(email), "@"+strings.ToLower(d.internalDomain))
}
