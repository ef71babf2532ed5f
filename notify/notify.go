// Package notify delivers web-push notifications to registered devices.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/tradedash/metrics"
	"github.com/rustyeddy/tradedash/pkg/id"
)

const (
	DefaultTitle = "Notification"
	DefaultBody  = "You have a new message."

	Icon  = "/icon-192x192.png"
	Badge = "/icon-96x96.png"
)

var ErrMissingToken = errors.New("device token is required")

// Message is one notification addressed to a device token.
type Message struct {
	Token string            `json:"token"`
	Title string            `json:"title,omitempty"`
	Body  string            `json:"body,omitempty"`
	Data  map[string]string `json:"data,omitempty"`
}

// WithDefaults fills in the default title and body.
func (m Message) WithDefaults() Message {
	if m.Title == "" {
		m.Title = DefaultTitle
	}
	if m.Body == "" {
		m.Body = DefaultBody
	}
	if m.Data == nil {
		m.Data = map[string]string{}
	}
	return m
}

// Notifier sends a message and returns the delivery id.
type Notifier interface {
	Send(ctx context.Context, msg Message) (string, error)
}

type notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`
	Badge string `json:"badge,omitempty"`
}

type payload struct {
	ID           string            `json:"id"`
	Token        string            `json:"token"`
	Notification notification      `json:"notification"`
	Data         map[string]string `json:"data"`
	Webpush      struct {
		Notification notification `json:"notification"`
	} `json:"webpush"`
}

func buildPayload(msg Message) payload {
	p := payload{
		ID:           id.New(),
		Token:        msg.Token,
		Notification: notification{Title: msg.Title, Body: msg.Body},
		Data:         msg.Data,
	}
	p.Webpush.Notification = notification{Title: msg.Title, Body: msg.Body, Icon: Icon, Badge: Badge}
	return p
}

func shortToken(token string) string {
	if len(token) > 20 {
		return token[:20] + "..."
	}
	return token
}

// WebhookNotifier posts each message to a push gateway.
type WebhookNotifier struct {
	client *resty.Client
	url    string
}

func NewWebhookNotifier(url string, timeout time.Duration, opts ...func(*resty.Client)) (*WebhookNotifier, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("webhook url is required")
	}

	client := resty.New().
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	for _, opt := range opts {
		opt(client)
	}
	return &WebhookNotifier{client: client, url: url}, nil
}

func (w *WebhookNotifier) Send(ctx context.Context, msg Message) (string, error) {
	if msg.Token == "" {
		return "", ErrMissingToken
	}
	msg = msg.WithDefaults()
	p := buildPayload(msg)

	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(p).
		Post(w.url)
	if err == nil && resp.IsError() {
		err = fmt.Errorf("push gateway responded with status %d", resp.StatusCode())
	}
	metrics.RecordNotification(err)
	if err != nil {
		return "", fmt.Errorf("send notification: %w", err)
	}

	log.Info().Str("id", p.ID).Str("token", shortToken(msg.Token)).Str("title", msg.Title).Msg("notification sent")
	return p.ID, nil
}

// LogNotifier only logs messages. It is used when no gateway is
// configured.
type LogNotifier struct{}

func (LogNotifier) Send(ctx context.Context, msg Message) (string, error) {
	if msg.Token == "" {
		return "", ErrMissingToken
	}
	msg = msg.WithDefaults()
	p := buildPayload(msg)
	metrics.RecordNotification(nil)

	log.Info().
		Str("id", p.ID).
		Str("token", shortToken(msg.Token)).
		Str("title", msg.Title).
		Str("body", msg.Body).
		Msg("notification logged (no push gateway configured)")
	return p.ID, nil
}

// New returns a WebhookNotifier for url, or a LogNotifier when url is
// empty.
func New(url string, timeout time.Duration) (Notifier, error) {
	if strings.TrimSpace(url) == "" {
		return LogNotifier{}, nil
	}
	return NewWebhookNotifier(url, timeout)
}
