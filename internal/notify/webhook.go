// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

// Package notify delivers attendance events to an external webhook.
//
// Events are published onto an in-process Watermill GoChannel so the
// clock-in and clock-out paths never wait on the webhook. A supervised
// subscriber drains the channel and POSTs each event with the shared
// secret in the X-Webhook-Secret header. Delivery is best effort: failures
// are logged and counted, never retried or surfaced to callers.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/punchclock/internal/attendance"
	"github.com/tomtom215/punchclock/internal/config"
	"github.com/tomtom215/punchclock/internal/logging"
	"github.com/tomtom215/punchclock/internal/metrics"
)

// Topic is the GoChannel topic attendance events travel on.
const Topic = "attendance.events"

// SecretHeader carries the shared webhook secret.
const SecretHeader = "X-Webhook-Secret"

// Webhook implements attendance.Notifier and suture.Service.
type Webhook struct {
	url    string
	secret string
	client *http.Client
	pubsub *gochannel.GoChannel
}

var _ attendance.Notifier = (*Webhook)(nil)

// NewWebhook creates a webhook notifier. With an empty URL, Notify is a
// no-op and Serve just waits for shutdown.
func NewWebhook(cfg config.WebhookConfig, logger watermill.LoggerAdapter) *Webhook {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		url:    cfg.URL,
		secret: cfg.Secret,
		client: &http.Client{Timeout: timeout},
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, logger),
	}
}

// Enabled reports whether a webhook URL is configured.
func (w *Webhook) Enabled() bool { return w.url != "" }

// Notify queues ev for delivery and returns immediately.
func (w *Webhook) Notify(ctx context.Context, ev attendance.Event) {
	if !w.Enabled() {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("action", ev.Action).Msg("Failed to encode webhook event")
		metrics.WebhookDeliveries.WithLabelValues("dropped").Inc()
		return
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set("action", ev.Action)
	if id := logging.RequestIDFromContext(ctx); id != "" {
		msg.Metadata.Set("request_id", id)
	}
	if err := w.pubsub.Publish(Topic, msg); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("action", ev.Action).Msg("Failed to queue webhook event")
		metrics.WebhookDeliveries.WithLabelValues("dropped").Inc()
	}
}

// Serve implements suture.Service. It delivers queued events until ctx is
// canceled.
func (w *Webhook) Serve(ctx context.Context) error {
	if !w.Enabled() {
		<-ctx.Done()
		return ctx.Err()
	}
	messages, err := w.pubsub.Subscribe(ctx, Topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", Topic, err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return ctx.Err()
			}
			w.handle(ctx, msg)
			msg.Ack()
		}
	}
}

func (w *Webhook) handle(ctx context.Context, msg *message.Message) {
	log := logging.WithComponent("webhook")
	action := msg.Metadata.Get("action")
	if err := w.deliver(ctx, msg.Payload); err != nil {
		metrics.WebhookDeliveries.WithLabelValues("failure").Inc()
		log.Warn().Err(err).Str("action", action).Str("message_id", msg.UUID).
			Str("request_id", msg.Metadata.Get("request_id")).Msg("Webhook delivery failed")
		return
	}
	metrics.WebhookDeliveries.WithLabelValues("success").Inc()
	log.Debug().Str("action", action).Str("message_id", msg.UUID).Msg("Webhook delivered")
}

// errStatus is returned for non-2xx webhook responses.
var errStatus = errors.New("unexpected webhook status")

func (w *Webhook) deliver(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.secret != "" {
		req.Header.Set(SecretHeader, w.secret)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %d", errStatus, resp.StatusCode)
	}
	return nil
}

// Close shuts the channel down. Queued events are dropped.
func (w *Webhook) Close() error {
	return w.pubsub.Close()
}

// String implements fmt.Stringer for supervisor logs.
func (w *Webhook) String() string { return "webhook-notifier" }
