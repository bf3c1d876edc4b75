// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

// Package push delivers Web Push notifications for incoming notes.
//
// Delivery is best-effort with no retry: a failed push is logged and
// forgotten, and a subscription that the push service reports as gone
// (404/410) is pruned from the store.
package push

import (
	"context"
	"net/http"
	"sync"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/rangeflow/rangeflow/internal/config"
	"github.com/rangeflow/rangeflow/internal/logging"
	"github.com/rangeflow/rangeflow/internal/metrics"
	"github.com/rangeflow/rangeflow/internal/models"
)

// previewLen is how much of the note body goes into the notification.
const previewLen = 50

// Payload is the notification body shown by the service worker.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// NewNotePayload builds the notification for a note from senderName.
func NewNotePayload(senderName, message string) Payload {
	runes := []rune(message)
	if len(runes) > previewLen {
		runes = runes[:previewLen]
	}
	return Payload{
		Title: "New Note from " + senderName,
		Body:  string(runes) + "...",
		URL:   "/dashboard",
	}
}

// Sender performs one push delivery and reports the service's HTTP
// status. Implemented by webpushSender in production and by fakes in
// tests.
type Sender interface {
	Send(ctx context.Context, sub *models.PushSubscription, payload []byte) (int, error)
}

// SubscriptionStore is the slice of the store the dispatcher uses.
type SubscriptionStore interface {
	GetSubscription(ctx context.Context, rangeID uuid.UUID) (*models.PushSubscription, error)
	DeleteSubscription(ctx context.Context, rangeID uuid.UUID) error
}

// webpushSender delivers through the Web Push protocol with VAPID.
type webpushSender struct {
	opts webpush.Options
}

func (s *webpushSender) Send(ctx context.Context, sub *models.PushSubscription, payload []byte) (int, error) {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256DH,
			Auth:   sub.Keys.Auth,
		},
	}, &s.opts)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// Dispatcher fans note notifications out to recipient subscriptions.
type Dispatcher struct {
	sender Sender
	store  SubscriptionStore
	wg     sync.WaitGroup
}

// NewDispatcher builds a dispatcher from the push configuration.
// Returns nil when the VAPID key pair is absent; callers treat a nil
// dispatcher as push-disabled.
func NewDispatcher(cfg config.PushConfig, store SubscriptionStore) *Dispatcher {
	if !cfg.Enabled() {
		logging.Warn().Msg("VAPID keys not configured, push notifications disabled")
		return nil
	}
	return &Dispatcher{
		sender: &webpushSender{opts: webpush.Options{
			Subscriber:      cfg.Subscriber,
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			TTL:             60,
		}},
		store: store,
	}
}

// NewDispatcherWithSender wires a custom sender. Used by tests.
func NewDispatcherWithSender(sender Sender, store SubscriptionStore) *Dispatcher {
	return &Dispatcher{sender: sender, store: store}
}

// NotifyNewNote pushes a new-note notification to the recipient's
// subscription, asynchronously. Safe to call on a nil dispatcher.
func (d *Dispatcher) NotifyNewNote(ctx context.Context, recipientID uuid.UUID, senderName, message string) {
	if d == nil {
		return
	}

	sub, err := d.store.GetSubscription(ctx, recipientID)
	if err != nil {
		// No subscription is the common case, not a failure.
		return
	}

	data, err := json.Marshal(NewNotePayload(senderName, message))
	if err != nil {
		logging.Err(err).Msg("failed to marshal push payload")
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.send(context.WithoutCancel(ctx), sub, data)
	}()
}

func (d *Dispatcher) send(ctx context.Context, sub *models.PushSubscription, payload []byte) {
	status, err := d.sender.Send(ctx, sub, payload)
	if err != nil {
		metrics.RecordPushDelivery("failed")
		logging.Err(err).
			Str("range_id", sub.RangeID.String()).
			Msg("push delivery failed")
		return
	}

	switch status {
	case http.StatusNotFound, http.StatusGone:
		metrics.RecordPushDelivery("pruned")
		// The push service no longer knows this subscription.
		if err := d.store.DeleteSubscription(ctx, sub.RangeID); err != nil {
			logging.Err(err).
				Str("range_id", sub.RangeID.String()).
				Msg("failed to prune dead push subscription")
			return
		}
		logging.Info().
			Str("range_id", sub.RangeID.String()).
			Int("status", status).
			Msg("pruned dead push subscription")
	default:
		if status < 400 {
			metrics.RecordPushDelivery("delivered")
			return
		}
		metrics.RecordPushDelivery("failed")
		logging.Warn().
			Str("range_id", sub.RangeID.String()).
			Int("status", status).
			Msg("push service rejected notification")
	}
}

// Wait blocks until in-flight deliveries finish. Used in shutdown and
// tests.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
