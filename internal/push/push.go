// Package push fans channel messages out as browser push notifications.
package push

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/nikhil/chapterhub/internal/logger"
	"github.com/nikhil/chapterhub/internal/models"
)

// Store is the subscription storage the dispatcher needs
type Store interface {
	PushTargets(ctx context.Context, channelID, senderID string) ([]models.PushSubscription, error)
	DeletePushSubscriptionByID(ctx context.Context, id string) error
}

// Sender delivers one payload to one subscription and returns the push service status
type Sender interface {
	Send(ctx context.Context, sub models.PushSubscription, payload []byte) (int, error)
}

// Notification is the JSON payload the service worker receives
type Notification struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	URL       string `json:"url"`
	Tag       string `json:"tag"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

// Result counts the outcome of one fan-out
type Result struct {
	Delivered int
	Failed    int
	Removed   int
}

// WebPush sends with VAPID authentication
type WebPush struct {
	opts webpush.Options
}

// NewWebPush creates a VAPID sender. subscriber is a mailto: or https: contact.
func NewWebPush(publicKey, privateKey, subscriber string) *WebPush {
	return &WebPush{opts: webpush.Options{
		Subscriber:      subscriber,
		VAPIDPublicKey:  publicKey,
		VAPIDPrivateKey: privateKey,
		TTL:             60 * 60 * 24,
		Urgency:         webpush.UrgencyNormal,
	}}
}

func (w *WebPush) Send(ctx context.Context, sub models.PushSubscription, payload []byte) (int, error) {
	opts := w.opts
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{Auth: sub.Auth, P256dh: sub.P256dh},
	}, &opts)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// Dispatcher selects recipients and sends to each of their subscriptions
type Dispatcher struct {
	store  Store
	sender Sender
	log    *logger.Logger
}

// NewDispatcher creates a dispatcher. A nil sender disables push.
func NewDispatcher(store Store, sender Sender, log *logger.Logger) *Dispatcher {
	return &Dispatcher{store: store, sender: sender, log: log}
}

// Enabled reports whether a sender is configured
func (d *Dispatcher) Enabled() bool {
	return d.sender != nil
}

// gone reports a push service status meaning the subscription no longer exists
func gone(status int) bool {
	return status == http.StatusNotFound || status == http.StatusGone
}

// NotifyChannel sends n to every subscribed member of channelID with
// notifications enabled, except senderID. Subscriptions the push service
// reports gone are deleted. Failures are logged, never returned.
func (d *Dispatcher) NotifyChannel(ctx context.Context, channelID, senderID string, n Notification) Result {
	var res Result
	if !d.Enabled() {
		return res
	}

	subs, err := d.store.PushTargets(ctx, channelID, senderID)
	if err != nil {
		d.log.Error("Failed to load push targets", "channel_id", channelID, "error", err)
		return res
	}
	if len(subs) == 0 {
		return res
	}

	payload, err := json.Marshal(n)
	if err != nil {
		d.log.Error("Failed to encode push payload", "error", err)
		return res
	}

	for _, sub := range subs {
		status, err := d.sender.Send(ctx, sub, payload)
		switch {
		case err != nil:
			res.Failed++
			d.log.Warn("Push delivery failed", "subscription_id", sub.ID, "error", err)
		case gone(status):
			res.Removed++
			if err := d.store.DeletePushSubscriptionByID(ctx, sub.ID); err != nil {
				d.log.Error("Failed to delete expired push subscription", "subscription_id", sub.ID, "error", err)
			}
		case status >= 400:
			res.Failed++
			d.log.Warn("Push service rejected notification", "subscription_id", sub.ID, "status", status)
		default:
			res.Delivered++
		}
	}

	d.log.Debug("Push fan-out finished", "channel_id", channelID,
		"delivered", res.Delivered, "failed", res.Failed, "removed", res.Removed)
	return res
}

// Preview shortens message content for a notification body
func Preview(content string, max int) string {
	r := []rune(content)
	if len(r) <= max {
		return content
	}
	return string(r[:max]) + "…"
}
