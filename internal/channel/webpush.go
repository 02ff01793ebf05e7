package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"

	"github.com/havenwell/notify-engine/internal/config"
	"github.com/havenwell/notify-engine/internal/domain"
)

// SubscriptionSource loads a user's registered push endpoints.
type SubscriptionSource interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.PushSubscription, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// WebPushAdapter delivers notifications to browser push endpoints using
// VAPID-signed web push. A user may hold several subscriptions (one per
// device); the attempt succeeds when at least one endpoint accepts.
type WebPushAdapter struct {
	subs       SubscriptionSource
	publicKey  string
	privateKey string
	subscriber string
}

// pushPayload is the JSON body handed to the service worker.
type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag,omitempty"`
}

// NewWebPushAdapter creates the web push adapter. Returns a nil Adapter when
// VAPID keys are not configured.
func NewWebPushAdapter(cfg config.WebPushConfig, subs SubscriptionSource) Adapter {
	if cfg.VAPIDPublicKey == "" || cfg.VAPIDPrivateKey == "" {
		return nil
	}
	subscriber := cfg.Subscriber
	if subscriber == "" {
		subscriber = "mailto:noreply@havenwell.app"
	}
	return &WebPushAdapter{
		subs:       subs,
		publicKey:  cfg.VAPIDPublicKey,
		privateKey: cfg.VAPIDPrivateKey,
		subscriber: subscriber,
	}
}

func (a *WebPushAdapter) Channel() domain.Channel { return domain.ChannelWebPush }

// Send pushes the notification to every subscription the user holds.
// Expired endpoints (410 Gone) are pruned as they are discovered.
func (a *WebPushAdapter) Send(ctx context.Context, msg *Message) (*SendResult, error) {
	subs, err := a.subs.ListForUser(ctx, msg.UserID)
	if err != nil {
		return nil, fmt.Errorf("load push subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return &SendResult{Success: false, Detail: "no push subscriptions"}, nil
	}

	data, err := json.Marshal(pushPayload{Title: msg.Title, Body: msg.Body})
	if err != nil {
		return nil, fmt.Errorf("marshal push payload: %w", err)
	}

	delivered := 0
	for _, sub := range subs {
		resp, err := webpush.SendNotificationWithContext(ctx, data, &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				P256dh: sub.P256dhKey,
				Auth:   sub.AuthKey,
			},
		}, &webpush.Options{
			VAPIDPublicKey:  a.publicKey,
			VAPIDPrivateKey: a.privateKey,
			Subscriber:      a.subscriber,
			TTL:             86400,
		})
		if err != nil {
			log.Printf("[WebPush] send error for subscription %s: %v", sub.ID, err)
			continue
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusGone:
			// Endpoint is dead; prune it so we stop retrying forever.
			if err := a.subs.Delete(ctx, sub.ID); err != nil {
				log.Printf("[WebPush] prune expired subscription %s: %v", sub.ID, err)
			}
		case resp.StatusCode >= 400:
			log.Printf("[WebPush] push service returned %d for subscription %s", resp.StatusCode, sub.ID)
		default:
			delivered++
		}
	}

	if delivered == 0 {
		return &SendResult{Success: false, Detail: "all push endpoints rejected"}, nil
	}
	return &SendResult{
		Success: true,
		Detail:  fmt.Sprintf("delivered to %d/%d endpoints", delivered, len(subs)),
		SentAt:  time.Now(),
	}, nil
}
