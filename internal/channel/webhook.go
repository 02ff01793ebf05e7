package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/havenwell/notify-engine/internal/domain"
	"github.com/havenwell/notify-engine/internal/pkg/httpretry"
)

// WebhookAdapter posts notifications to a chat-ops incoming webhook. The
// same implementation serves discord and slack; only the payload field name
// differs.
type WebhookAdapter struct {
	channel domain.Channel
	url     string
	client  httpretry.Doer
}

// NewDiscordAdapter creates the discord webhook adapter. Returns a nil
// Adapter when no URL is configured.
func NewDiscordAdapter(url string, timeout time.Duration) Adapter {
	if a := newWebhookAdapter(domain.ChannelDiscord, url, timeout); a != nil {
		return a
	}
	return nil
}

// NewSlackAdapter creates the slack webhook adapter. Returns a nil Adapter
// when no URL is configured.
func NewSlackAdapter(url string, timeout time.Duration) Adapter {
	if a := newWebhookAdapter(domain.ChannelSlack, url, timeout); a != nil {
		return a
	}
	return nil
}

func newWebhookAdapter(ch domain.Channel, url string, timeout time.Duration) *WebhookAdapter {
	if url == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookAdapter{
		channel: ch,
		url:     url,
		client:  httpretry.New(&http.Client{Timeout: timeout}, 2),
	}
}

func (a *WebhookAdapter) Channel() domain.Channel { return a.channel }

// Send posts the notification text to the webhook.
func (a *WebhookAdapter) Send(ctx context.Context, msg *Message) (*SendResult, error) {
	text := fmt.Sprintf("**%s**\n%s", msg.Title, msg.Body)

	var payload map[string]string
	if a.channel == domain.ChannelDiscord {
		payload = map[string]string{"content": text}
	} else {
		payload = map[string]string{"text": text}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return &SendResult{Success: false, Detail: err.Error()}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &SendResult{Success: false, Detail: fmt.Sprintf("webhook returned %d", resp.StatusCode)}, nil
	}
	return &SendResult{Success: true, SentAt: time.Now()}, nil
}
