package channel

import (
	"testing"
	"time"

	"github.com/havenwell/notify-engine/internal/config"
	"github.com/havenwell/notify-engine/internal/domain"
)

// The default config leaves every external channel unconfigured; building the
// registry from those constructors must skip them all, not panic.
func TestNewRegistry_SkipsUnconfiguredAdapters(t *testing.T) {
	r := NewRegistry(
		NewEmailAdapter(config.SESConfig{}),
		NewWebPushAdapter(config.WebPushConfig{}, nil),
		NewDiscordAdapter("", 10*time.Second),
		NewSlackAdapter("", 10*time.Second),
	)

	for _, ch := range []domain.Channel{
		domain.ChannelEmail, domain.ChannelWebPush, domain.ChannelDiscord, domain.ChannelSlack,
	} {
		if r.Get(ch) != nil {
			t.Errorf("unconfigured %s channel should have no adapter", ch)
		}
	}
}

func TestNewRegistry_RegistersConfiguredAdapters(t *testing.T) {
	r := NewRegistry(
		NewDiscordAdapter("https://discord.example.com/api/webhooks/1/abc", time.Second),
		NewSlackAdapter("", time.Second),
	)

	a := r.Get(domain.ChannelDiscord)
	if a == nil {
		t.Fatal("configured discord adapter should register")
	}
	if a.Channel() != domain.ChannelDiscord {
		t.Errorf("adapter channel = %s, want discord", a.Channel())
	}
	if r.Get(domain.ChannelSlack) != nil {
		t.Error("unconfigured slack channel should stay empty")
	}
}
