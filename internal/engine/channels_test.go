package engine

import (
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/havenwell/notify-engine/internal/domain"
)

func TestSelectChannels(t *testing.T) {
	optedIn := domain.DefaultPreferences(uuid.New())
	noEmail := domain.DefaultPreferences(uuid.New())
	noEmail.EmailNotifications = false

	tests := []struct {
		name      string
		prefs     *domain.UserPreferences
		priority  domain.Priority
		requested []domain.Channel
		want      []domain.Channel
	}{
		{
			name:     "base set for medium priority",
			prefs:    optedIn,
			priority: domain.PriorityMedium,
			want:     []domain.Channel{domain.ChannelInApp, domain.ChannelWebPush, domain.ChannelEmail},
		},
		{
			name:     "email preference drops email",
			prefs:    noEmail,
			priority: domain.PriorityMedium,
			want:     []domain.Channel{domain.ChannelInApp, domain.ChannelWebPush},
		},
		{
			name:     "high priority adds chat-ops channels",
			prefs:    optedIn,
			priority: domain.PriorityHigh,
			want: []domain.Channel{domain.ChannelInApp, domain.ChannelWebPush,
				domain.ChannelEmail, domain.ChannelDiscord, domain.ChannelSlack},
		},
		{
			name:      "requested methods filter the set",
			prefs:     optedIn,
			priority:  domain.PriorityMedium,
			requested: []domain.Channel{domain.ChannelEmail, domain.ChannelSlack},
			want:      []domain.Channel{domain.ChannelEmail},
		},
		{
			name:      "empty intersection falls back to in_app",
			prefs:     noEmail,
			priority:  domain.PriorityLow,
			requested: []domain.Channel{domain.ChannelEmail},
			want:      []domain.Channel{domain.ChannelInApp},
		},
		{
			name:      "result keeps fixed channel order",
			prefs:     optedIn,
			priority:  domain.PriorityHigh,
			requested: []domain.Channel{domain.ChannelSlack, domain.ChannelInApp, domain.ChannelDiscord},
			want:      []domain.Channel{domain.ChannelInApp, domain.ChannelDiscord, domain.ChannelSlack},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectChannels(tt.prefs, tt.priority, tt.requested)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SelectChannels() = %v, want %v", got, tt.want)
			}
		})
	}
}
