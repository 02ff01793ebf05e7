package engine

import (
	"sort"

	"github.com/havenwell/notify-engine/internal/domain"
)

// baseChannels is the default delivery set for every notification.
var baseChannels = []domain.Channel{
	domain.ChannelInApp,
	domain.ChannelWebPush,
	domain.ChannelEmail,
}

// highPriorityChannels are added on top of the base set for high-priority
// notifications so chat-ops surfaces light up too.
var highPriorityChannels = []domain.Channel{
	domain.ChannelDiscord,
	domain.ChannelSlack,
}

// SelectChannels resolves the ordered, deduplicated delivery list for one
// notification: the base set filtered by the user's email preference, plus
// the chat-ops channels for high priority, intersected with the requested
// methods (all, when unspecified), sorted by the fixed channel ordering.
// An empty result falls back to in_app so a notification is never silently
// unroutable.
func SelectChannels(prefs *domain.UserPreferences, priority domain.Priority, requested []domain.Channel) []domain.Channel {
	selected := make(map[domain.Channel]bool)
	for _, c := range baseChannels {
		if c == domain.ChannelEmail && !prefs.EmailNotifications {
			continue
		}
		selected[c] = true
	}
	if priority == domain.PriorityHigh {
		for _, c := range highPriorityChannels {
			selected[c] = true
		}
	}

	if len(requested) > 0 {
		want := make(map[domain.Channel]bool, len(requested))
		for _, c := range requested {
			want[c] = true
		}
		for c := range selected {
			if !want[c] {
				delete(selected, c)
			}
		}
	}

	if len(selected) == 0 {
		return []domain.Channel{domain.ChannelInApp}
	}

	out := make([]domain.Channel, 0, len(selected))
	for c := range selected {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank() < out[j].Rank() })
	return out
}
