// Package timing computes per-user send-time intelligence from engagement
// history. Profiles are rebuilt wholesale from the raw event stream; nothing
// here merges increments.
package timing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/havenwell/notify-engine/internal/domain"
)

// optimalClickRate is the click-through threshold above which an hour slot
// counts as optimal.
const optimalClickRate = 0.5

// confidenceEventTarget is the event count at which confidence saturates.
const confidenceEventTarget = 100

// HistorySource serves the event history and profile persistence the service
// needs.
type HistorySource interface {
	HistorySince(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.AnalyticsEvent, error)
	UpsertProfile(ctx context.Context, p *domain.TimingProfile) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*domain.TimingProfile, error)
}

// Service computes and serves timing profiles.
type Service struct {
	history  HistorySource
	lookback time.Duration
	now      func() time.Time
}

func NewService(history HistorySource, lookback time.Duration) *Service {
	if lookback <= 0 {
		lookback = 30 * 24 * time.Hour
	}
	return &Service{history: history, lookback: lookback, now: time.Now}
}

// slotKey buckets an event by weekday and two-hour slot.
type slotKey struct {
	day  time.Weekday
	slot int // even hour: 0, 2, ... 22
}

type slotStats struct {
	total   int
	clicked int
}

// CalculateOptimalTiming rebuilds a user's timing profile from their event
// history over the lookback window and persists it. Returns (nil, nil) when
// the user has no events: no data means no profile, not a default one.
func (s *Service) CalculateOptimalTiming(ctx context.Context, userID uuid.UUID) (*domain.TimingProfile, error) {
	since := s.now().Add(-s.lookback)
	events, err := s.history.HistorySince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("load engagement history: %w", err)
	}
	if len(events) == 0 {
		return nil, nil
	}

	slots := make(map[slotKey]*slotStats)
	typeTotals := make(map[domain.NotificationType]int)
	typeClicks := make(map[domain.NotificationType]int)
	channelClicks := make(map[domain.NotificationType]map[domain.Channel]int)

	for _, e := range events {
		key := slotKey{
			day:  e.CreatedAt.Weekday(),
			slot: (e.CreatedAt.Hour() / domain.SlotHours) * domain.SlotHours,
		}
		st := slots[key]
		if st == nil {
			st = &slotStats{}
			slots[key] = st
		}
		st.total++
		typeTotals[e.NotificationType]++

		if e.EventType == domain.EventClicked || e.EventType == domain.EventCompleted {
			st.clicked++
			typeClicks[e.NotificationType]++
			if e.DeliveryMethod != "" {
				byChannel := channelClicks[e.NotificationType]
				if byChannel == nil {
					byChannel = make(map[domain.Channel]int)
					channelClicks[e.NotificationType] = byChannel
				}
				byChannel[e.DeliveryMethod]++
			}
		}
	}

	profile := &domain.TimingProfile{
		UserID:              userID,
		OptimalSendTimes:    make(map[time.Weekday][]int),
		EngagementPatterns:  make(map[domain.NotificationType]float64),
		DeliveryPreferences: make(map[domain.NotificationType][]domain.Channel),
		ConfidenceScore:     confidence(len(events)),
		LastCalculatedAt:    s.now(),
	}

	for key, st := range slots {
		if float64(st.clicked)/float64(st.total) > optimalClickRate {
			profile.OptimalSendTimes[key.day] = append(profile.OptimalSendTimes[key.day], key.slot)
		}
	}
	for _, hours := range profile.OptimalSendTimes {
		sort.Ints(hours)
	}

	for typ, total := range typeTotals {
		profile.EngagementPatterns[typ] = float64(typeClicks[typ]) / float64(total)
	}

	for typ, byChannel := range channelClicks {
		profile.DeliveryPreferences[typ] = topChannels(byChannel, 3)
	}

	if err := s.history.UpsertProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("persist timing profile: %w", err)
	}
	return profile, nil
}

// GetOptimalSendTime returns the next send time inside the user's optimal
// windows: the next slot later today, else the first slot of today's weekday
// list tomorrow. Falls back to now when no profile or no windows exist —
// absent intelligence must never delay a notification. Slots are mined per
// user, not per notification type; nType narrows nothing today.
func (s *Service) GetOptimalSendTime(ctx context.Context, userID uuid.UUID, nType domain.NotificationType) time.Time {
	now := s.now()
	profile, err := s.history.GetProfile(ctx, userID)
	if err != nil {
		// No profile, or a read failure: degrade to immediate send.
		return now
	}

	hours := profile.OptimalSendTimes[now.Weekday()]
	if len(hours) == 0 {
		return now
	}

	for _, h := range hours {
		if h > now.Hour() {
			return time.Date(now.Year(), now.Month(), now.Day(), h, 0, 0, 0, now.Location())
		}
	}
	// All of today's windows have passed; use the earliest one tomorrow.
	next := now.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), hours[0], 0, 0, 0, now.Location())
}

// confidence maps event volume to [0,1], saturating at the target count.
func confidence(n int) float64 {
	c := float64(n) / confidenceEventTarget
	if c > 1 {
		return 1
	}
	return c
}

// topChannels returns up to limit channels ordered by descending click count,
// with the fixed channel ordering breaking ties deterministically.
func topChannels(clicks map[domain.Channel]int, limit int) []domain.Channel {
	channels := make([]domain.Channel, 0, len(clicks))
	for c := range clicks {
		channels = append(channels, c)
	}
	sort.Slice(channels, func(i, j int) bool {
		if clicks[channels[i]] != clicks[channels[j]] {
			return clicks[channels[i]] > clicks[channels[j]]
		}
		return channels[i].Rank() < channels[j].Rank()
	})
	if len(channels) > limit {
		channels = channels[:limit]
	}
	return channels
}
