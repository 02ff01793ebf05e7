package timing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/havenwell/notify-engine/internal/domain"
	"github.com/havenwell/notify-engine/internal/store"
)

type fakeHistory struct {
	events   []domain.AnalyticsEvent
	profile  *domain.TimingProfile
	upserted *domain.TimingProfile
}

func (f *fakeHistory) HistorySince(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.AnalyticsEvent, error) {
	return f.events, nil
}

func (f *fakeHistory) UpsertProfile(ctx context.Context, p *domain.TimingProfile) error {
	f.upserted = p
	return nil
}

func (f *fakeHistory) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.TimingProfile, error) {
	if f.profile == nil {
		return nil, store.ErrNotFound
	}
	return f.profile, nil
}

// eventAt builds a clicked or delivered event at a fixed moment.
func eventAt(t time.Time, typ domain.EventType) domain.AnalyticsEvent {
	return domain.AnalyticsEvent{
		ID:               uuid.New(),
		UserID:           uuid.New(),
		EventType:        typ,
		DeliveryMethod:   domain.ChannelEmail,
		NotificationType: domain.TypeSessionReminder,
		CreatedAt:        t,
	}
}

func TestCalculateOptimalTiming_NoEventsNoProfile(t *testing.T) {
	h := &fakeHistory{}
	svc := NewService(h, 30*24*time.Hour)

	profile, err := svc.CalculateOptimalTiming(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("CalculateOptimalTiming() error: %v", err)
	}
	if profile != nil {
		t.Fatal("zero events must yield a nil profile")
	}
	if h.upserted != nil {
		t.Error("nothing should be persisted without events")
	}
}

func TestCalculateOptimalTiming_Buckets(t *testing.T) {
	// Tuesday 2026-03-10. Slot 14 gets 3 clicks out of 4 events (rate 0.75);
	// slot 8 gets 1 click out of 4 (rate 0.25).
	tue14 := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	tue8 := time.Date(2026, 3, 10, 8, 15, 0, 0, time.UTC)

	var events []domain.AnalyticsEvent
	events = append(events,
		eventAt(tue14, domain.EventClicked),
		eventAt(tue14, domain.EventClicked),
		eventAt(tue14, domain.EventCompleted),
		eventAt(tue14, domain.EventDelivered),
		eventAt(tue8, domain.EventClicked),
		eventAt(tue8, domain.EventDelivered),
		eventAt(tue8, domain.EventDelivered),
		eventAt(tue8, domain.EventDelivered),
	)

	h := &fakeHistory{events: events}
	svc := NewService(h, 30*24*time.Hour)

	profile, err := svc.CalculateOptimalTiming(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("CalculateOptimalTiming() error: %v", err)
	}

	slots := profile.OptimalSendTimes[time.Tuesday]
	if len(slots) != 1 || slots[0] != 14 {
		t.Errorf("Tuesday optimal slots = %v, want [14]", slots)
	}

	rate := profile.EngagementPatterns[domain.TypeSessionReminder]
	if rate != 0.5 {
		t.Errorf("engagement rate = %v, want 0.5", rate)
	}

	prefs := profile.DeliveryPreferences[domain.TypeSessionReminder]
	if len(prefs) != 1 || prefs[0] != domain.ChannelEmail {
		t.Errorf("delivery preferences = %v, want [email]", prefs)
	}

	if h.upserted == nil {
		t.Error("profile should be persisted")
	}
}

func TestConfidenceScore(t *testing.T) {
	tests := []struct {
		events int
		want   float64
	}{
		{40, 0.4},
		{100, 1.0},
		{150, 1.0},
	}
	for _, tt := range tests {
		if got := confidence(tt.events); got != tt.want {
			t.Errorf("confidence(%d) = %v, want %v", tt.events, got, tt.want)
		}
	}
}

func TestGetOptimalSendTime(t *testing.T) {
	userID := uuid.New()
	// Tuesday has optimal slots at 08:00 and 14:00.
	profile := &domain.TimingProfile{
		UserID: userID,
		OptimalSendTimes: map[time.Weekday][]int{
			time.Tuesday: {8, 14},
		},
	}

	tests := []struct {
		name    string
		now     time.Time
		profile *domain.TimingProfile
		want    time.Time
	}{
		{
			name:    "next slot later today",
			now:     time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), // Tuesday
			profile: profile,
			want:    time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
		},
		{
			name:    "all slots passed, first slot tomorrow",
			now:     time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC),
			profile: profile,
			want:    time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC),
		},
		{
			name:    "no slots for today falls back to now",
			now:     time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC), // Wednesday
			profile: profile,
			want:    time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC),
		},
		{
			name:    "no profile falls back to now",
			now:     time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
			profile: nil,
			want:    time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &fakeHistory{profile: tt.profile}
			svc := NewService(h, 30*24*time.Hour)
			svc.now = func() time.Time { return tt.now }

			got := svc.GetOptimalSendTime(context.Background(), userID, domain.TypeSessionReminder)
			if !got.Equal(tt.want) {
				t.Errorf("GetOptimalSendTime() = %s, want %s", got, tt.want)
			}
		})
	}
}
