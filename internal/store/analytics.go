package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/havenwell/notify-engine/internal/domain"
)

// AnalyticsStore appends engagement events and serves the history queries
// timing intelligence mines. Events are never updated or deleted.
type AnalyticsStore struct {
	db *sql.DB
}

func NewAnalyticsStore(db *sql.DB) *AnalyticsStore {
	return &AnalyticsStore{db: db}
}

// Record appends one analytics event.
func (s *AnalyticsStore) Record(ctx context.Context, e *domain.AnalyticsEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	metaJSON, _ := json.Marshal(e.Metadata)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notify_analytics_events
			(id, user_id, event_type, delivery_method, notification_type, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		e.ID, e.UserID, e.EventType, e.DeliveryMethod, e.NotificationType, metaJSON)
	return err
}

// HistorySince returns a user's events created after the given time, oldest
// first.
func (s *AnalyticsStore) HistorySince(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.AnalyticsEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, event_type, delivery_method, notification_type, metadata, created_at
		FROM notify_analytics_events
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at ASC`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.AnalyticsEvent
	for rows.Next() {
		var e domain.AnalyticsEvent
		var metaJSON []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.EventType, &e.DeliveryMethod,
			&e.NotificationType, &metaJSON, &e.CreatedAt); err != nil {
			continue
		}
		if len(metaJSON) > 0 {
			json.Unmarshal(metaJSON, &e.Metadata)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ActiveUsersSince returns the ids of users with at least one event after the
// given time. The timing builder uses it to bound its recompute set.
func (s *AnalyticsStore) ActiveUsersSince(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM notify_analytics_events WHERE created_at >= $1`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpsertProfile replaces a user's timing profile wholesale.
func (s *AnalyticsStore) UpsertProfile(ctx context.Context, p *domain.TimingProfile) error {
	sendTimes, _ := json.Marshal(p.OptimalSendTimes)
	patterns, _ := json.Marshal(p.EngagementPatterns)
	prefs, _ := json.Marshal(p.DeliveryPreferences)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notify_timing_profiles
			(user_id, optimal_send_times, engagement_patterns, delivery_preferences,
			 confidence_score, last_calculated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			optimal_send_times = EXCLUDED.optimal_send_times,
			engagement_patterns = EXCLUDED.engagement_patterns,
			delivery_preferences = EXCLUDED.delivery_preferences,
			confidence_score = EXCLUDED.confidence_score,
			last_calculated_at = NOW()`,
		p.UserID, sendTimes, patterns, prefs, p.ConfidenceScore)
	return err
}

// GetProfile loads a user's timing profile.
func (s *AnalyticsStore) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.TimingProfile, error) {
	p := &domain.TimingProfile{UserID: userID}
	var sendTimes, patterns, prefs []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT optimal_send_times, engagement_patterns, delivery_preferences,
		        confidence_score, last_calculated_at
		FROM notify_timing_profiles WHERE user_id = $1`, userID,
	).Scan(&sendTimes, &patterns, &prefs, &p.ConfidenceScore, &p.LastCalculatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	json.Unmarshal(sendTimes, &p.OptimalSendTimes)
	json.Unmarshal(patterns, &p.EngagementPatterns)
	json.Unmarshal(prefs, &p.DeliveryPreferences)
	return p, nil
}
