package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/havenwell/notify-engine/internal/domain"
)

// PreferenceStore handles per-user notification preference rows.
type PreferenceStore struct {
	db *sql.DB
}

func NewPreferenceStore(db *sql.DB) *PreferenceStore {
	return &PreferenceStore{db: db}
}

// Get loads a user's preferences, lazily creating the default row on first
// read so every user always has one.
func (s *PreferenceStore) Get(ctx context.Context, userID uuid.UUID) (*domain.UserPreferences, error) {
	p := &domain.UserPreferences{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		`SELECT email_notifications, session_reminders, milestone_notifications,
		        insight_notifications, streak_reminders, notification_frequency,
		        quiet_hours_start, quiet_hours_end, updated_at
		FROM notify_preferences WHERE user_id = $1`, userID,
	).Scan(&p.EmailNotifications, &p.SessionReminders, &p.MilestoneNotifications,
		&p.InsightNotifications, &p.StreakReminders, &p.NotificationFrequency,
		&p.QuietHoursStart, &p.QuietHoursEnd, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		defaults := domain.DefaultPreferences(userID)
		if err := s.Upsert(ctx, defaults); err != nil {
			return nil, err
		}
		return defaults, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Upsert writes a user's preference row, inserting or replacing in one
// statement.
func (s *PreferenceStore) Upsert(ctx context.Context, p *domain.UserPreferences) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notify_preferences
			(user_id, email_notifications, session_reminders, milestone_notifications,
			 insight_notifications, streak_reminders, notification_frequency,
			 quiet_hours_start, quiet_hours_end, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			email_notifications = EXCLUDED.email_notifications,
			session_reminders = EXCLUDED.session_reminders,
			milestone_notifications = EXCLUDED.milestone_notifications,
			insight_notifications = EXCLUDED.insight_notifications,
			streak_reminders = EXCLUDED.streak_reminders,
			notification_frequency = EXCLUDED.notification_frequency,
			quiet_hours_start = EXCLUDED.quiet_hours_start,
			quiet_hours_end = EXCLUDED.quiet_hours_end,
			updated_at = NOW()`,
		p.UserID, p.EmailNotifications, p.SessionReminders, p.MilestoneNotifications,
		p.InsightNotifications, p.StreakReminders, p.NotificationFrequency,
		p.QuietHoursStart, p.QuietHoursEnd)
	return err
}
