package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationFrequency controls the overall volume a user accepts.
type NotificationFrequency string

const (
	FrequencyRealtime NotificationFrequency = "realtime"
	FrequencyDaily    NotificationFrequency = "daily"
	FrequencyWeekly   NotificationFrequency = "weekly"
)

// UserPreferences holds a user's notification settings. One row per user,
// lazily created with defaults on first read.
type UserPreferences struct {
	UserID                 uuid.UUID             `json:"user_id" db:"user_id"`
	EmailNotifications     bool                  `json:"email_notifications" db:"email_notifications"`
	SessionReminders       bool                  `json:"session_reminders" db:"session_reminders"`
	MilestoneNotifications bool                  `json:"milestone_notifications" db:"milestone_notifications"`
	InsightNotifications   bool                  `json:"insight_notifications" db:"insight_notifications"`
	StreakReminders        bool                  `json:"streak_reminders" db:"streak_reminders"`
	NotificationFrequency  NotificationFrequency `json:"notification_frequency" db:"notification_frequency"`
	QuietHoursStart        *string               `json:"quiet_hours_start" db:"quiet_hours_start"` // "HH:MM"
	QuietHoursEnd          *string               `json:"quiet_hours_end" db:"quiet_hours_end"`    // "HH:MM"
	UpdatedAt              time.Time             `json:"updated_at" db:"updated_at"`
}

// DefaultPreferences returns the preference row created on first read.
// Everything is opted in, no quiet hours.
func DefaultPreferences(userID uuid.UUID) *UserPreferences {
	return &UserPreferences{
		UserID:                 userID,
		EmailNotifications:     true,
		SessionReminders:       true,
		MilestoneNotifications: true,
		InsightNotifications:   true,
		StreakReminders:        true,
		NotificationFrequency:  FrequencyRealtime,
	}
}

// AllowsType reports whether the per-type opt-in flag permits the given
// notification type. Types without a dedicated flag are always allowed.
func (p *UserPreferences) AllowsType(t NotificationType) bool {
	switch t {
	case TypeSessionReminder:
		return p.SessionReminders
	case TypeMilestoneAchieved:
		return p.MilestoneNotifications
	case TypeInsightGenerated:
		return p.InsightNotifications
	case TypeStreakReminder:
		return p.StreakReminders
	default:
		return true
	}
}

// InQuietHours reports whether the given local time falls inside the user's
// quiet-hours window [start, end). The window may cross midnight: a window
// {22:00, 06:00} covers 23:30 and 02:00 but not 12:00. Returns false when no
// window is configured or a bound fails to parse.
func (p *UserPreferences) InQuietHours(now time.Time) bool {
	if p.QuietHoursStart == nil || p.QuietHoursEnd == nil {
		return false
	}
	start, err := parseClock(*p.QuietHoursStart)
	if err != nil {
		return false
	}
	end, err := parseClock(*p.QuietHoursEnd)
	if err != nil {
		return false
	}
	cur := now.Hour()*60 + now.Minute()
	if start == end {
		return false
	}
	if start < end {
		return cur >= start && cur < end
	}
	// Window wraps midnight.
	return cur >= start || cur < end
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
