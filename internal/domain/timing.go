package domain

import (
	"time"

	"github.com/google/uuid"
)

// SlotHours is the width of an engagement bucket. Hour slots are the even
// hours 0, 2, ... 22.
const SlotHours = 2

// TimingProfile holds a user's computed optimal send windows and engagement
// patterns. Recomputed wholesale on each run, never incrementally merged.
type TimingProfile struct {
	UserID uuid.UUID `json:"user_id" db:"user_id"`

	// OptimalSendTimes maps weekday (0=Sunday) to the sorted hour slots whose
	// historical click-through exceeds the optimality threshold.
	OptimalSendTimes map[time.Weekday][]int `json:"optimal_send_times" db:"optimal_send_times"`

	// EngagementPatterns maps notification type to its click rate in [0,1].
	EngagementPatterns map[NotificationType]float64 `json:"engagement_patterns" db:"engagement_patterns"`

	// DeliveryPreferences maps notification type to the top channels ranked
	// by click count (at most three).
	DeliveryPreferences map[NotificationType][]Channel `json:"delivery_preferences" db:"delivery_preferences"`

	// ConfidenceScore in [0,1]; rises monotonically with event volume.
	ConfidenceScore  float64   `json:"confidence_score" db:"confidence_score"`
	LastCalculatedAt time.Time `json:"last_calculated_at" db:"last_calculated_at"`
}
