package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates analytics event kinds.
type EventType string

const (
	EventBlocked   EventType = "blocked"
	EventDelivered EventType = "delivered"
	EventFailed    EventType = "failed"
	EventClicked   EventType = "clicked"
	EventCompleted EventType = "completed"
)

// AnalyticsEvent is an append-only engagement record. It is never mutated and
// is the sole input to timing intelligence.
type AnalyticsEvent struct {
	ID               uuid.UUID              `json:"id" db:"id"`
	UserID           uuid.UUID              `json:"user_id" db:"user_id"`
	EventType        EventType              `json:"event_type" db:"event_type"`
	DeliveryMethod   Channel                `json:"delivery_method" db:"delivery_method"`
	NotificationType NotificationType       `json:"notification_type" db:"notification_type"`
	Metadata         map[string]interface{} `json:"metadata" db:"metadata"`
	CreatedAt        time.Time              `json:"created_at" db:"created_at"`
}
