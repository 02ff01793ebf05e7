package domain

import (
	"time"

	"github.com/google/uuid"
)

// EscalationLevel classifies crisis severity. Levels above Moderate create a
// persisted escalation record and trigger alert fan-out.
type EscalationLevel int

const (
	LevelMild     EscalationLevel = 1
	LevelModerate EscalationLevel = 2
	LevelSevere   EscalationLevel = 3
	LevelCrisis   EscalationLevel = 4
)

// String returns the level's wire name.
func (l EscalationLevel) String() string {
	switch l {
	case LevelCrisis:
		return "crisis"
	case LevelSevere:
		return "severe"
	case LevelModerate:
		return "moderate"
	default:
		return "mild"
	}
}

// CrisisEscalation is a compliance record of a detected crisis signal. It is
// created only for levels above Moderate, mutated only to set the notified
// flags and resolution time, and never deleted.
type CrisisEscalation struct {
	ID                        uuid.UUID              `json:"id" db:"id"`
	UserID                    uuid.UUID              `json:"user_id" db:"user_id"`
	TriggerNotificationID     *uuid.UUID             `json:"trigger_notification_id" db:"trigger_notification_id"`
	EscalationLevel           EscalationLevel        `json:"escalation_level" db:"escalation_level"`
	EscalationData            map[string]interface{} `json:"escalation_data" db:"escalation_data"`
	ProfessionalNotified      bool                   `json:"professional_notified" db:"professional_notified"`
	EmergencyContactsNotified bool                   `json:"emergency_contacts_notified" db:"emergency_contacts_notified"`
	ResolvedAt                *time.Time             `json:"resolved_at" db:"resolved_at"`
	CreatedAt                 time.Time              `json:"created_at" db:"created_at"`
}

// EmergencyContact is a user's designated contact for crisis fan-out. Only
// active contacts with an email address are notified.
type EmergencyContact struct {
	ID       uuid.UUID `json:"id" db:"id"`
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	Name     string    `json:"name" db:"name"`
	Email    string    `json:"email" db:"email"`
	IsActive bool      `json:"is_active" db:"is_active"`
}

// Signal is a typed crisis input parsed from a notification payload. The
// detector pattern-matches on the concrete variants rather than probing an
// untyped map.
type Signal interface {
	isSignal()
}

// TextSignal carries free text from the notification payload (title, message,
// or a text field in the data bag).
type TextSignal struct {
	Body string
}

// MoodSignal carries a mood check-in score.
type MoodSignal struct {
	Score float64
}

// AssessmentSignal carries a clinical assessment score.
type AssessmentSignal struct {
	Score float64
}

// OpaqueSignal wraps payload data no other variant matched. The detector
// ignores it.
type OpaqueSignal struct {
	Data map[string]interface{}
}

func (TextSignal) isSignal()       {}
func (MoodSignal) isSignal()       {}
func (AssessmentSignal) isSignal() {}
func (OpaqueSignal) isSignal()     {}
