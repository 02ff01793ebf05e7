package domain

import (
	"time"

	"github.com/google/uuid"
)

// Priority enumerates notification urgency levels.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// priorityRank orders priorities for queue dispatch (higher dispatches first).
var priorityRank = map[Priority]int{
	PriorityLow:    0,
	PriorityMedium: 1,
	PriorityHigh:   2,
}

// Rank returns the numeric dispatch rank of a priority. Unknown priorities
// rank as low.
func (p Priority) Rank() int { return priorityRank[p] }

// Channel is a delivery transport.
type Channel string

const (
	ChannelInApp    Channel = "in_app"
	ChannelWebPush  Channel = "web_push"
	ChannelEmail    Channel = "email"
	ChannelDiscord  Channel = "discord"
	ChannelSlack    Channel = "slack"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
)

// channelRank is the fixed ordering of channels in a resolved delivery list.
var channelRank = map[Channel]int{
	ChannelInApp:    0,
	ChannelWebPush:  1,
	ChannelEmail:    2,
	ChannelDiscord:  3,
	ChannelSlack:    4,
	ChannelWhatsApp: 5,
	ChannelSMS:      6,
}

// Rank returns the fixed ordering position of a channel. Unknown channels
// sort last.
func (c Channel) Rank() int {
	if r, ok := channelRank[c]; ok {
		return r
	}
	return len(channelRank)
}

// NotificationType names the logical kind of a notification. Per-type opt-in
// preferences are keyed on these values.
type NotificationType string

const (
	TypeSessionReminder   NotificationType = "session_reminder"
	TypeMilestoneAchieved NotificationType = "milestone_achieved"
	TypeInsightGenerated  NotificationType = "insight_generated"
	TypeStreakReminder    NotificationType = "streak_reminder"
	TypeCrisisAlert       NotificationType = "crisis_alert"
	TypeCampaignStep      NotificationType = "campaign_step"
	TypeCustom            NotificationType = "custom"
)

// NotificationRequest is the transient intent handed to the engine. It is
// constructed per call and never persisted as-is.
type NotificationRequest struct {
	UserID          uuid.UUID              `json:"user_id"`
	TemplateID      *uuid.UUID             `json:"template_id,omitempty"`
	Type            NotificationType       `json:"type"`
	Title           string                 `json:"title"`
	Message         string                 `json:"message"`
	Priority        Priority               `json:"priority"`
	Data            map[string]interface{} `json:"data,omitempty"`
	DeliveryMethods []Channel              `json:"delivery_methods,omitempty"`
	ScheduledFor    *time.Time             `json:"scheduled_for,omitempty"`
	Variables       map[string]string      `json:"variables,omitempty"`
}

// JobStatus enumerates the lifecycle of a queued notification.
//
// Transitions: pending -> processing -> {completed, failed}. A requeue after
// total channel failure moves processing back to pending with retry_count
// incremented; failed is terminal only once retries are exhausted.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// MaxRetries is the maximum number of requeues after total channel failure
// before a job is permanently failed.
const MaxRetries = 5

// QueuedNotification is a unit of scheduled delivery work. It is owned by the
// queue until claimed by the dispatcher.
type QueuedNotification struct {
	ID              uuid.UUID              `json:"id" db:"id"`
	UserID          uuid.UUID              `json:"user_id" db:"user_id"`
	TemplateID      *uuid.UUID             `json:"template_id" db:"template_id"`
	Type            NotificationType       `json:"type" db:"type"`
	Title           string                 `json:"title" db:"title"`
	Message         string                 `json:"message" db:"message"`
	Priority        Priority               `json:"priority" db:"priority"`
	DeliveryMethods []Channel              `json:"delivery_methods" db:"delivery_methods"`
	Data            map[string]interface{} `json:"data" db:"data"`
	ScheduledFor    time.Time              `json:"scheduled_for" db:"scheduled_for"`
	Status          JobStatus              `json:"status" db:"status"`
	RetryCount      int                    `json:"retry_count" db:"retry_count"`
	CreatedAt       time.Time              `json:"created_at" db:"created_at"`
}

// IsTerminal returns true once the job has reached a final state.
func (q *QueuedNotification) IsTerminal() bool {
	return q.Status == JobCompleted || q.Status == JobFailed
}

// DeliveryOutcome is the result of one channel attempt.
type DeliveryOutcome string

const (
	OutcomeDelivered DeliveryOutcome = "delivered"
	OutcomeFailed    DeliveryOutcome = "failed"
)

// DeliveryAttempt records one channel attempt for a job. Append-only.
type DeliveryAttempt struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	JobID     uuid.UUID       `json:"job_id" db:"job_id"`
	Channel   Channel         `json:"channel" db:"channel"`
	Outcome   DeliveryOutcome `json:"outcome" db:"outcome"`
	Error     string          `json:"error,omitempty" db:"error_message"`
	Timestamp time.Time       `json:"timestamp" db:"attempted_at"`
}

// InAppNotification is a persisted in-app inbox entry, written directly by
// the dispatcher for the in_app channel.
type InAppNotification struct {
	ID        uuid.UUID              `json:"id" db:"id"`
	UserID    uuid.UUID              `json:"user_id" db:"user_id"`
	JobID     *uuid.UUID             `json:"job_id" db:"job_id"`
	Type      NotificationType       `json:"type" db:"type"`
	Title     string                 `json:"title" db:"title"`
	Message   string                 `json:"message" db:"message"`
	Data      map[string]interface{} `json:"data" db:"data"`
	ReadAt    *time.Time             `json:"read_at" db:"read_at"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}
