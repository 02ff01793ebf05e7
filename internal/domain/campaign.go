package domain

import (
	"time"

	"github.com/google/uuid"
)

// CampaignStatus enumerates the lifecycle states of a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignRunning   CampaignStatus = "running"
	CampaignCompleted CampaignStatus = "completed"
	CampaignPaused    CampaignStatus = "paused"
)

// TargetAudience is the filter resolved against the user store when a
// campaign starts. Zero-value fields are ignored.
type TargetAudience struct {
	SubscriptionPlan string     `json:"subscription_plan,omitempty"`
	JoinedAfter      *time.Time `json:"joined_after,omitempty"`
	JoinedBefore     *time.Time `json:"joined_before,omitempty"`
}

// Campaign is a named sequence of timed notification steps.
type Campaign struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	Name           string         `json:"name" db:"name"`
	CampaignType   string         `json:"campaign_type" db:"campaign_type"`
	TargetAudience TargetAudience `json:"target_audience" db:"target_audience"`
	Steps          []CampaignStep `json:"notification_sequence" db:"-"`
	Status         CampaignStatus `json:"status" db:"status"`
	StartedAt      *time.Time     `json:"started_at" db:"started_at"`
	CompletedAt    *time.Time     `json:"completed_at" db:"completed_at"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// CampaignStep is one timed notification in a campaign sequence. Immutable
// once the campaign is running.
type CampaignStep struct {
	ID              uuid.UUID `json:"id" db:"id"`
	CampaignID      uuid.UUID `json:"campaign_id" db:"campaign_id"`
	StepOrder       int       `json:"step_order" db:"step_order"`
	Title           string    `json:"title" db:"title"`
	Message         string    `json:"message" db:"message"`
	DelayHours      int       `json:"delay_hours" db:"delay_hours"`
	DeliveryMethods []Channel `json:"delivery_methods" db:"delivery_methods"`
}

// EnrollmentStatus enumerates a user's progress state within a campaign.
type EnrollmentStatus string

const (
	EnrollmentActive   EnrollmentStatus = "active"
	EnrollmentComplete EnrollmentStatus = "completed"
	EnrollmentOptedOut EnrollmentStatus = "opted_out"
	EnrollmentFailed   EnrollmentStatus = "failed"
)

// CampaignEnrollment tracks one user's progress through a campaign. One per
// (campaign, user); current_step only increases.
type CampaignEnrollment struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	CampaignID       uuid.UUID        `json:"campaign_id" db:"campaign_id"`
	UserID           uuid.UUID        `json:"user_id" db:"user_id"`
	CurrentStep      int              `json:"current_step" db:"current_step"`
	CompletionStatus EnrollmentStatus `json:"completion_status" db:"completion_status"`
	EnrolledAt       time.Time        `json:"enrolled_at" db:"enrolled_at"`
	CompletedAt      *time.Time       `json:"completed_at" db:"completed_at"`
}

// IsTerminal returns true once the enrollment has reached a final state.
func (e *CampaignEnrollment) IsTerminal() bool {
	return e.CompletionStatus != EnrollmentActive
}

// CampaignMetrics is an on-demand report computed from the enrollment table.
// Never cached beyond a single report generation.
type CampaignMetrics struct {
	CampaignID                 uuid.UUID `json:"campaign_id"`
	TotalEnrolled              int       `json:"total_enrolled"`
	Completed                  int       `json:"completed"`
	OptedOut                   int       `json:"opted_out"`
	Failed                     int       `json:"failed"`
	CompletionRate             float64   `json:"completion_rate"`
	OptOutRate                 float64   `json:"opt_out_rate"`
	AverageCompletionTimeHours float64   `json:"average_completion_time_hours"`
}
