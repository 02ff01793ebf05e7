// Package campaign orchestrates drip campaigns: audience resolution,
// enrollment, timed step scheduling, and progression on step completion.
package campaign

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/havenwell/notify-engine/internal/domain"
)

// Store is the campaign persistence surface the orchestrator drives.
type Store interface {
	GetCampaign(ctx context.Context, id uuid.UUID) (*domain.Campaign, error)
	SetStatus(ctx context.Context, id uuid.UUID, status domain.CampaignStatus) error
	CreateEnrollment(ctx context.Context, e *domain.CampaignEnrollment) (bool, error)
	GetEnrollment(ctx context.Context, campaignID, userID uuid.UUID) (*domain.CampaignEnrollment, error)
	AdvanceEnrollment(ctx context.Context, campaignID, userID uuid.UUID, fromStep int) (bool, error)
	FinishEnrollment(ctx context.Context, campaignID, userID uuid.UUID, status domain.EnrollmentStatus) error
	CountActiveEnrollments(ctx context.Context, campaignID uuid.UUID) (int, error)
	Metrics(ctx context.Context, campaignID uuid.UUID) (*domain.CampaignMetrics, error)
}

// AudienceResolver turns a target-audience filter into user ids.
type AudienceResolver interface {
	ResolveAudience(ctx context.Context, a domain.TargetAudience) ([]uuid.UUID, error)
}

// Sender schedules campaign step notifications through the engine.
type Sender interface {
	SendNotification(ctx context.Context, req *domain.NotificationRequest) (*domain.QueuedNotification, error)
}

// Orchestrator runs campaign lifecycles. It holds no in-memory campaign
// state: every decision reads the enrollment table, so any instance can act
// on any campaign.
type Orchestrator struct {
	store  Store
	users  AudienceResolver
	sender Sender
	now    func() time.Time
}

func New(store Store, users AudienceResolver, sender Sender) *Orchestrator {
	return &Orchestrator{store: store, users: users, sender: sender, now: time.Now}
}

// StartCampaign resolves the audience, enrolls every matched user, and
// schedules each enrollment's first step. An audience resolution failure
// aborts the start entirely; a campaign must not launch against a partial
// audience.
func (o *Orchestrator) StartCampaign(ctx context.Context, campaignID uuid.UUID) error {
	c, err := o.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("load campaign: %w", err)
	}
	if c.Status == domain.CampaignRunning {
		return fmt.Errorf("campaign %s is already running", campaignID)
	}
	if c.Status == domain.CampaignCompleted {
		return fmt.Errorf("campaign %s is already completed", campaignID)
	}
	if c.Status == domain.CampaignPaused {
		// Resume is the only way back from paused; a fresh start would walk
		// the audience again and re-send step zero to mid-sequence users.
		return fmt.Errorf("campaign %s is paused, resume it instead", campaignID)
	}
	if len(c.Steps) == 0 {
		return fmt.Errorf("campaign %s has no steps", campaignID)
	}

	userIDs, err := o.users.ResolveAudience(ctx, c.TargetAudience)
	if err != nil {
		return fmt.Errorf("resolve campaign audience: %w", err)
	}

	if err := o.store.SetStatus(ctx, campaignID, domain.CampaignRunning); err != nil {
		return fmt.Errorf("mark campaign running: %w", err)
	}

	enrolled := 0
	for _, userID := range userIDs {
		if err := o.EnrollUser(ctx, c, userID); err != nil {
			log.Printf("[Campaign] enroll user %s in campaign %s: %v", userID, campaignID, err)
			continue
		}
		enrolled++
	}
	log.Printf("[Campaign] campaign %s started: %d/%d users enrolled",
		campaignID, enrolled, len(userIDs))
	return nil
}

// EnrollUser creates an enrollment at step zero and schedules the first step.
// Re-enrolling an already-enrolled user is a full no-op: the insert conflicts
// and no step is scheduled, so a user mid-sequence never sees step zero again.
func (o *Orchestrator) EnrollUser(ctx context.Context, c *domain.Campaign, userID uuid.UUID) error {
	enrollment := &domain.CampaignEnrollment{
		ID:               uuid.New(),
		CampaignID:       c.ID,
		UserID:           userID,
		CurrentStep:      0,
		CompletionStatus: domain.EnrollmentActive,
	}
	created, err := o.store.CreateEnrollment(ctx, enrollment)
	if err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	if !created {
		return nil
	}
	return o.scheduleStep(ctx, c, userID, 0)
}

// ProcessStepCompletion advances an enrollment after the user acknowledged
// the current step, then schedules the next step or finishes the enrollment.
// The guarded advance makes duplicate acknowledgements harmless.
func (o *Orchestrator) ProcessStepCompletion(ctx context.Context, campaignID, userID uuid.UUID, completedStep int) error {
	c, err := o.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("load campaign: %w", err)
	}

	advanced, err := o.store.AdvanceEnrollment(ctx, campaignID, userID, completedStep)
	if err != nil {
		return fmt.Errorf("advance enrollment: %w", err)
	}
	if !advanced {
		// Stale or duplicate acknowledgement; the enrollment has moved on.
		return nil
	}

	nextStep := completedStep + 1
	if nextStep >= len(c.Steps) {
		if err := o.store.FinishEnrollment(ctx, campaignID, userID, domain.EnrollmentComplete); err != nil {
			return fmt.Errorf("finish enrollment: %w", err)
		}
		return o.completeIfDrained(ctx, campaignID)
	}
	return o.scheduleStep(ctx, c, userID, nextStep)
}

// OptOut removes a user from a campaign. Steps already queued still deliver;
// no further steps are scheduled.
func (o *Orchestrator) OptOut(ctx context.Context, campaignID, userID uuid.UUID) error {
	if err := o.store.FinishEnrollment(ctx, campaignID, userID, domain.EnrollmentOptedOut); err != nil {
		return fmt.Errorf("opt out enrollment: %w", err)
	}
	return o.completeIfDrained(ctx, campaignID)
}

// Pause stops a running campaign from scheduling new steps.
func (o *Orchestrator) Pause(ctx context.Context, campaignID uuid.UUID) error {
	c, err := o.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("load campaign: %w", err)
	}
	if c.Status != domain.CampaignRunning {
		return fmt.Errorf("campaign %s is not running", campaignID)
	}
	return o.store.SetStatus(ctx, campaignID, domain.CampaignPaused)
}

// Resume returns a paused campaign to running.
func (o *Orchestrator) Resume(ctx context.Context, campaignID uuid.UUID) error {
	c, err := o.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("load campaign: %w", err)
	}
	if c.Status != domain.CampaignPaused {
		return fmt.Errorf("campaign %s is not paused", campaignID)
	}
	return o.store.SetStatus(ctx, campaignID, domain.CampaignRunning)
}

// Metrics returns the campaign's on-demand enrollment report.
func (o *Orchestrator) Metrics(ctx context.Context, campaignID uuid.UUID) (*domain.CampaignMetrics, error) {
	return o.store.Metrics(ctx, campaignID)
}

// scheduleStep sends one step's notification through the engine with the
// step's configured delay. A paused campaign schedules nothing; the
// enrollment simply waits where it is.
func (o *Orchestrator) scheduleStep(ctx context.Context, c *domain.Campaign, userID uuid.UUID, stepIdx int) error {
	if c.Status == domain.CampaignPaused {
		return nil
	}
	step := c.Steps[stepIdx]
	scheduledFor := o.now().Add(time.Duration(step.DelayHours) * time.Hour)

	_, err := o.sender.SendNotification(ctx, &domain.NotificationRequest{
		UserID:   userID,
		Type:     domain.TypeCampaignStep,
		Title:    step.Title,
		Message:  step.Message,
		Priority: domain.PriorityMedium,
		Data: map[string]interface{}{
			"campaign_id": c.ID.String(),
			"step_order":  step.StepOrder,
		},
		DeliveryMethods: step.DeliveryMethods,
		ScheduledFor:    &scheduledFor,
	})
	if err != nil {
		if ferr := o.store.FinishEnrollment(ctx, c.ID, userID, domain.EnrollmentFailed); ferr != nil {
			log.Printf("[Campaign] mark enrollment failed (%s, %s): %v", c.ID, userID, ferr)
		}
		return fmt.Errorf("schedule step %d: %w", stepIdx, err)
	}
	return nil
}

// completeIfDrained marks the campaign completed once no active enrollments
// remain.
func (o *Orchestrator) completeIfDrained(ctx context.Context, campaignID uuid.UUID) error {
	active, err := o.store.CountActiveEnrollments(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("count active enrollments: %w", err)
	}
	if active > 0 {
		return nil
	}
	if err := o.store.SetStatus(ctx, campaignID, domain.CampaignCompleted); err != nil {
		return fmt.Errorf("complete campaign: %w", err)
	}
	log.Printf("[Campaign] campaign %s completed: all enrollments finished", campaignID)
	return nil
}
