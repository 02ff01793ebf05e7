package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/havenwell/notify-engine/internal/channel"
	"github.com/havenwell/notify-engine/internal/domain"
	"github.com/havenwell/notify-engine/internal/store"
)

// JobStore is the queue surface the dispatcher drives.
type JobStore interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.QueuedNotification, error)
	Claim(ctx context.Context, id uuid.UUID) (bool, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	Requeue(ctx context.Context, id uuid.UUID, scheduledFor time.Time) error
	RecordAttempt(ctx context.Context, a *domain.DeliveryAttempt) error
}

// RecipientSource resolves a job's user to a deliverable identity.
type RecipientSource interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// InboxWriter persists in-app notifications. The in_app channel has no
// external transport; delivery is a database write.
type InboxWriter interface {
	Insert(ctx context.Context, n *domain.InAppNotification) error
}

// Dispatcher executes queued jobs: it claims a job, attempts every resolved
// channel, records per-channel outcomes, and settles the job's final status.
type Dispatcher struct {
	jobs      JobStore
	users     RecipientSource
	inbox     InboxWriter
	registry  *channel.Registry
	analytics EventRecorder

	channelTimeout time.Duration
	now            func() time.Time
}

func NewDispatcher(jobs JobStore, users RecipientSource, inbox InboxWriter, registry *channel.Registry, analytics EventRecorder, channelTimeout time.Duration) *Dispatcher {
	if channelTimeout <= 0 {
		channelTimeout = 15 * time.Second
	}
	return &Dispatcher{
		jobs:           jobs,
		users:          users,
		inbox:          inbox,
		registry:       registry,
		analytics:      analytics,
		channelTimeout: channelTimeout,
		now:            time.Now,
	}
}

// ProcessJob runs one queued job end to end. Safe to call concurrently for
// the same id: the claim is a conditional status transition, so exactly one
// caller proceeds past it.
func (d *Dispatcher) ProcessJob(ctx context.Context, id uuid.UUID) error {
	job, err := d.jobs.Get(ctx, id)
	if err == store.ErrNotFound {
		return fmt.Errorf("job %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("load job %s: %w", id, err)
	}
	if job.Status != domain.JobPending {
		// Another dispatcher got here first, or the job already settled.
		return nil
	}

	claimed, err := d.jobs.Claim(ctx, id)
	if err != nil {
		return fmt.Errorf("claim job %s: %w", id, err)
	}
	if !claimed {
		return nil
	}

	email := ""
	if user, err := d.users.Get(ctx, job.UserID); err == nil {
		email = user.Email
	} else if err != store.ErrNotFound {
		log.Printf("[Dispatcher] resolve user %s for job %s: %v", job.UserID, job.ID, err)
	}

	succeeded := 0
	for _, ch := range job.DeliveryMethods {
		outcome, detail := d.attempt(ctx, job, ch, email)
		if outcome == domain.OutcomeDelivered {
			succeeded++
		}
		d.recordOutcome(ctx, job, ch, outcome, detail)
	}

	// Partial success still completes the job: the user was reached.
	if succeeded > 0 {
		if err := d.jobs.MarkCompleted(ctx, job.ID); err != nil {
			return fmt.Errorf("complete job %s: %w", job.ID, err)
		}
		d.recordSummary(ctx, job, domain.EventCompleted,
			fmt.Sprintf("%d/%d channels delivered", succeeded, len(job.DeliveryMethods)))
		log.Printf("[Dispatcher] job %s completed: %d/%d channels delivered",
			job.ID, succeeded, len(job.DeliveryMethods))
		return nil
	}

	if job.RetryCount >= domain.MaxRetries {
		reason := fmt.Sprintf("all %d channels failed after %d retries",
			len(job.DeliveryMethods), job.RetryCount)
		if err := d.jobs.MarkFailed(ctx, job.ID, reason); err != nil {
			return fmt.Errorf("fail job %s: %w", job.ID, err)
		}
		d.recordSummary(ctx, job, domain.EventFailed, reason)
		log.Printf("[Dispatcher] ALERT: job %s for user %s permanently failed: %s",
			job.ID, job.UserID, reason)
		return nil
	}

	next := d.now().Add(backoff(job.RetryCount))
	if err := d.jobs.Requeue(ctx, job.ID, next); err != nil {
		return fmt.Errorf("requeue job %s: %w", job.ID, err)
	}
	log.Printf("[Dispatcher] job %s requeued (retry %d/%d), next attempt %s",
		job.ID, job.RetryCount+1, domain.MaxRetries, next.Format(time.RFC3339))
	return nil
}

// attempt delivers the job over one channel under the per-channel timeout.
func (d *Dispatcher) attempt(ctx context.Context, job *domain.QueuedNotification, ch domain.Channel, email string) (domain.DeliveryOutcome, string) {
	attemptCtx, cancel := context.WithTimeout(ctx, d.channelTimeout)
	defer cancel()

	if ch == domain.ChannelInApp {
		err := d.inbox.Insert(attemptCtx, &domain.InAppNotification{
			UserID:  job.UserID,
			JobID:   &job.ID,
			Type:    job.Type,
			Title:   job.Title,
			Message: job.Message,
			Data:    job.Data,
		})
		if err != nil {
			return domain.OutcomeFailed, err.Error()
		}
		return domain.OutcomeDelivered, ""
	}

	adapter := d.registry.Get(ch)
	if adapter == nil {
		return domain.OutcomeFailed, "no adapter configured"
	}

	result, err := adapter.Send(attemptCtx, &channel.Message{
		UserID:   job.UserID,
		Email:    email,
		Title:    job.Title,
		Body:     job.Message,
		Metadata: job.Data,
	})
	if err != nil {
		return domain.OutcomeFailed, err.Error()
	}
	if !result.Success {
		return domain.OutcomeFailed, result.Detail
	}
	return domain.OutcomeDelivered, result.Detail
}

// recordOutcome persists the delivery attempt and its analytics event.
// Recording failures are logged, never propagated; bookkeeping must not fail
// a delivery that already happened.
func (d *Dispatcher) recordOutcome(ctx context.Context, job *domain.QueuedNotification, ch domain.Channel, outcome domain.DeliveryOutcome, detail string) {
	attempt := &domain.DeliveryAttempt{
		JobID:   job.ID,
		Channel: ch,
		Outcome: outcome,
	}
	if outcome == domain.OutcomeFailed {
		attempt.Error = detail
	}
	if err := d.jobs.RecordAttempt(ctx, attempt); err != nil {
		log.Printf("[Dispatcher] record attempt for job %s channel %s: %v", job.ID, ch, err)
	}

	eventType := domain.EventDelivered
	if outcome == domain.OutcomeFailed {
		eventType = domain.EventFailed
	}
	err := d.analytics.Record(ctx, &domain.AnalyticsEvent{
		UserID:           job.UserID,
		EventType:        eventType,
		DeliveryMethod:   ch,
		NotificationType: job.Type,
		Metadata:         map[string]interface{}{"job_id": job.ID.String()},
	})
	if err != nil {
		log.Printf("[Dispatcher] record analytics for job %s channel %s: %v", job.ID, ch, err)
	}
}

// recordSummary appends the one per-job settlement event that sits alongside
// the per-channel attempt events. Requeued jobs get no summary; they have not
// settled yet.
func (d *Dispatcher) recordSummary(ctx context.Context, job *domain.QueuedNotification, eventType domain.EventType, detail string) {
	err := d.analytics.Record(ctx, &domain.AnalyticsEvent{
		UserID:           job.UserID,
		EventType:        eventType,
		DeliveryMethod:   "",
		NotificationType: job.Type,
		Metadata: map[string]interface{}{
			"job_id":  job.ID.String(),
			"summary": detail,
		},
	})
	if err != nil {
		log.Printf("[Dispatcher] record summary for job %s: %v", job.ID, err)
	}
}

// backoff returns the requeue delay after the given number of prior retries:
// 1m, 2m, 4m, 8m, 16m.
func backoff(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	if retryCount > 10 {
		retryCount = 10
	}
	return time.Minute << uint(retryCount)
}
