// Package engine implements the notification pipeline: preference gating,
// template resolution, channel selection, enqueueing, and dispatch.
package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/havenwell/notify-engine/internal/domain"
)

// PreferenceSource loads user notification preferences.
type PreferenceSource interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.UserPreferences, error)
}

// TemplateSource loads active notification templates.
type TemplateSource interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.NotificationTemplate, error)
}

// Enqueuer accepts new delivery jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, job *domain.QueuedNotification) error
}

// EventRecorder appends analytics events.
type EventRecorder interface {
	Record(ctx context.Context, e *domain.AnalyticsEvent) error
}

// CrisisInspector examines every send request for crisis signals. It runs
// before preference gating so a blocked notification still surfaces a crisis.
type CrisisInspector interface {
	Inspect(ctx context.Context, req *domain.NotificationRequest)
}

// JobRunner dispatches one queued job immediately.
type JobRunner interface {
	ProcessJob(ctx context.Context, id uuid.UUID) error
}

// Engine accepts notification requests and turns them into queued delivery
// jobs. It never delivers directly; the dispatcher owns delivery.
type Engine struct {
	prefs     PreferenceSource
	templates TemplateSource
	queue     Enqueuer
	analytics EventRecorder
	resolver  *TemplateResolver

	// Set after construction to break the engine <-> crisis cycle.
	crisis CrisisInspector
	// Set when requests due immediately should dispatch inline instead of
	// waiting for the next queue scan.
	runner JobRunner

	now func() time.Time
}

func New(prefs PreferenceSource, templates TemplateSource, queue Enqueuer, analytics EventRecorder) *Engine {
	return &Engine{
		prefs:     prefs,
		templates: templates,
		queue:     queue,
		analytics: analytics,
		resolver:  NewTemplateResolver(),
		now:       time.Now,
	}
}

// SetCrisisInspector wires the crisis detector. The detector itself sends
// notifications through the engine, so it cannot be a constructor argument.
func (e *Engine) SetCrisisInspector(c CrisisInspector) { e.crisis = c }

// SetJobRunner enables inline dispatch of jobs that are due on arrival.
func (e *Engine) SetJobRunner(r JobRunner) { e.runner = r }

// SendNotification runs the full intake pipeline for one request. A request
// blocked by preferences returns (nil, nil) after recording a blocked event;
// only infrastructure failures return an error.
func (e *Engine) SendNotification(ctx context.Context, req *domain.NotificationRequest) (*domain.QueuedNotification, error) {
	if req.UserID == uuid.Nil {
		return nil, fmt.Errorf("notification request missing user id")
	}
	if req.Type == "" {
		req.Type = domain.TypeCustom
	}

	// Crisis inspection runs on every request, including ones preferences
	// will block. Detection for crisis alerts themselves is the detector's
	// concern; it skips them to avoid re-triggering on its own output.
	if e.crisis != nil {
		e.crisis.Inspect(ctx, req)
	}

	prefs, err := e.prefs.Get(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}

	if !prefs.AllowsType(req.Type) {
		e.recordBlocked(ctx, req, "type_opted_out")
		return nil, nil
	}

	title, message, priority := req.Title, req.Message, req.Priority
	if req.TemplateID != nil {
		// Template lookup is best-effort: a missing template or a store
		// failure falls back to the raw request fields rather than dropping
		// the notification.
		tpl, err := e.templates.Get(ctx, *req.TemplateID)
		if err != nil {
			log.Printf("[Engine] template %s unavailable (%v), using request fields", *req.TemplateID, err)
		} else {
			title, message = e.resolver.Resolve(tpl, req.Variables)
			if priority == "" {
				priority = tpl.Priority
			}
		}
	}
	if priority == "" {
		priority = domain.PriorityMedium
	}

	now := e.now()
	scheduledFor := now
	if req.ScheduledFor != nil && req.ScheduledFor.After(now) {
		scheduledFor = *req.ScheduledFor
	}

	// Quiet hours defer delivery rather than drop it. High priority cuts
	// through: a crisis alert at 3am must not wait for morning. The deferral
	// still counts as a quiet-hours block in analytics.
	if priority != domain.PriorityHigh && prefs.InQuietHours(scheduledFor) {
		scheduledFor = quietHoursEnd(prefs, scheduledFor)
		e.recordBlocked(ctx, req, "quiet_hours")
	}

	job := &domain.QueuedNotification{
		ID:              uuid.New(),
		UserID:          req.UserID,
		TemplateID:      req.TemplateID,
		Type:            req.Type,
		Title:           title,
		Message:         message,
		Priority:        priority,
		DeliveryMethods: SelectChannels(prefs, priority, req.DeliveryMethods),
		Data:            req.Data,
		ScheduledFor:    scheduledFor,
		Status:          domain.JobPending,
	}

	if err := e.queue.Enqueue(ctx, job); err != nil {
		e.recordFailed(ctx, req, err)
		return nil, fmt.Errorf("enqueue notification: %w", err)
	}

	if e.runner != nil && !scheduledFor.After(now) {
		if err := e.runner.ProcessJob(ctx, job.ID); err != nil {
			log.Printf("[Engine] inline dispatch of job %s failed: %v", job.ID, err)
		}
	}

	return job, nil
}

func (e *Engine) recordBlocked(ctx context.Context, req *domain.NotificationRequest, reason string) {
	err := e.analytics.Record(ctx, &domain.AnalyticsEvent{
		UserID:           req.UserID,
		EventType:        domain.EventBlocked,
		DeliveryMethod:   "",
		NotificationType: req.Type,
		Metadata:         map[string]interface{}{"reason": reason},
	})
	if err != nil {
		log.Printf("[Engine] failed to record blocked event for user %s: %v", req.UserID, err)
	}
}

// recordFailed accounts for a request that never reached the queue.
func (e *Engine) recordFailed(ctx context.Context, req *domain.NotificationRequest, cause error) {
	err := e.analytics.Record(ctx, &domain.AnalyticsEvent{
		UserID:           req.UserID,
		EventType:        domain.EventFailed,
		DeliveryMethod:   "",
		NotificationType: req.Type,
		Metadata:         map[string]interface{}{"error": cause.Error()},
	})
	if err != nil {
		log.Printf("[Engine] failed to record failed event for user %s: %v", req.UserID, err)
	}
}

// quietHoursEnd returns the next moment the user's quiet window closes at or
// after t. Returns t unchanged when the end bound fails to parse.
func quietHoursEnd(prefs *domain.UserPreferences, t time.Time) time.Time {
	if prefs.QuietHoursEnd == nil {
		return t
	}
	end, err := time.Parse("15:04", *prefs.QuietHoursEnd)
	if err != nil {
		return t
	}
	candidate := time.Date(t.Year(), t.Month(), t.Day(), end.Hour(), end.Minute(), 0, 0, t.Location())
	if candidate.Before(t) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}
