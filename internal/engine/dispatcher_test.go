package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/havenwell/notify-engine/internal/channel"
	"github.com/havenwell/notify-engine/internal/domain"
	"github.com/havenwell/notify-engine/internal/store"
)

type fakeJobStore struct {
	job       *domain.QueuedNotification
	claimOK   bool
	completed []uuid.UUID
	failed    map[uuid.UUID]string
	requeued  map[uuid.UUID]time.Time
	attempts  []*domain.DeliveryAttempt
}

func newFakeJobStore(job *domain.QueuedNotification) *fakeJobStore {
	return &fakeJobStore{
		job:      job,
		claimOK:  true,
		failed:   make(map[uuid.UUID]string),
		requeued: make(map[uuid.UUID]time.Time),
	}
}

func (f *fakeJobStore) Get(ctx context.Context, id uuid.UUID) (*domain.QueuedNotification, error) {
	if f.job == nil || f.job.ID != id {
		return nil, store.ErrNotFound
	}
	return f.job, nil
}

func (f *fakeJobStore) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	return f.claimOK, nil
}

func (f *fakeJobStore) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeJobStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	f.failed[id] = reason
	return nil
}

func (f *fakeJobStore) Requeue(ctx context.Context, id uuid.UUID, scheduledFor time.Time) error {
	f.requeued[id] = scheduledFor
	return nil
}

func (f *fakeJobStore) RecordAttempt(ctx context.Context, a *domain.DeliveryAttempt) error {
	f.attempts = append(f.attempts, a)
	return nil
}

type fakeUsers struct {
	user *domain.User
}

func (f *fakeUsers) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if f.user == nil {
		return nil, store.ErrNotFound
	}
	return f.user, nil
}

type fakeInbox struct {
	inserted []*domain.InAppNotification
	err      error
}

func (f *fakeInbox) Insert(ctx context.Context, n *domain.InAppNotification) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, n)
	return nil
}

type fakeAdapter struct {
	ch      domain.Channel
	success bool
	err     error
	sent    []*channel.Message
}

func (f *fakeAdapter) Channel() domain.Channel { return f.ch }

func (f *fakeAdapter) Send(ctx context.Context, msg *channel.Message) (*channel.SendResult, error) {
	f.sent = append(f.sent, msg)
	if f.err != nil {
		return nil, f.err
	}
	return &channel.SendResult{Success: f.success, SentAt: time.Now()}, nil
}

func testJob(channels ...domain.Channel) *domain.QueuedNotification {
	return &domain.QueuedNotification{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		Type:            domain.TypeMilestoneAchieved,
		Title:           "Milestone",
		Message:         "You did it",
		Priority:        domain.PriorityMedium,
		DeliveryMethods: channels,
		ScheduledFor:    time.Now(),
		Status:          domain.JobPending,
	}
}

func TestProcessJob_PartialSuccessCompletes(t *testing.T) {
	job := testJob(domain.ChannelInApp, domain.ChannelEmail)
	jobs := newFakeJobStore(job)
	inbox := &fakeInbox{}
	email := &fakeAdapter{ch: domain.ChannelEmail, success: false}
	analytics := &fakeAnalytics{}

	d := NewDispatcher(jobs, &fakeUsers{user: &domain.User{ID: job.UserID, Email: "sam@example.com"}},
		inbox, channel.NewRegistry(email), analytics, time.Second)

	if err := d.ProcessJob(context.Background(), job.ID); err != nil {
		t.Fatalf("ProcessJob() error: %v", err)
	}

	if len(jobs.completed) != 1 {
		t.Fatal("job with one delivered channel should complete")
	}
	if len(jobs.requeued) != 0 || len(jobs.failed) != 0 {
		t.Error("partially delivered job must not requeue or fail")
	}
	if len(inbox.inserted) != 1 {
		t.Error("in_app channel should write the inbox")
	}

	if len(jobs.attempts) != 2 {
		t.Fatalf("expected 2 delivery attempts, got %d", len(jobs.attempts))
	}
	outcomes := map[domain.Channel]domain.DeliveryOutcome{}
	for _, a := range jobs.attempts {
		outcomes[a.Channel] = a.Outcome
	}
	if outcomes[domain.ChannelInApp] != domain.OutcomeDelivered {
		t.Error("in_app attempt should be delivered")
	}
	if outcomes[domain.ChannelEmail] != domain.OutcomeFailed {
		t.Error("email attempt should be failed")
	}

	// Two per-channel events plus the per-job completion summary.
	if len(analytics.events) != 3 {
		t.Fatalf("expected 3 analytics events, got %d", len(analytics.events))
	}
	summary := analytics.events[2]
	if summary.EventType != domain.EventCompleted {
		t.Errorf("summary event type = %s, want completed", summary.EventType)
	}
	if summary.DeliveryMethod != "" {
		t.Errorf("summary event delivery method = %q, want empty", summary.DeliveryMethod)
	}
}

func TestProcessJob_TotalFailureRequeuesWithBackoff(t *testing.T) {
	job := testJob(domain.ChannelEmail)
	job.RetryCount = 2
	jobs := newFakeJobStore(job)
	email := &fakeAdapter{ch: domain.ChannelEmail, err: errors.New("ses unavailable")}

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	d := NewDispatcher(jobs, &fakeUsers{user: &domain.User{ID: job.UserID, Email: "sam@example.com"}},
		&fakeInbox{}, channel.NewRegistry(email), &fakeAnalytics{}, time.Second)
	d.now = func() time.Time { return now }

	if err := d.ProcessJob(context.Background(), job.ID); err != nil {
		t.Fatalf("ProcessJob() error: %v", err)
	}

	next, ok := jobs.requeued[job.ID]
	if !ok {
		t.Fatal("fully failed job under the retry limit should requeue")
	}
	// Third retry backs off 4 minutes.
	want := now.Add(4 * time.Minute)
	if !next.Equal(want) {
		t.Errorf("requeue time = %s, want %s", next, want)
	}
	if len(jobs.completed) != 0 || len(jobs.failed) != 0 {
		t.Error("requeued job must not complete or fail")
	}
}

func TestProcessJob_RetriesExhaustedFailsPermanently(t *testing.T) {
	job := testJob(domain.ChannelEmail)
	job.RetryCount = domain.MaxRetries
	jobs := newFakeJobStore(job)
	email := &fakeAdapter{ch: domain.ChannelEmail, success: false}
	analytics := &fakeAnalytics{}

	d := NewDispatcher(jobs, &fakeUsers{user: &domain.User{ID: job.UserID}},
		&fakeInbox{}, channel.NewRegistry(email), analytics, time.Second)

	if err := d.ProcessJob(context.Background(), job.ID); err != nil {
		t.Fatalf("ProcessJob() error: %v", err)
	}
	if _, ok := jobs.failed[job.ID]; !ok {
		t.Fatal("job at the retry limit should permanently fail")
	}
	if len(jobs.requeued) != 0 {
		t.Error("exhausted job must not requeue")
	}

	// One per-channel failure event plus the per-job failure summary.
	if len(analytics.events) != 2 {
		t.Fatalf("expected 2 analytics events, got %d", len(analytics.events))
	}
	if analytics.events[1].EventType != domain.EventFailed || analytics.events[1].DeliveryMethod != "" {
		t.Error("settling a failed job should append a job-level failed event")
	}
}

func TestProcessJob_LostClaimIsNoOp(t *testing.T) {
	job := testJob(domain.ChannelInApp)
	jobs := newFakeJobStore(job)
	jobs.claimOK = false
	inbox := &fakeInbox{}

	d := NewDispatcher(jobs, &fakeUsers{}, inbox, channel.NewRegistry(), &fakeAnalytics{}, time.Second)

	if err := d.ProcessJob(context.Background(), job.ID); err != nil {
		t.Fatalf("ProcessJob() error: %v", err)
	}
	if len(inbox.inserted) != 0 || len(jobs.attempts) != 0 {
		t.Error("losing the claim must skip all delivery")
	}
}

func TestProcessJob_AlreadySettledIsNoOp(t *testing.T) {
	job := testJob(domain.ChannelInApp)
	job.Status = domain.JobCompleted
	jobs := newFakeJobStore(job)

	d := NewDispatcher(jobs, &fakeUsers{}, &fakeInbox{}, channel.NewRegistry(), &fakeAnalytics{}, time.Second)

	if err := d.ProcessJob(context.Background(), job.ID); err != nil {
		t.Fatalf("ProcessJob() error: %v", err)
	}
	if len(jobs.attempts) != 0 {
		t.Error("settled job must not be re-attempted")
	}
}

func TestProcessJob_UnconfiguredChannelFails(t *testing.T) {
	job := testJob(domain.ChannelDiscord)
	jobs := newFakeJobStore(job)

	d := NewDispatcher(jobs, &fakeUsers{}, &fakeInbox{}, channel.NewRegistry(), &fakeAnalytics{}, time.Second)

	if err := d.ProcessJob(context.Background(), job.ID); err != nil {
		t.Fatalf("ProcessJob() error: %v", err)
	}
	if len(jobs.attempts) != 1 || jobs.attempts[0].Outcome != domain.OutcomeFailed {
		t.Fatal("missing adapter should record a failed attempt")
	}
	if jobs.attempts[0].Error != "no adapter configured" {
		t.Errorf("attempt error = %q", jobs.attempts[0].Error)
	}
}
