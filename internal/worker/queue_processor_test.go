package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/havenwell/notify-engine/internal/config"
	"github.com/havenwell/notify-engine/internal/domain"
	"github.com/havenwell/notify-engine/internal/pkg/distlock"
)

type fakeLoader struct {
	mu   sync.Mutex
	jobs []domain.QueuedNotification
}

func (f *fakeLoader) LoadDue(ctx context.Context, now time.Time, limit int) ([]domain.QueuedNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	jobs := f.jobs
	f.jobs = nil // drained after the first pass
	return jobs, nil
}

type fakeJobRunner struct {
	mu  sync.Mutex
	ran []uuid.UUID
}

func (f *fakeJobRunner) ProcessJob(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ran = append(f.ran, id)
	return nil
}

func (f *fakeJobRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ran)
}

type fakeRegistry struct {
	mu         sync.Mutex
	registered bool
	stopped    bool
}

func (f *fakeRegistry) Register(ctx context.Context, workerID, workerType, hostname string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = true
	return nil
}

func (f *fakeRegistry) Heartbeat(ctx context.Context, workerID string, processed, errors int64) error {
	return nil
}

func (f *fakeRegistry) Deregister(ctx context.Context, workerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func TestQueueProcessor_DispatchesDueJobs(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	loader := &fakeLoader{jobs: []domain.QueuedNotification{
		{ID: uuid.New()}, {ID: uuid.New()}, {ID: uuid.New()},
	}}
	runner := &fakeJobRunner{}
	registry := &fakeRegistry{}
	lock := distlock.NewRedisLock(client, "test-scan", time.Minute)

	cfg := config.QueueConfig{
		ScanIntervalSeconds: 60, // only the immediate pass runs in this test
		BatchSize:           2,
		BatchDelayMillis:    1,
	}
	p := NewQueueProcessor(loader, runner, registry, lock, cfg)
	p.Start()

	deadline := time.Now().Add(2 * time.Second)
	for runner.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	p.Stop()

	if got := runner.count(); got != 3 {
		t.Errorf("dispatched jobs = %d, want 3", got)
	}
	if !registry.registered {
		t.Error("processor should register itself")
	}
	if !registry.stopped {
		t.Error("processor should deregister on stop")
	}
	if stats := p.Stats(); stats["total_processed"] != 3 {
		t.Errorf("total_processed = %d, want 3", stats["total_processed"])
	}
}

func TestQueueProcessor_StartStopIdempotent(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	p := NewQueueProcessor(&fakeLoader{}, &fakeJobRunner{}, &fakeRegistry{},
		distlock.NewRedisLock(client, "test-scan-2", time.Minute),
		config.QueueConfig{ScanIntervalSeconds: 60, BatchSize: 1, BatchDelayMillis: 1})

	p.Start()
	p.Start() // second start is a no-op
	p.Stop()
	p.Stop() // second stop is a no-op
}
