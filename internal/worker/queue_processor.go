// Package worker holds the background loops: queue dispatch, stuck-job
// recovery, and timing profile rebuilds. Each worker follows the same shape:
// Start spawns the loop, Stop cancels and waits, a heartbeat row tracks
// liveness.
package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/havenwell/notify-engine/internal/config"
	"github.com/havenwell/notify-engine/internal/domain"
	"github.com/havenwell/notify-engine/internal/pkg/distlock"
)

// heartbeatInterval is how often workers refresh their liveness row.
const heartbeatInterval = 30 * time.Second

// JobLoader serves due jobs for a scan pass.
type JobLoader interface {
	LoadDue(ctx context.Context, now time.Time, limit int) ([]domain.QueuedNotification, error)
}

// JobRunner dispatches one job.
type JobRunner interface {
	ProcessJob(ctx context.Context, id uuid.UUID) error
}

// Registry tracks worker liveness.
type Registry interface {
	Register(ctx context.Context, workerID, workerType, hostname string) error
	Heartbeat(ctx context.Context, workerID string, processed, errors int64) error
	Deregister(ctx context.Context, workerID string) error
}

// QueueProcessor scans the queue on an interval and dispatches due jobs in
// concurrent batches. A distributed lock serializes scan passes across
// instances; job-level claims make overlap harmless anyway, the lock just
// avoids wasted work.
type QueueProcessor struct {
	loader   JobLoader
	runner   JobRunner
	registry Registry
	lock     distlock.DistLock

	workerID   string
	batchSize  int
	batchDelay time.Duration
	interval   time.Duration

	totalProcessed int64
	totalErrors    int64

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

func NewQueueProcessor(loader JobLoader, runner JobRunner, registry Registry, lock distlock.DistLock, cfg config.QueueConfig) *QueueProcessor {
	return &QueueProcessor{
		loader:     loader,
		runner:     runner,
		registry:   registry,
		lock:       lock,
		workerID:   fmt.Sprintf("queue-%s", uuid.New().String()[:8]),
		batchSize:  cfg.BatchSize,
		batchDelay: cfg.BatchDelay(),
		interval:   cfg.ScanInterval(),
	}
}

// Start begins the scan loop.
func (p *QueueProcessor) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.mu.Unlock()

	log.Printf("[QueueProcessor] Starting (interval=%s, batch_size=%d)", p.interval, p.batchSize)

	hostname, _ := os.Hostname()
	if err := p.registry.Register(p.ctx, p.workerID, "queue_processor", hostname); err != nil {
		log.Printf("[QueueProcessor] register: %v", err)
	}

	p.wg.Add(2)
	go p.loop()
	go p.heartbeatLoop()
}

// Stop cancels the loop and waits for the in-flight pass to finish.
func (p *QueueProcessor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.registry.Deregister(ctx, p.workerID); err != nil {
		log.Printf("[QueueProcessor] deregister: %v", err)
	}
	log.Printf("[QueueProcessor] Stopped. Processed: %d, errors: %d",
		atomic.LoadInt64(&p.totalProcessed), atomic.LoadInt64(&p.totalErrors))
}

// Stats returns the processor's counters.
func (p *QueueProcessor) Stats() map[string]int64 {
	return map[string]int64{
		"total_processed": atomic.LoadInt64(&p.totalProcessed),
		"total_errors":    atomic.LoadInt64(&p.totalErrors),
	}
}

func (p *QueueProcessor) loop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Run one pass immediately so a restart doesn't wait a full interval.
	p.runPass()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.runPass()
		}
	}
}

// runPass executes one scan under the distributed lock.
func (p *QueueProcessor) runPass() {
	acquired, err := p.lock.Acquire(p.ctx)
	if err != nil {
		log.Printf("[QueueProcessor] acquire scan lock: %v", err)
		return
	}
	if !acquired {
		// Another instance is scanning.
		return
	}
	defer func() {
		if err := p.lock.Release(p.ctx); err != nil {
			log.Printf("[QueueProcessor] release scan lock: %v", err)
		}
	}()

	jobs, err := p.loader.LoadDue(p.ctx, time.Now(), p.batchSize*10)
	if err != nil {
		log.Printf("[QueueProcessor] load due jobs: %v", err)
		return
	}
	if len(jobs) == 0 {
		return
	}
	log.Printf("[QueueProcessor] dispatching %d due jobs", len(jobs))

	for start := 0; start < len(jobs); start += p.batchSize {
		if p.ctx.Err() != nil {
			return
		}
		end := start + p.batchSize
		if end > len(jobs) {
			end = len(jobs)
		}
		p.dispatchBatch(jobs[start:end])

		if end < len(jobs) {
			select {
			case <-p.ctx.Done():
				return
			case <-time.After(p.batchDelay):
			}
		}
	}
}

// dispatchBatch processes one batch concurrently and waits for it to drain.
func (p *QueueProcessor) dispatchBatch(batch []domain.QueuedNotification) {
	var wg sync.WaitGroup
	for _, job := range batch {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			if err := p.runner.ProcessJob(p.ctx, id); err != nil {
				atomic.AddInt64(&p.totalErrors, 1)
				log.Printf("[QueueProcessor] job %s: %v", id, err)
				return
			}
			atomic.AddInt64(&p.totalProcessed, 1)
		}(job.ID)
	}
	wg.Wait()
}

func (p *QueueProcessor) heartbeatLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			err := p.registry.Heartbeat(p.ctx, p.workerID,
				atomic.LoadInt64(&p.totalProcessed), atomic.LoadInt64(&p.totalErrors))
			if err != nil {
				log.Printf("[QueueProcessor] heartbeat: %v", err)
			}
		}
	}
}
