package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/havenwell/notify-engine/internal/domain"
)

const (
	// DefaultRecoveryInterval is how often the recovery sweep runs.
	DefaultRecoveryInterval = 2 * time.Minute

	// DefaultStaleAge is how long a job may sit in processing before it is
	// considered orphaned by a crashed dispatcher.
	DefaultStaleAge = 5 * time.Minute
)

// RecoverableQueue is the queue surface the recovery sweep needs.
type RecoverableQueue interface {
	ResetStale(ctx context.Context, staleAge time.Duration) (int64, error)
	FailExhausted(ctx context.Context, maxRetries int) (int64, error)
}

// QueueRecovery periodically returns orphaned processing jobs to pending and
// permanently fails jobs whose retries ran out while no dispatcher was alive
// to say so.
type QueueRecovery struct {
	queue    RecoverableQueue
	interval time.Duration
	staleAge time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

func NewQueueRecovery(queue RecoverableQueue, interval, staleAge time.Duration) *QueueRecovery {
	if interval <= 0 {
		interval = DefaultRecoveryInterval
	}
	if staleAge <= 0 {
		staleAge = DefaultStaleAge
	}
	return &QueueRecovery{queue: queue, interval: interval, staleAge: staleAge}
}

// Start begins the recovery loop.
func (r *QueueRecovery) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.mu.Unlock()

	log.Printf("[QueueRecovery] Starting (interval=%s, stale_age=%s, max_retries=%d)",
		r.interval, r.staleAge, domain.MaxRetries)

	r.wg.Add(1)
	go r.loop()
}

// Stop cancels the loop and waits for the in-flight sweep.
func (r *QueueRecovery) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	r.wg.Wait()
	log.Println("[QueueRecovery] Stopped")
}

func (r *QueueRecovery) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

// sweep runs both recovery passes.
func (r *QueueRecovery) sweep() {
	ctx, cancel := context.WithTimeout(r.ctx, 30*time.Second)
	defer cancel()

	if n, err := r.queue.ResetStale(ctx, r.staleAge); err != nil {
		log.Printf("[QueueRecovery] reset stale jobs: %v", err)
	} else if n > 0 {
		log.Printf("[QueueRecovery] reclaimed %d stuck jobs", n)
	}

	if n, err := r.queue.FailExhausted(ctx, domain.MaxRetries); err != nil {
		log.Printf("[QueueRecovery] fail exhausted jobs: %v", err)
	} else if n > 0 {
		log.Printf("[QueueRecovery] ALERT: permanently failed %d jobs with exhausted retries", n)
	}
}
