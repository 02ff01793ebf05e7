package worker

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/havenwell/notify-engine/internal/domain"
)

// ActiveUserSource lists the users whose profiles are worth rebuilding.
type ActiveUserSource interface {
	ActiveUsersSince(ctx context.Context, since time.Time) ([]uuid.UUID, error)
}

// TimingCalculator recomputes one user's timing profile. Implemented by the
// timing service.
type TimingCalculator interface {
	CalculateOptimalTiming(ctx context.Context, userID uuid.UUID) (*domain.TimingProfile, error)
}

// TimingBuilder periodically rebuilds timing profiles for every user active
// inside the lookback window. Users with no recent events keep their last
// profile untouched.
type TimingBuilder struct {
	users    ActiveUserSource
	calc     TimingCalculator
	interval time.Duration
	lookback time.Duration

	totalBuilt  int64
	totalErrors int64

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

func NewTimingBuilder(users ActiveUserSource, calc TimingCalculator, interval, lookback time.Duration) *TimingBuilder {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if lookback <= 0 {
		lookback = 30 * 24 * time.Hour
	}
	return &TimingBuilder{users: users, calc: calc, interval: interval, lookback: lookback}
}

// Start begins the rebuild loop.
func (b *TimingBuilder) Start() {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return
	}
	b.running = true
	b.ctx, b.cancel = context.WithCancel(context.Background())
	b.mu.Unlock()

	log.Printf("[TimingBuilder] Starting (interval=%s, lookback=%s)", b.interval, b.lookback)

	b.wg.Add(1)
	go b.loop()
}

// Stop cancels the loop and waits for the in-flight rebuild.
func (b *TimingBuilder) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	b.cancel()
	b.mu.Unlock()

	b.wg.Wait()
	log.Printf("[TimingBuilder] Stopped. Profiles built: %d, errors: %d",
		atomic.LoadInt64(&b.totalBuilt), atomic.LoadInt64(&b.totalErrors))
}

func (b *TimingBuilder) loop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			b.rebuild()
		}
	}
}

// rebuild recomputes profiles for every recently active user.
func (b *TimingBuilder) rebuild() {
	since := time.Now().Add(-b.lookback)
	userIDs, err := b.users.ActiveUsersSince(b.ctx, since)
	if err != nil {
		log.Printf("[TimingBuilder] list active users: %v", err)
		return
	}
	if len(userIDs) == 0 {
		return
	}
	log.Printf("[TimingBuilder] rebuilding %d timing profiles", len(userIDs))

	for _, userID := range userIDs {
		if b.ctx.Err() != nil {
			return
		}
		if _, err := b.calc.CalculateOptimalTiming(b.ctx, userID); err != nil {
			atomic.AddInt64(&b.totalErrors, 1)
			log.Printf("[TimingBuilder] rebuild profile for user %s: %v", userID, err)
			continue
		}
		atomic.AddInt64(&b.totalBuilt, 1)
	}
}
