// Package store provides Postgres data access for the notification engine.
//
// Every store is a thin struct over *sql.DB using raw SQL. Queries that feed
// the dispatcher use FOR UPDATE SKIP LOCKED / conditional UPDATE claims so
// multiple worker processes can share one database safely.
package store

import (
	"database/sql"
	"errors"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Stores bundles every store over a single connection pool.
type Stores struct {
	Preferences *PreferenceStore
	Queue       *QueueStore
	Templates   *TemplateStore
	Analytics   *AnalyticsStore
	InApp       *InAppStore
	Campaigns   *CampaignStore
	Crisis      *CrisisStore
	Users       *UserStore
	Workers     *WorkerStore
	Push        *PushStore
}

// New creates all stores over the given database handle.
func New(db *sql.DB) *Stores {
	return &Stores{
		Preferences: NewPreferenceStore(db),
		Queue:       NewQueueStore(db),
		Templates:   NewTemplateStore(db),
		Analytics:   NewAnalyticsStore(db),
		InApp:       NewInAppStore(db),
		Campaigns:   NewCampaignStore(db),
		Crisis:      NewCrisisStore(db),
		Users:       NewUserStore(db),
		Workers:     NewWorkerStore(db),
		Push:        NewPushStore(db),
	}
}
