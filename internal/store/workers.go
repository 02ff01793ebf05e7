package store

import (
	"context"
	"database/sql"
)

// WorkerStore tracks worker process liveness for operational visibility.
type WorkerStore struct {
	db *sql.DB
}

func NewWorkerStore(db *sql.DB) *WorkerStore {
	return &WorkerStore{db: db}
}

// Register upserts a worker row as running.
func (s *WorkerStore) Register(ctx context.Context, workerID, workerType, hostname string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notify_workers (id, worker_type, hostname, status, started_at, last_heartbeat_at)
		VALUES ($1, $2, $3, 'running', NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			status = 'running',
			started_at = NOW(),
			last_heartbeat_at = NOW()`,
		workerID, workerType, hostname)
	return err
}

// Heartbeat refreshes a worker's liveness timestamp and counters.
func (s *WorkerStore) Heartbeat(ctx context.Context, workerID string, processed, errors int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notify_workers
		SET last_heartbeat_at = NOW(), total_processed = $2, total_errors = $3
		WHERE id = $1`, workerID, processed, errors)
	return err
}

// Deregister marks a worker stopped.
func (s *WorkerStore) Deregister(ctx context.Context, workerID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notify_workers SET status = 'stopped' WHERE id = $1`, workerID)
	return err
}
