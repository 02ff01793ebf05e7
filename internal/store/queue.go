package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/havenwell/notify-engine/internal/domain"
)

// QueueStore owns the notify_queue table. Jobs belong to the queue until the
// dispatcher claims them with an atomic status transition.
type QueueStore struct {
	db *sql.DB
}

func NewQueueStore(db *sql.DB) *QueueStore {
	return &QueueStore{db: db}
}

const queueColumns = `id, user_id, template_id, type, title, message, priority,
	delivery_methods, data, scheduled_for, status, retry_count, created_at`

// Enqueue inserts a new pending job.
func (s *QueueStore) Enqueue(ctx context.Context, job *domain.QueuedNotification) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = domain.JobPending
	}
	dataJSON, _ := json.Marshal(job.Data)
	methods := make([]string, len(job.DeliveryMethods))
	for i, m := range job.DeliveryMethods {
		methods[i] = string(m)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notify_queue
			(id, user_id, template_id, type, title, message, priority,
			 delivery_methods, data, scheduled_for, status, retry_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())`,
		job.ID, job.UserID, job.TemplateID, job.Type, job.Title, job.Message, job.Priority,
		pq.Array(methods), dataJSON, job.ScheduledFor, job.Status, job.RetryCount)
	return err
}

// Get loads a single job by id.
func (s *QueueStore) Get(ctx context.Context, id uuid.UUID) (*domain.QueuedNotification, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+queueColumns+` FROM notify_queue WHERE id = $1`, id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return job, err
}

// LoadDue returns pending jobs whose scheduled_for has passed, ordered by
// priority (high first) then age (oldest first).
func (s *QueueStore) LoadDue(ctx context.Context, now time.Time, limit int) ([]domain.QueuedNotification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+queueColumns+`
		FROM notify_queue
		WHERE status = 'pending' AND scheduled_for <= $1
		ORDER BY CASE priority WHEN 'high' THEN 2 WHEN 'medium' THEN 1 ELSE 0 END DESC,
		         created_at ASC
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.QueuedNotification
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			continue
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// Claim atomically transitions a job from pending to processing. Returns
// false when the job was already claimed, completed, or does not exist —
// this conditional UPDATE is the single serialization point that keeps two
// dispatchers off the same job.
func (s *QueueStore) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notify_queue
		SET status = 'processing', claimed_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// MarkCompleted marks a job completed after at least one channel succeeded.
func (s *QueueStore) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notify_queue SET status = 'completed', completed_at = NOW() WHERE id = $1`, id)
	return err
}

// MarkFailed permanently fails a job once retries are exhausted.
func (s *QueueStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notify_queue
		SET status = 'failed', error_message = $2, completed_at = NOW()
		WHERE id = $1`, id, reason)
	return err
}

// Requeue returns a processing job to pending with an incremented retry count
// and a backed-off schedule.
func (s *QueueStore) Requeue(ctx context.Context, id uuid.UUID, scheduledFor time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notify_queue
		SET status = 'pending', retry_count = retry_count + 1,
		    scheduled_for = $2, claimed_at = NULL
		WHERE id = $1 AND status = 'processing'`, id, scheduledFor)
	return err
}

// ResetStale returns jobs stuck in processing longer than staleAge back to
// pending so a crashed dispatcher cannot strand work. Returns the number of
// jobs reclaimed.
func (s *QueueStore) ResetStale(ctx context.Context, staleAge time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notify_queue
		SET status = 'pending', claimed_at = NULL
		WHERE status = 'processing' AND claimed_at < NOW() - $1::interval`,
		staleAge.String())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FailExhausted permanently fails pending jobs whose retry count already
// passed the limit. Covers a dispatcher crash between the last requeue and
// the failure it would have recorded. Returns the number of jobs failed.
func (s *QueueStore) FailExhausted(ctx context.Context, maxRetries int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notify_queue
		SET status = 'failed', error_message = 'retries exhausted', completed_at = NOW()
		WHERE status = 'pending' AND retry_count > $1`, maxRetries)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RecordAttempt appends a per-channel delivery attempt.
func (s *QueueStore) RecordAttempt(ctx context.Context, a *domain.DeliveryAttempt) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notify_delivery_attempts (id, job_id, channel, outcome, error_message, attempted_at)
		VALUES ($1, $2, $3, $4, $5, NOW())`,
		a.ID, a.JobID, a.Channel, a.Outcome, a.Error)
	return err
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(r rowScanner) (*domain.QueuedNotification, error) {
	var job domain.QueuedNotification
	var methods pq.StringArray
	var dataJSON []byte
	err := r.Scan(&job.ID, &job.UserID, &job.TemplateID, &job.Type, &job.Title,
		&job.Message, &job.Priority, &methods, &dataJSON, &job.ScheduledFor,
		&job.Status, &job.RetryCount, &job.CreatedAt)
	if err != nil {
		return nil, err
	}
	job.DeliveryMethods = make([]domain.Channel, len(methods))
	for i, m := range methods {
		job.DeliveryMethods[i] = domain.Channel(m)
	}
	if len(dataJSON) > 0 {
		json.Unmarshal(dataJSON, &job.Data)
	}
	return &job, nil
}
