package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/havenwell/notify-engine/internal/domain"
)

// InAppStore owns the in-app notification inbox. The dispatcher writes rows
// here directly for the in_app channel; the API serves and marks them read.
type InAppStore struct {
	db *sql.DB
}

func NewInAppStore(db *sql.DB) *InAppStore {
	return &InAppStore{db: db}
}

// Insert writes one in-app notification.
func (s *InAppStore) Insert(ctx context.Context, n *domain.InAppNotification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	dataJSON, _ := json.Marshal(n.Data)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notify_inapp (id, user_id, job_id, type, title, message, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
		n.ID, n.UserID, n.JobID, n.Type, n.Title, n.Message, dataJSON)
	return err
}

// ListForUser returns a user's notifications, newest first.
func (s *InAppStore) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.InAppNotification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, job_id, type, title, message, data, read_at, created_at
		FROM notify_inapp WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.InAppNotification
	for rows.Next() {
		var n domain.InAppNotification
		var dataJSON []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.JobID, &n.Type, &n.Title,
			&n.Message, &dataJSON, &n.ReadAt, &n.CreatedAt); err != nil {
			continue
		}
		if len(dataJSON) > 0 {
			json.Unmarshal(dataJSON, &n.Data)
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

// MarkRead sets read_at on one notification. Returns ErrNotFound when the
// notification does not belong to the user.
func (s *InAppStore) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notify_inapp SET read_at = NOW()
		WHERE id = $1 AND user_id = $2 AND read_at IS NULL`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
