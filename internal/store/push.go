package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/havenwell/notify-engine/internal/domain"
)

// PushStore owns browser push subscriptions.
type PushStore struct {
	db *sql.DB
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

// ListForUser returns all push subscriptions registered for a user.
func (s *PushStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.PushSubscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, endpoint, p256dh_key, auth_key, created_at
		FROM notify_push_subscriptions WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.PushSubscription
	for rows.Next() {
		var sub domain.PushSubscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dhKey,
			&sub.AuthKey, &sub.CreatedAt); err != nil {
			continue
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Delete removes a subscription, used when the push service reports it gone.
func (s *PushStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notify_push_subscriptions WHERE id = $1`, id)
	return err
}
