package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/havenwell/notify-engine/internal/domain"
)

// UserStore is the read-only eligibility source. The users table belongs to
// the surrounding application; the engine only queries it to resolve
// campaign audiences.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// Get loads one user.
func (s *UserStore) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, subscription_plan, joined_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.SubscriptionPlan, &u.JoinedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ResolveAudience returns the ids of users matching the audience filter.
// Filters combine with AND; zero-value fields are skipped.
func (s *UserStore) ResolveAudience(ctx context.Context, a domain.TargetAudience) ([]uuid.UUID, error) {
	var (
		clauses []string
		args    []interface{}
	)
	if a.SubscriptionPlan != "" {
		args = append(args, a.SubscriptionPlan)
		clauses = append(clauses, "subscription_plan = $"+strconv.Itoa(len(args)))
	}
	if a.JoinedAfter != nil {
		args = append(args, *a.JoinedAfter)
		clauses = append(clauses, "joined_at >= $"+strconv.Itoa(len(args)))
	}
	if a.JoinedBefore != nil {
		args = append(args, *a.JoinedBefore)
		clauses = append(clauses, "joined_at <= $"+strconv.Itoa(len(args)))
	}

	query := `SELECT id FROM users`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
