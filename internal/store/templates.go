package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/havenwell/notify-engine/internal/domain"
)

// TemplateStore reads notification templates. Template authoring happens in
// the surrounding application; the engine only looks templates up.
type TemplateStore struct {
	db *sql.DB
}

func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

// Get loads an active template by id. Inactive and missing templates both
// return ErrNotFound so callers fall back to raw request fields either way.
func (s *TemplateStore) Get(ctx context.Context, id uuid.UUID) (*domain.NotificationTemplate, error) {
	var t domain.NotificationTemplate
	var vars pq.StringArray
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, title, message, variables, priority, is_active, created_at
		FROM notify_templates WHERE id = $1 AND is_active = TRUE`, id,
	).Scan(&t.ID, &t.Name, &t.Title, &t.Message, &vars, &t.Priority, &t.IsActive, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Variables = []string(vars)
	return &t, nil
}
