package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationTemplate is a reusable title/message pair with declared
// substitution variables. Read-only from the engine's perspective.
type NotificationTemplate struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Title     string    `json:"title" db:"title"`
	Message   string    `json:"message" db:"message"`
	Variables []string  `json:"variables" db:"variables"`
	Priority  Priority  `json:"priority" db:"priority"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
