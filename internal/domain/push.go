package domain

import (
	"time"

	"github.com/google/uuid"
)

// PushSubscription is a browser push endpoint registered by the client app.
type PushSubscription struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Endpoint  string    `json:"endpoint" db:"endpoint"`
	P256dhKey string    `json:"p256dh_key" db:"p256dh_key"`
	AuthKey   string    `json:"auth_key" db:"auth_key"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
