package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the read-only slice of the application user record the engine
// needs: identity plus the fields campaign audience filters match on.
type User struct {
	ID               uuid.UUID `json:"id" db:"id"`
	Email            string    `json:"email" db:"email"`
	SubscriptionPlan string    `json:"subscription_plan" db:"subscription_plan"`
	JoinedAt         time.Time `json:"joined_at" db:"joined_at"`
}
