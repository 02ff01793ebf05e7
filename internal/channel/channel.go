// Package channel implements delivery transport adapters. The dispatcher
// treats every adapter identically: one Send per (job, channel) attempt with
// an enforced timeout.
package channel

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/havenwell/notify-engine/internal/domain"
)

// Message is the channel-agnostic payload handed to an adapter.
type Message struct {
	UserID   uuid.UUID
	Email    string // recipient address, resolved by the dispatcher
	Title    string
	Body     string
	Metadata map[string]interface{}
}

// SendResult is the outcome of one adapter attempt.
type SendResult struct {
	Success bool
	Detail  string // provider message id or failure detail
	SentAt  time.Time
}

// Adapter sends a message over one transport.
type Adapter interface {
	Channel() domain.Channel
	Send(ctx context.Context, msg *Message) (*SendResult, error)
}

// Registry maps channels to their configured adapters. Channels without an
// adapter fail delivery attempts; they never panic the dispatcher.
type Registry struct {
	adapters map[domain.Channel]Adapter
}

// NewRegistry builds a registry from the given adapters. Nil entries are
// skipped so callers can pass conditionally-constructed adapters directly.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[domain.Channel]Adapter)}
	for _, a := range adapters {
		if a != nil {
			r.adapters[a.Channel()] = a
		}
	}
	return r
}

// Get returns the adapter for a channel, or nil when none is configured.
func (r *Registry) Get(c domain.Channel) Adapter {
	return r.adapters[c]
}
