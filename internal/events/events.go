// Package events defines the domain events raised by HR use cases after they
// commit. Events are immutable values; every variant embeds Base.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"hrdms/pkg/requestcontext"
)

// Name identifies an event variant on the bus and on the wire.
type Name string

func (n Name) String() string { return string(n) }

// Event is the tagged union of all domain events.
type Event interface {
	EventName() Name
	EventID() string
	// Actor is the user who performed the action, or "" when unknown.
	Actor() string
}

// Base carries the envelope fields shared by every event.
type Base struct {
	ID         string    `json:"event_id"`
	ActorID    string    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (b Base) EventID() string { return b.ID }
func (b Base) Actor() string   { return b.ActorID }

// NewBase stamps a fresh event id and takes the actor and time from the
// request context.
func NewBase(ctx context.Context) Base {
	return Base{
		ID:         uuid.NewString(),
		ActorID:    requestcontext.UserID(ctx),
		OccurredAt: requestcontext.Now(ctx).UTC(),
	}
}

// Status values carried by activation events.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)
