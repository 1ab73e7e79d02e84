package events

import (
	"context"
	"time"

	"github.com/Tominouu/covoit/internal/domain"
)

// Event is a group-scoped change notification pushed to connected clients.
type Event struct {
	Type    string
	GroupID domain.GroupID
	Payload map[string]any
	At      time.Time
}

// Event types emitted by the application services.
const (
	TypeGroupCreated = "group_created"
	TypeMemberJoined = "member_joined"
	TypeRideCreated  = "ride_created"
)

// Publisher fans an event out to whoever is watching the group. Publishing is
// fire-and-forget: services never block on, or fail because of, delivery.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Nop discards all events. Used when no realtime transport is wired (tests,
// one-shot tooling).
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
