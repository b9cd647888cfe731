// Package event describes the room change notifications pushed to clients.
// A notification only says which data went stale; clients re-read it.
package event

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type Topic string

const (
	TopicRoom         Topic = "room"
	TopicParticipants Topic = "participants"
	TopicCursors      Topic = "cursors"
	TopicChat         Topic = "chat"
	TopicSessions     Topic = "sessions"
)

type Invalidation struct {
	RoomID uuid.UUID `json:"room_id"`
	Topic  Topic     `json:"topic"`
}

// Notifier is implemented by whatever fans invalidations out to clients.
// Notify must not block on slow consumers.
type Notifier interface {
	Notify(ctx context.Context, inv Invalidation)
}

// Nop drops every notification.
type Nop struct{}

func (Nop) Notify(context.Context, Invalidation) {}

// Recorder keeps notifications in memory. Used by tests.
type Recorder struct {
	mu     sync.Mutex
	Events []Invalidation
}

func (r *Recorder) Notify(_ context.Context, inv Invalidation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, inv)
}

// Topics lists the recorded topics for one room in order.
func (r *Recorder) Topics(roomID uuid.UUID) []Topic {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Topic
	for _, e := range r.Events {
		if e.RoomID == roomID {
			out = append(out, e.Topic)
		}
	}
	return out
}
