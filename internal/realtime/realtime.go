// Package realtime carries the remote store's change feed: every mutation on
// the synced backend publishes an event other devices subscribe to. The local
// store never publishes; it has no peers.
package realtime

import (
	"context"
	"time"
)

const (
	EntityProduct = "product"
	EntityReceipt = "receipt"
)

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

type Event struct {
	Entity string    `json:"entity"`
	Action string    `json:"action"`
	ID     string    `json:"id"`
	At     time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type Subscriber interface {
	// Subscribe delivers remote change events until ctx is cancelled.
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// NoopPublisher is used when no feed backend is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, _ Event) error {
	return nil
}
