// Package pubsub fans group snapshots out to WatchGroup streams, in process or
// across server instances through Redis.
package pubsub

import (
	"context"

	"github.com/mmynk/meshimatch/internal/models"
)

// Event is one change to a group: a fresh snapshot, or its deletion.
type Event struct {
	GroupID string        `json:"groupId"`
	Group   *models.Group `json:"group,omitempty"`
	Deleted bool          `json:"deleted,omitempty"`
}

// Broker publishes group events to subscribers of that group.
type Broker interface {
	Publish(ctx context.Context, ev Event) error

	// Subscribe delivers events for groupID until ctx is done, then closes the
	// channel. Events published before Subscribe returns are not delivered.
	Subscribe(ctx context.Context, groupID string) (<-chan Event, error)

	Close() error
}

// subscriberBuffer is the number of undelivered events held per subscriber.
// A subscriber that falls further behind loses its oldest events; every event
// carries a full snapshot, so only the newest one matters.
const subscriberBuffer = 16

// offer delivers ev to ch, dropping the oldest buffered event if ch is full.
func offer(ch chan Event, ev Event) {
	for {
		select {
		case ch <- ev:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
