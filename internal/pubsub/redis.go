package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "meshimatch:group:"

// RedisBroker is a Broker over Redis pub/sub, one channel per group.
type RedisBroker struct {
	client redis.UniversalClient
	log    *slog.Logger
}

// NewRedisBroker creates a broker on client.
func NewRedisBroker(client redis.UniversalClient) *RedisBroker {
	return &RedisBroker{client: client, log: slog.Default()}
}

func channel(groupID string) string {
	return channelPrefix + groupID
}

// Publish sends ev to the group's channel.
func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := b.client.Publish(ctx, channel(ev.GroupID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish event for group %s: %w", ev.GroupID, err)
	}
	return nil
}

// Subscribe listens on the group's channel. The subscription is confirmed by Redis
// before Subscribe returns.
func (b *RedisBroker) Subscribe(ctx context.Context, groupID string) (<-chan Event, error) {
	ps := b.client.Subscribe(ctx, channel(groupID))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to group %s: %w", groupID, err)
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.log.Warn("Dropping malformed group event", "channel", msg.Channel, "error", err)
					continue
				}
				offer(out, ev)
			}
		}
	}()
	return out, nil
}

// Close closes the Redis client.
func (b *RedisBroker) Close() error {
	return b.client.Close()
}
