package pubsub

import (
	"context"
	"sync"
)

// MemoryBroker is a Broker for a single server process.
type MemoryBroker struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]chan Event
	closed bool
}

// NewMemoryBroker creates an empty MemoryBroker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[uint64]chan Event)}
}

// Publish delivers ev to every current subscriber of ev.GroupID without blocking.
func (b *MemoryBroker) Publish(_ context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[ev.GroupID] {
		offer(ch, ev)
	}
	return nil
}

// Subscribe registers a subscriber for groupID.
func (b *MemoryBroker) Subscribe(ctx context.Context, groupID string) (<-chan Event, error) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, nil
	}
	b.nextID++
	id := b.nextID
	if b.subs[groupID] == nil {
		b.subs[groupID] = make(map[uint64]chan Event)
	}
	b.subs[groupID][id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(groupID, id)
	}()
	return ch, nil
}

func (b *MemoryBroker) remove(groupID string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.subs[groupID][id]
	if !ok {
		return
	}
	delete(b.subs[groupID], id)
	if len(b.subs[groupID]) == 0 {
		delete(b.subs, groupID)
	}
	close(ch)
}

// Close ends every subscription.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, subs := range b.subs {
		for _, ch := range subs {
			close(ch)
		}
	}
	b.subs = make(map[string]map[uint64]chan Event)
	b.closed = true
	return nil
}
