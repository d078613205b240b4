package realtime

import (
	"context"
	"errors"
	"sync"
)

// ErrBrokerClosed is returned when using a closed broker.
var ErrBrokerClosed = errors.New("realtime: broker closed")

type memorySubscriber struct {
	ch     chan Event
	topics []string
}

// MemoryBroker delivers events within a single process.
type MemoryBroker struct {
	mu     sync.Mutex
	closed bool
	topics map[string]map[*memorySubscriber]struct{}
}

// NewMemoryBroker creates an in-process broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{topics: make(map[string]map[*memorySubscriber]struct{})}
}

// Publish delivers event to current subscribers of its topic without blocking.
func (b *MemoryBroker) Publish(_ context.Context, event Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBrokerClosed
	}
	for sub := range b.topics[event.Topic] {
		select {
		case sub.ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber for topics.
func (b *MemoryBroker) Subscribe(ctx context.Context, topics ...string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBrokerClosed
	}
	sub := &memorySubscriber{ch: make(chan Event, subscriberBuffer), topics: topics}
	for _, topic := range topics {
		set, ok := b.topics[topic]
		if !ok {
			set = make(map[*memorySubscriber]struct{})
			b.topics[topic] = set
		}
		set[sub] = struct{}{}
	}
	s := newSubscription(sub.ch, func() { b.remove(sub) })
	closeOnCancel(ctx, s)
	return s, nil
}

func (b *MemoryBroker) remove(sub *memorySubscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, topic := range sub.topics {
		set := b.topics[topic]
		delete(set, sub)
		if len(set) == 0 {
			delete(b.topics, topic)
		}
	}
	close(sub.ch)
}

// Close ends every subscription.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	seen := make(map[*memorySubscriber]struct{})
	for _, set := range b.topics {
		for sub := range set {
			if _, ok := seen[sub]; ok {
				continue
			}
			seen[sub] = struct{}{}
			close(sub.ch)
		}
	}
	b.topics = nil
	return nil
}

// subscriberCount is used by tests.
func (b *MemoryBroker) subscriberCount(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[topic])
}
