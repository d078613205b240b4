// Package realtime fans out change notifications to live subscribers.
// Events carry identifiers only; subscribers re-read the current snapshot.
package realtime

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Shared topics.
const (
	TopicPayments    = "payments"
	TopicWithdrawals = "withdrawals"
	TopicUsers       = "users"
	TopicModels      = "models"
)

// UserTopic returns the topic carrying changes to one user's account.
func UserTopic(userID uint64) string {
	return "user:" + strconv.FormatUint(userID, 10)
}

// Event is a change notification.
type Event struct {
	Topic string    `json:"topic"`
	Type  string    `json:"type"`
	ID    uint64    `json:"id,omitempty"`
	At    time.Time `json:"at"`
}

// Publisher emits events after committed changes.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Broker publishes events and hands out subscriptions.
type Broker interface {
	Publisher
	// Subscribe delivers events for topics until the subscription is closed
	// or ctx is done.
	Subscribe(ctx context.Context, topics ...string) (*Subscription, error)
	Close() error
}

// subscriberBuffer bounds per-subscriber backlog; slow readers drop events.
const subscriberBuffer = 32

// Subscription is a live event feed. C is closed once the subscription ends.
type Subscription struct {
	C <-chan Event

	once    sync.Once
	done    chan struct{}
	release func()
}

func newSubscription(c <-chan Event, release func()) *Subscription {
	return &Subscription{C: c, done: make(chan struct{}), release: release}
}

// Close ends the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.release != nil {
			s.release()
		}
	})
}

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// closeOnCancel ends sub when ctx is done.
func closeOnCancel(ctx context.Context, sub *Subscription) {
	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()
}

// PublishAll publishes events and returns the first error.
func PublishAll(ctx context.Context, p Publisher, events ...Event) error {
	if p == nil {
		return nil
	}
	var first error
	for _, event := range events {
		if event.At.IsZero() {
			event.At = time.Now().UTC()
		}
		if err := p.Publish(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
