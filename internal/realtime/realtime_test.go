package realtime

import (
	"context"
	"testing"
	"time"
)

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case event, ok := <-sub.C:
		if !ok {
			t.Fatalf("subscription closed")
		}
		return event
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return Event{}
}

func TestMemoryBrokerDeliversToTopicSubscribers(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()
	ctx := context.Background()

	userSub, errSub := broker.Subscribe(ctx, UserTopic(7))
	if errSub != nil {
		t.Fatalf("subscribe: %v", errSub)
	}
	defer userSub.Close()
	adminSub, _ := broker.Subscribe(ctx, TopicPayments, TopicWithdrawals)
	defer adminSub.Close()

	if errPublish := PublishAll(ctx, broker,
		Event{Topic: UserTopic(7), Type: "credits"},
		Event{Topic: TopicPayments, Type: "created", ID: 3},
	); errPublish != nil {
		t.Fatalf("publish: %v", errPublish)
	}

	if got := receive(t, userSub); got.Type != "credits" || got.At.IsZero() {
		t.Fatalf("user event = %+v", got)
	}
	if got := receive(t, adminSub); got.Topic != TopicPayments || got.ID != 3 {
		t.Fatalf("admin event = %+v", got)
	}
	select {
	case extra := <-userSub.C:
		t.Fatalf("unexpected event %+v", extra)
	default:
	}
}

func TestSubscriptionCloseIsIdempotentAndStopsDelivery(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()

	sub, _ := broker.Subscribe(context.Background(), TopicUsers)
	sub.Close()
	sub.Close()

	if _, ok := <-sub.C; ok {
		t.Fatalf("expected closed channel")
	}
	if n := broker.subscriberCount(TopicUsers); n != 0 {
		t.Fatalf("subscribers = %d", n)
	}
	if errPublish := broker.Publish(context.Background(), Event{Topic: TopicUsers}); errPublish != nil {
		t.Fatalf("publish after close: %v", errPublish)
	}
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub, _ := broker.Subscribe(ctx, TopicModels)
	cancel()

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatalf("subscription not closed on cancel")
	}
}

func TestSlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()
	sub, _ := broker.Subscribe(context.Background(), TopicPayments)
	defer sub.Close()

	for i := 0; i < subscriberBuffer*2; i++ {
		if err := broker.Publish(context.Background(), Event{Topic: TopicPayments, ID: uint64(i)}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	if len(sub.C) != subscriberBuffer {
		t.Fatalf("buffered = %d", len(sub.C))
	}
}

func TestRedisChannelNaming(t *testing.T) {
	if channelName(UserTopic(9)) != "prio:user:9" {
		t.Fatalf("channel = %s", channelName(UserTopic(9)))
	}
	if topicName("prio:payments") != TopicPayments {
		t.Fatalf("topic mismatch")
	}
}
