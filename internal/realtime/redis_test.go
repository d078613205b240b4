package realtime

import (
	"context"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// newTestRedisBroker connects to PRIO_TEST_REDIS_ADDR or skips.
func newTestRedisBroker(t *testing.T) *RedisBroker {
	t.Helper()
	addr := strings.TrimSpace(os.Getenv("PRIO_TEST_REDIS_ADDR"))
	if addr == "" {
		t.Skip("PRIO_TEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	broker, errBroker := NewRedisBroker(ctx, &redis.Options{Addr: addr})
	if errBroker != nil {
		t.Fatalf("connect redis: %v", errBroker)
	}
	t.Cleanup(func() { _ = broker.Close() })
	return broker
}

// uniqueTopic keeps runs against a shared Redis apart.
func uniqueTopic(t *testing.T) string {
	return "test:" + t.Name() + ":" + strconv.FormatInt(time.Now().UnixNano(), 10)
}

func TestRedisBrokerDeliversPublishedEvents(t *testing.T) {
	broker := newTestRedisBroker(t)
	ctx := context.Background()
	topic := uniqueTopic(t)

	sub, errSub := broker.Subscribe(ctx, topic)
	if errSub != nil {
		t.Fatalf("subscribe: %v", errSub)
	}
	defer sub.Close()

	if errPublish := PublishAll(ctx, broker, Event{Topic: topic, Type: "completed", ID: 12}); errPublish != nil {
		t.Fatalf("publish: %v", errPublish)
	}
	got := receive(t, sub)
	if got.Topic != topic || got.Type != "completed" || got.ID != 12 || got.At.IsZero() {
		t.Fatalf("event = %+v", got)
	}
}

func TestRedisBrokerDropsMalformedPayloads(t *testing.T) {
	broker := newTestRedisBroker(t)
	ctx := context.Background()
	topic := uniqueTopic(t)

	sub, errSub := broker.Subscribe(ctx, topic)
	if errSub != nil {
		t.Fatalf("subscribe: %v", errSub)
	}
	defer sub.Close()

	if errRaw := broker.client.Publish(ctx, channelName(topic), "{not json").Err(); errRaw != nil {
		t.Fatalf("publish raw: %v", errRaw)
	}
	if errPublish := broker.Publish(ctx, Event{Topic: topic, Type: "after"}); errPublish != nil {
		t.Fatalf("publish: %v", errPublish)
	}
	if got := receive(t, sub); got.Type != "after" {
		t.Fatalf("event = %+v, want the valid one", got)
	}
}

func TestRedisSubscriptionEndsWithContext(t *testing.T) {
	broker := newTestRedisBroker(t)
	ctx, cancel := context.WithCancel(context.Background())

	sub, errSub := broker.Subscribe(ctx, uniqueTopic(t))
	if errSub != nil {
		t.Fatalf("subscribe: %v", errSub)
	}
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-sub.C:
			if !ok {
				sub.Close()
				return
			}
		case <-deadline:
			t.Fatalf("subscription still open after cancel")
		}
	}
}
