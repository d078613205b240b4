package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// channelPrefix namespaces pub/sub channels on a shared Redis.
const channelPrefix = "prio:"

// RedisBroker fans events out across processes through Redis pub/sub.
type RedisBroker struct {
	client *redis.Client
}

// NewRedisBroker connects to Redis and verifies the connection.
func NewRedisBroker(ctx context.Context, opts *redis.Options) (*RedisBroker, error) {
	client := redis.NewClient(opts)
	if errPing := client.Ping(ctx).Err(); errPing != nil {
		_ = client.Close()
		return nil, fmt.Errorf("realtime: redis ping: %w", errPing)
	}
	return &RedisBroker{client: client}, nil
}

func channelName(topic string) string { return channelPrefix + topic }

func topicName(channel string) string { return strings.TrimPrefix(channel, channelPrefix) }

// Publish sends event to the topic channel.
func (b *RedisBroker) Publish(ctx context.Context, event Event) error {
	payload, errMarshal := json.Marshal(event)
	if errMarshal != nil {
		return errMarshal
	}
	if errPublish := b.client.Publish(ctx, channelName(event.Topic), payload).Err(); errPublish != nil {
		return fmt.Errorf("realtime: redis publish: %w", errPublish)
	}
	return nil
}

// Subscribe opens a pub/sub connection for topics.
func (b *RedisBroker) Subscribe(ctx context.Context, topics ...string) (*Subscription, error) {
	channels := make([]string, 0, len(topics))
	for _, topic := range topics {
		channels = append(channels, channelName(topic))
	}
	pubsub := b.client.Subscribe(ctx, channels...)
	if _, errReceive := pubsub.Receive(ctx); errReceive != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("realtime: redis subscribe: %w", errReceive)
	}

	out := make(chan Event, subscriberBuffer)
	sub := newSubscription(out, func() { _ = pubsub.Close() })
	go func() {
		defer close(out)
		messages := pubsub.Channel()
		for {
			select {
			case <-sub.done:
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event Event
				if errUnmarshal := json.Unmarshal([]byte(msg.Payload), &event); errUnmarshal != nil {
					log.WithError(errUnmarshal).WithField("channel", msg.Channel).Warn("realtime: drop malformed event")
					continue
				}
				event.Topic = topicName(msg.Channel)
				select {
				case out <- event:
				default:
				}
			}
		}
	}()
	closeOnCancel(ctx, sub)
	return sub, nil
}

// Close releases the Redis client.
func (b *RedisBroker) Close() error {
	return b.client.Close()
}
