package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"komentar/internal/domain"
)

const (
	subscriptionBuffer = 16
	backoffInitial     = 250 * time.Millisecond
	backoffMax         = 5 * time.Second
)

// RedisChannel implements Channel over Redis pub/sub with JSON envelopes.
type RedisChannel struct {
	client *redis.Client
}

func NewRedisChannel(client *redis.Client) *RedisChannel {
	return &RedisChannel{client: client}
}

func (c *RedisChannel) Publish(ctx context.Context, topic string, event domain.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, topic, payload).Err()
}

func (c *RedisChannel) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	pubsub := c.client.Subscribe(ctx, topic)

	// Confirm the subscription before handing out the handle, so a caller
	// never holds a subscription that was silently refused.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	sub := &redisSubscription{
		topic:  topic,
		pubsub: pubsub,
		events: make(chan domain.ChangeEvent, subscriptionBuffer),
		done:   make(chan struct{}),
	}
	go sub.receive(ctx)
	return sub, nil
}

type redisSubscription struct {
	topic     string
	pubsub    *redis.PubSub
	events    chan domain.ChangeEvent
	done      chan struct{}
	closeOnce sync.Once
}

func (s *redisSubscription) Events() <-chan domain.ChangeEvent {
	return s.events
}

func (s *redisSubscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return s.pubsub.Close()
}

func (s *redisSubscription) receive(ctx context.Context) {
	defer close(s.events)

	backoff := backoffInitial
	for {
		msg, err := s.pubsub.ReceiveMessage(ctx)
		if err != nil {
			select {
			case <-s.done:
				return
			case <-ctx.Done():
				return
			default:
			}

			log.Printf("realtime: receive on %s: %v (retrying in %s)", s.topic, err, backoff)
			select {
			case <-time.After(backoff):
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
			if backoff *= 2; backoff > backoffMax {
				backoff = backoffMax
			}

			// Events may have been lost while disconnected; tell consumers
			// to rebuild from the store.
			s.emit(domain.ChangeEvent{Type: domain.ChangeResync, OccurredAt: time.Now()})
			continue
		}
		backoff = backoffInitial

		var event domain.ChangeEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Printf("realtime: malformed event on %s: %v", s.topic, err)
			continue
		}
		s.emit(event)
	}
}

func (s *redisSubscription) emit(event domain.ChangeEvent) {
	select {
	case s.events <- event:
	case <-s.done:
	default:
		// Slow consumer: drop the oldest pending event and retry once. The
		// consumer rebuilds from the store, so a dropped hint only delays
		// reconciliation until the next event.
		select {
		case <-s.events:
		default:
		}
		select {
		case s.events <- event:
		default:
		}
	}
}
