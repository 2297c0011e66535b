package mocks

import (
	"context"
	"sync"

	"komentar/internal/domain"
	"komentar/internal/realtime"
)

// MemoryChannel is an in-process push channel for tests: Publish fans out
// to every live subscription on the topic, synchronously.
type MemoryChannel struct {
	mu   sync.Mutex
	subs map[string][]*MemorySubscription
}

func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{subs: make(map[string][]*MemorySubscription)}
}

func (c *MemoryChannel) Publish(ctx context.Context, topic string, event domain.ChangeEvent) error {
	c.mu.Lock()
	subs := append([]*MemorySubscription(nil), c.subs[topic]...)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(event)
	}
	return nil
}

func (c *MemoryChannel) Subscribe(ctx context.Context, topic string) (realtime.Subscription, error) {
	sub := &MemorySubscription{
		channel: c,
		topic:   topic,
		events:  make(chan domain.ChangeEvent, 16),
	}
	c.mu.Lock()
	c.subs[topic] = append(c.subs[topic], sub)
	c.mu.Unlock()
	return sub, nil
}

// OpenSubscriptions reports how many subscriptions are still live on the
// topic; used to assert that sessions release what they acquire.
func (c *MemoryChannel) OpenSubscriptions(topic string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs[topic])
}

type MemorySubscription struct {
	channel   *MemoryChannel
	topic     string
	events    chan domain.ChangeEvent
	closeOnce sync.Once
	closed    bool
	mu        sync.Mutex
}

func (s *MemorySubscription) Events() <-chan domain.ChangeEvent {
	return s.events
}

func (s *MemorySubscription) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.channel.mu.Lock()
		subs := s.channel.subs[s.topic]
		for i, sub := range subs {
			if sub == s {
				s.channel.subs[s.topic] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		s.channel.mu.Unlock()
		close(s.events)
	})
	return nil
}

func (s *MemorySubscription) deliver(event domain.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- event:
	default:
	}
}
