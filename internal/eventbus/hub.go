// Package eventbus fans events out to in-process subscribers.
package eventbus

import (
	"context"
	"errors"
	"nexus/internal/domain"
	"nexus/internal/ports"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

const DefaultBuffer = 64

var _ ports.EventBus = (*Hub)(nil)

// Hub delivers each published event to every current subscriber in
// publish order. A subscriber whose buffer is full misses the event
// rather than stalling the publisher. There is no replay for late
// subscribers.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{subs: map[*Subscription]struct{}{}, buffer: buffer}
}

type Subscription struct {
	C <-chan domain.Event

	ch      chan domain.Event
	hub     *Hub
	once    sync.Once
	dropped atomic.Uint64
}

func (h *Hub) Subscribe() *Subscription {
	ch := make(chan domain.Event, h.buffer)
	s := &Subscription{C: ch, ch: ch, hub: h}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Close detaches the subscription and closes C. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		close(s.ch)
		s.hub.mu.Unlock()
	})
}

// Dropped counts events this subscriber missed because its buffer was full.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

func (h *Hub) Publish(ctx context.Context, e domain.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs {
		select {
		case s.ch <- e:
		default:
			s.dropped.Add(1)
			log.Ctx(ctx).Warn().Str("type", string(e.Type)).Msg("subscriber buffer full, event dropped")
		}
	}
	return nil
}

// Subscribers returns the number of attached subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Fanout publishes to every bus and joins their errors.
type Fanout []ports.EventBus

func (f Fanout) Publish(ctx context.Context, e domain.Event) error {
	var errs []error
	for _, b := range f {
		if err := b.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
