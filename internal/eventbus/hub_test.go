package eventbus

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"nexus/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(t domain.EventType, n int) domain.Event {
	return domain.NewEvent(t, map[string]any{"n": n}, time.Now())
}

func TestHubDeliversInOrderToAllSubscribers(t *testing.T) {
	ctx := context.Background()
	h := NewHub(16)
	a := h.Subscribe()
	b := h.Subscribe()
	defer a.Close()
	defer b.Close()

	for i := 0; i < 10; i++ {
		require.NoError(t, h.Publish(ctx, event(domain.EventCommandReceived, i)))
	}

	for _, s := range []*Subscription{a, b} {
		for i := 0; i < 10; i++ {
			e := <-s.C
			assert.Equal(t, i, e.Payload["n"])
		}
	}
}

func TestHubNoReplayForLateSubscribers(t *testing.T) {
	ctx := context.Background()
	h := NewHub(4)
	require.NoError(t, h.Publish(ctx, event(domain.EventServerStart, 0)))

	s := h.Subscribe()
	defer s.Close()

	select {
	case e := <-s.C:
		t.Fatalf("unexpected replayed event %s", e.Type)
	default:
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	ctx := context.Background()
	h := NewHub(2)
	s := h.Subscribe()
	defer s.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, h.Publish(ctx, event(domain.EventCommandReceived, i)))
	}

	assert.Equal(t, uint64(3), s.Dropped())
	assert.Equal(t, 0, (<-s.C).Payload["n"])
	assert.Equal(t, 1, (<-s.C).Payload["n"])
}

func TestSubscriptionClose(t *testing.T) {
	h := NewHub(1)
	s := h.Subscribe()
	assert.Equal(t, 1, h.Subscribers())

	s.Close()
	s.Close()
	assert.Equal(t, 0, h.Subscribers())

	_, ok := <-s.C
	assert.False(t, ok)
	require.NoError(t, h.Publish(context.Background(), event(domain.EventServerStart, 0)))
}

type failingBus struct{ err error }

func (f failingBus) Publish(context.Context, domain.Event) error { return f.err }

func TestFanout(t *testing.T) {
	h := NewHub(1)
	s := h.Subscribe()
	defer s.Close()

	boom := errors.New("boom")
	f := Fanout{failingBus{err: boom}, h, failingBus{err: fmt.Errorf("wrapped: %w", boom)}}

	err := f.Publish(context.Background(), event(domain.EventTaskCompleted, 1))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, domain.EventTaskCompleted, (<-s.C).Type)
}
