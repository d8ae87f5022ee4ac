package watch

import (
	"context"
	"net/http/httptest"
	"nexus/internal/domain"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func TestOriginFor(t *testing.T) {
	assert.Equal(t, "http://localhost:8080", originFor("ws://localhost:8080/events"))
	assert.Equal(t, "https://nexus.example.com", originFor("wss://nexus.example.com/api/events"))
	assert.Equal(t, "http://localhost:8080", originFor("ws://localhost:8080"))
}

func TestFilter(t *testing.T) {
	all := filter(nil)
	assert.True(t, all(domain.EventTaskCompleted))

	some := filter([]string{"task_failed", " TASK_COMPLETED "})
	assert.True(t, some(domain.EventTaskFailed))
	assert.True(t, some(domain.EventTaskCompleted))
	assert.False(t, some(domain.EventUserConnected))
}

func TestRunReconnectsAndFilters(t *testing.T) {
	var conns atomic.Int32
	srv := httptest.NewServer(websocket.Handler(func(conn *websocket.Conn) {
		n := conns.Add(1)
		at := time.Now().UTC()
		_ = websocket.JSON.Send(conn, domain.NewEvent(domain.EventUserConnected, nil, at))
		_ = websocket.JSON.Send(conn, domain.NewEvent(domain.EventTaskCompleted, map[string]any{"conn": n}, at))
		// Drop the first connection to force a reconnect.
		if n == 1 {
			_ = conn.Close()
			return
		}
		_, _ = conn.Read(make([]byte, 1))
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu  sync.Mutex
		got []domain.Event
	)
	handle := func(e domain.Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
		if len(got) == 2 {
			cancel()
		}
	}

	cfg := Config{
		URL:         "ws" + strings.TrimPrefix(srv.URL, "http") + "/events",
		Types:       []string{"TASK_COMPLETED"},
		BaseBackoff: 5 * time.Millisecond,
		MaxBackoff:  20 * time.Millisecond,
	}

	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, handle) }()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	for _, e := range got {
		assert.Equal(t, domain.EventTaskCompleted, e.Type)
	}
	assert.GreaterOrEqual(t, conns.Load(), int32(2))
}
