package memstore

import (
	"context"
	"encoding/json"
	"testing"

	"nexus/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger(t *testing.T) {
	ctx := context.Background()

	t.Run("create assigns identity and defaults to pending", func(t *testing.T) {
		l := New()
		task, err := l.Create(ctx, domain.Task{Type: domain.TaskCommandExecution, Payload: json.RawMessage(`{"command":"hi"}`)})
		require.NoError(t, err)

		assert.NotEmpty(t, task.ID)
		assert.False(t, task.CreatedAt.IsZero())
		assert.Equal(t, domain.StatusPending, task.Status)
	})

	t.Run("finish transitions exactly once", func(t *testing.T) {
		l := New()
		task, err := l.Create(ctx, domain.Task{Type: domain.TaskFileUpload})
		require.NoError(t, err)

		require.NoError(t, l.Finish(ctx, task.ID, domain.StatusCompleted, json.RawMessage(`{"ok":true}`), ""))
		err = l.Finish(ctx, task.ID, domain.StatusFailed, nil, "late")
		assert.ErrorIs(t, err, domain.ErrTaskNotPending)

		got, err := l.Get(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, got.Status)
		assert.JSONEq(t, `{"ok":true}`, string(got.Result))
		assert.Empty(t, got.Error)
	})

	t.Run("created failed cannot be finished", func(t *testing.T) {
		l := New()
		task, err := l.Create(ctx, domain.Task{Type: domain.TaskFileUpload, Status: domain.StatusFailed, Error: "Unsupported file type: x/y"})
		require.NoError(t, err)

		assert.ErrorIs(t, l.Finish(ctx, task.ID, domain.StatusCompleted, nil, ""), domain.ErrTaskNotPending)
	})

	t.Run("finish rejects non-terminal status and unknown ids", func(t *testing.T) {
		l := New()
		assert.Error(t, l.Finish(ctx, "x", domain.StatusPending, nil, ""))
		assert.ErrorIs(t, l.Finish(ctx, "missing", domain.StatusFailed, nil, "boom"), domain.ErrTaskNotFound)
	})

	t.Run("recent lists newest first", func(t *testing.T) {
		l := New()
		var ids []string
		for i := 0; i < 5; i++ {
			task, err := l.Create(ctx, domain.Task{Type: domain.TaskCommandExecution})
			require.NoError(t, err)
			ids = append(ids, task.ID)
		}

		got, err := l.Recent(ctx, 3)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, ids[4], got[0].ID)
		assert.Equal(t, ids[3], got[1].ID)
		assert.Equal(t, ids[2], got[2].ID)
	})
}
