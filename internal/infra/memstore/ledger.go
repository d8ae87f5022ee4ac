// Package memstore keeps the task ledger in process memory.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"nexus/internal/domain"
	"nexus/internal/ports"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var _ ports.TaskLedger = (*Ledger)(nil)

type entry struct {
	task domain.Task
	seq  uint64
}

type Ledger struct {
	mu    sync.RWMutex
	tasks map[string]*entry
	seq   uint64
	now   func() time.Time
}

func New() *Ledger {
	return &Ledger{tasks: map[string]*entry{}, now: time.Now}
}

func (l *Ledger) Create(_ context.Context, t domain.Task) (domain.Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t.ID = uuid.NewString()
	t.CreatedAt = l.now().UTC()
	if t.Status == "" {
		t.Status = domain.StatusPending
	}
	l.seq++
	l.tasks[t.ID] = &entry{task: t, seq: l.seq}
	return t, nil
}

func (l *Ledger) Finish(_ context.Context, id string, status domain.TaskStatus, result json.RawMessage, errMsg string) error {
	if !status.Terminal() {
		return fmt.Errorf("finish task %s: %q is not a terminal status", id, status)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.tasks[id]
	if !ok {
		return domain.ErrTaskNotFound
	}
	if e.task.Status != domain.StatusPending {
		return domain.ErrTaskNotPending
	}
	e.task.Status = status
	e.task.Result = result
	e.task.Error = errMsg
	return nil
}

func (l *Ledger) Get(_ context.Context, id string) (*domain.Task, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, ok := l.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	t := e.task
	return &t, nil
}

// Recent returns up to limit tasks, newest first. A non-positive limit
// returns everything.
func (l *Ledger) Recent(_ context.Context, limit int) ([]domain.Task, error) {
	l.mu.RLock()
	entries := make([]*entry, 0, len(l.tasks))
	for _, e := range l.tasks {
		entries = append(entries, e)
	}
	l.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq > entries[j].seq
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	out := make([]domain.Task, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.task)
	}
	return out, nil
}
