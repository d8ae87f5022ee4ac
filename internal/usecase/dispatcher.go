package usecase

import (
	"context"
	"encoding/json"
	"nexus/internal/domain"
	"nexus/internal/ports"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultTaskLimit = 50
	MaxTaskLimit     = 200
)

// Dispatcher owns a task from creation to its terminal state. Every
// dispatch records at most one terminal transition and emits exactly one
// TASK_COMPLETED or TASK_FAILED event.
type Dispatcher struct {
	Ledger      ports.TaskLedger
	Bus         ports.EventBus
	Content     ports.ContentEngine
	Financial   ports.FinancialEngine
	Interpreter ports.Interpreter

	// FeedbackTimeout bounds the detached self-ingestion call. Zero
	// means no bound beyond the engine client's own timeout.
	FeedbackTimeout time.Duration
	Now             func() time.Time

	feedback sync.WaitGroup
}

// Wait blocks until every detached feedback call has returned.
func (d *Dispatcher) Wait() {
	d.feedback.Wait()
}

func (d *Dispatcher) RecentTasks(ctx context.Context, limit int) ([]domain.Task, error) {
	if limit <= 0 {
		limit = DefaultTaskLimit
	}
	limit = min(limit, MaxTaskLimit)
	return d.Ledger.Recent(ctx, limit)
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d *Dispatcher) emit(ctx context.Context, t domain.EventType, payload map[string]any) {
	e := domain.NewEvent(t, payload, d.now())
	log.Ctx(ctx).Debug().Str("event", string(t)).Interface("payload", payload).Msg("EVENT")
	if err := d.Bus.Publish(ctx, e); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("event", string(t)).Msg("failed to publish event")
	}
}

// open records t and returns its id, or "" when the ledger write failed.
func (d *Dispatcher) open(ctx context.Context, t domain.Task) string {
	created, err := d.Ledger.Create(ctx, t)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("type", string(t.Type)).Msg("error recording task")
		d.emit(ctx, domain.EventTaskRecordError, map[string]any{
			"type":    t.Type,
			"payload": t.Payload,
			"error":   err.Error(),
		})
		return ""
	}
	return created.ID
}

// finish records the terminal transition, if a task was recorded, and
// emits the terminal event either way.
func (d *Dispatcher) finish(ctx context.Context, id string, typ domain.TaskType, status domain.TaskStatus, result any, errMsg string) {
	if id != "" {
		if err := d.Ledger.Finish(ctx, id, status, encodeResult(ctx, result), errMsg); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("task_id", id).Msg("error updating task status")
			d.emit(ctx, domain.EventTaskUpdateError, map[string]any{
				"taskId": id,
				"status": status,
				"error":  err.Error(),
			})
		}
	}
	d.terminal(ctx, id, typ, status, errMsg)
}

func (d *Dispatcher) terminal(ctx context.Context, id string, typ domain.TaskType, status domain.TaskStatus, errMsg string) {
	payload := map[string]any{"taskId": id, "type": typ, "status": status}
	if status == domain.StatusFailed {
		payload["error"] = errMsg
		d.emit(ctx, domain.EventTaskFailed, payload)
		return
	}
	d.emit(ctx, domain.EventTaskCompleted, payload)
}

func encodeResult(ctx context.Context, result any) json.RawMessage {
	switch r := result.(type) {
	case nil:
		return nil
	case json.RawMessage:
		return r
	}
	b, err := json.Marshal(result)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("task result is not encodable")
		return nil
	}
	return b
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}
