package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"nexus/internal/domain"
	"nexus/internal/ports"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var _ ports.TaskLedger = (*Client)(nil)

// Create stores the task as a hash under TaskPrefix+id and indexes it by
// creation time.
func (c *Client) Create(ctx context.Context, t domain.Task) (domain.Task, error) {
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if t.Status == "" {
		t.Status = domain.StatusPending
	}

	_, err := c.Rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, c.taskKey(t.ID), c.fields(t))
		p.ZAdd(ctx, c.Cfg.TaskIndexKey, redis.Z{Score: float64(toMs(t.CreatedAt)), Member: t.ID})
		return nil
	})
	if err != nil {
		return domain.Task{}, fmt.Errorf("save task: %w", err)
	}
	return t, nil
}

func (c *Client) Finish(ctx context.Context, id string, status domain.TaskStatus, result json.RawMessage, errMsg string) error {
	if !status.Terminal() {
		return fmt.Errorf("finish task %s: %q is not a terminal status", id, status)
	}
	key := c.taskKey(id)

	err := c.Rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, "status").Result()
		if errors.Is(err, redis.Nil) {
			return domain.ErrTaskNotFound
		}
		if err != nil {
			return err
		}
		if domain.TaskStatus(current) != domain.StatusPending {
			return domain.ErrTaskNotPending
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, map[string]any{
				"status": string(status),
				"result": string(result),
				"error":  errMsg,
			})
			return nil
		})
		return err
	}, key)

	// A concurrent writer touched the hash between WATCH and EXEC, so
	// the task is no longer pending from our point of view.
	if errors.Is(err, redis.TxFailedErr) {
		return domain.ErrTaskNotPending
	}
	return err
}

func (c *Client) Get(ctx context.Context, id string) (*domain.Task, error) {
	h, err := c.Rdb.HGetAll(ctx, c.taskKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(h) == 0 {
		return nil, domain.ErrTaskNotFound
	}
	return decodeTask(id, h), nil
}

func (c *Client) Recent(ctx context.Context, limit int) ([]domain.Task, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := c.Rdb.ZRevRange(ctx, c.Cfg.TaskIndexKey, 0, stop).Result()
	if err != nil {
		return nil, err
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = c.Rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = p.HGetAll(ctx, c.taskKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	tasks := make([]domain.Task, 0, len(ids))
	for i, cmd := range cmds {
		h := cmd.Val()
		if len(h) == 0 {
			continue
		}
		tasks = append(tasks, *decodeTask(ids[i], h))
	}
	return tasks, nil
}

func (c *Client) fields(t domain.Task) map[string]any {
	return map[string]any{
		"type":       string(t.Type),
		"status":     string(t.Status),
		"payload":    string(t.Payload),
		"result":     string(t.Result),
		"error":      t.Error,
		"created_at": toMs(t.CreatedAt),
	}
}

func decodeTask(id string, h map[string]string) *domain.Task {
	t := &domain.Task{
		ID:     id,
		Type:   domain.TaskType(h["type"]),
		Status: domain.TaskStatus(h["status"]),
		Error:  h["error"],
	}
	if v := h["payload"]; v != "" {
		t.Payload = json.RawMessage(v)
	}
	if v := h["result"]; v != "" {
		t.Result = json.RawMessage(v)
	}
	if ms, err := strconv.ParseInt(h["created_at"], 10, 64); err == nil {
		t.CreatedAt = time.UnixMilli(ms).UTC()
	}
	return t
}
