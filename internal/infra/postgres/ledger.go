package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"nexus/internal/domain"
	"nexus/internal/ports"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

var taskColumns = []string{"id::text", "type", "payload", "status", "result", "error", "created_at"}

type Ledger struct {
	db *DB
	qb squirrel.StatementBuilderType
}

var _ ports.TaskLedger = (*Ledger)(nil)

func NewLedger(db *DB) *Ledger {
	return &Ledger{db: db, qb: db.QueryBuilder}
}

func (l *Ledger) Create(ctx context.Context, t domain.Task) (domain.Task, error) {
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now().UTC()
	if t.Status == "" {
		t.Status = domain.StatusPending
	}

	sql, args, err := insertTask(l.qb, t).ToSql()
	if err != nil {
		return domain.Task{}, err
	}
	if _, err := l.db.Exec(ctx, sql, args...); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to insert task")
		return domain.Task{}, err
	}
	return t, nil
}

func (l *Ledger) Finish(ctx context.Context, id string, status domain.TaskStatus, result json.RawMessage, errMsg string) error {
	if !status.Terminal() {
		return fmt.Errorf("finish task %s: %q is not a terminal status", id, status)
	}

	sql, args, err := finishTask(l.qb, id, status, result, errMsg).ToSql()
	if err != nil {
		return err
	}
	tag, err := l.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	if _, err := l.Get(ctx, id); err != nil {
		return err
	}
	return domain.ErrTaskNotPending
}

func (l *Ledger) Get(ctx context.Context, id string) (*domain.Task, error) {
	sql, args, err := l.qb.Select(taskColumns...).From("tasks").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	t, err := scanTask(l.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (l *Ledger) Recent(ctx context.Context, limit int) ([]domain.Task, error) {
	sql, args, err := recentTasks(l.qb, limit).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := l.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func insertTask(qb squirrel.StatementBuilderType, t domain.Task) squirrel.InsertBuilder {
	return qb.Insert("tasks").
		Columns("id", "type", "payload", "status", "result", "error", "created_at").
		Values(t.ID, string(t.Type), jsonArg(t.Payload), string(t.Status), jsonArg(t.Result), textArg(t.Error), t.CreatedAt)
}

func finishTask(qb squirrel.StatementBuilderType, id string, status domain.TaskStatus, result json.RawMessage, errMsg string) squirrel.UpdateBuilder {
	return qb.Update("tasks").
		Set("status", string(status)).
		Set("result", jsonArg(result)).
		Set("error", textArg(errMsg)).
		Where(squirrel.Eq{"id": id, "status": string(domain.StatusPending)})
}

func recentTasks(qb squirrel.StatementBuilderType, limit int) squirrel.SelectBuilder {
	q := qb.Select(taskColumns...).From("tasks").OrderBy("created_at DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return q
}

func jsonArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func textArg(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scanTask(row pgx.Row) (domain.Task, error) {
	var (
		t       domain.Task
		typ     string
		status  string
		payload []byte
		result  []byte
		errMsg  *string
	)
	if err := row.Scan(&t.ID, &typ, &payload, &status, &result, &errMsg, &t.CreatedAt); err != nil {
		return domain.Task{}, err
	}
	t.Type = domain.TaskType(typ)
	t.Status = domain.TaskStatus(status)
	t.Payload = payload
	if len(result) > 0 {
		t.Result = result
	}
	if errMsg != nil {
		t.Error = *errMsg
	}
	return t, nil
}
