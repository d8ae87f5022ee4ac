package ports

import (
	"context"
	"encoding/json"
	"nexus/internal/domain"
)

// TaskLedger stores task records. Create assigns ID and CreatedAt. Finish
// moves a pending task to a terminal status and fails with
// domain.ErrTaskNotPending for any other starting status.
type TaskLedger interface {
	Create(ctx context.Context, t domain.Task) (domain.Task, error)
	Finish(ctx context.Context, id string, status domain.TaskStatus, result json.RawMessage, errMsg string) error
	Get(ctx context.Context, id string) (*domain.Task, error)
	Recent(ctx context.Context, limit int) ([]domain.Task, error)
}
