package ports

import (
	"context"
	"nexus/internal/domain"
)

type EventBus interface {
	Publish(ctx context.Context, e domain.Event) error
}
