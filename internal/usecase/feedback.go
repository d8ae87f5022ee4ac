package usecase

import (
	"context"
	"nexus/internal/ports"

	"github.com/rs/zerolog/log"
)

// sendFeedback submits reply to the content engine on a detached
// goroutine. Its outcome is only ever logged.
func (d *Dispatcher) sendFeedback(ctx context.Context, reply string) {
	ctx = context.WithoutCancel(ctx)
	fb := ports.Feedback{
		Type:        "RESULT",
		Payload:     map[string]any{"summary": reply},
		SourceAgent: SourceAgent,
	}

	d.feedback.Add(1)
	go func() {
		defer d.feedback.Done()

		if d.FeedbackTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.FeedbackTimeout)
			defer cancel()
		}
		if err := d.Content.PublishEvent(ctx, fb); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to send result event to content engine for self-ingestion")
		}
	}()
}
