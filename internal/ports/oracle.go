package ports

import (
	"context"
	"nexus/internal/domain"
)

// Oracle turns a prompt into raw model text.
type Oracle interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Interpretation is the outcome of interpreting a command. Decision is
// always valid; Fault is set when Decision is the fallback.
type Interpretation struct {
	Decision domain.Decision
	Raw      string
	Fault    error
}

type Interpreter interface {
	Interpret(ctx context.Context, text string) Interpretation
}
