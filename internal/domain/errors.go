package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedMediaType  = errors.New("unsupported media type")
	ErrOracleMalformedOutput = errors.New("oracle output malformed")
	ErrOracleUnavailable     = errors.New("oracle unavailable")
	ErrUnknownDispatchTarget = errors.New("unknown dispatch target")
	ErrEngineTransport       = errors.New("engine transport error")
	ErrEngineApplication     = errors.New("engine application error")
	ErrLedgerWrite           = errors.New("ledger write failed")
	ErrTaskNotFound          = errors.New("task not found")
	ErrTaskNotPending        = errors.New("task is not pending")
	ErrEmptyCommand          = errors.New("command is required")
)

// ClassificationError reports an upload whose media type no engine accepts.
type ClassificationError struct {
	MimeType string
}

func (e *ClassificationError) Error() string {
	return "Unsupported file type: " + e.MimeType
}

func (e *ClassificationError) Is(target error) bool {
	return target == ErrUnsupportedMediaType
}

// EngineError describes a failed downstream engine call. A zero
// StatusCode means no response was received.
type EngineError struct {
	Engine     string
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Engine, e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

func (e *EngineError) Is(target error) bool {
	switch target {
	case ErrEngineTransport:
		return e.StatusCode == 0
	case ErrEngineApplication:
		return e.StatusCode != 0
	}
	return false
}

// EngineErrorBody returns the downstream body carried by err, if any.
func EngineErrorBody(err error) (string, bool) {
	var ee *EngineError
	if errors.As(err, &ee) && ee.Body != "" {
		return ee.Body, true
	}
	return "", false
}
