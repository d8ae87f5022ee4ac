// Package oracle turns free-text commands into validated decisions.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"nexus/internal/domain"
	"nexus/internal/ports"
	"strings"

	"github.com/rs/zerolog/log"
)

var _ ports.Interpreter = (*Interpreter)(nil)

type Interpreter struct {
	oracle ports.Oracle
}

func NewInterpreter(o ports.Oracle) *Interpreter {
	return &Interpreter{oracle: o}
}

// Interpret calls the oracle once. It never fails: an unreachable oracle or
// an invalid reply yields the fallback decision with Fault set.
func (i *Interpreter) Interpret(ctx context.Context, text string) ports.Interpretation {
	raw, err := i.oracle.Generate(ctx, BuildPrompt(text))
	if err != nil {
		return ports.Interpretation{
			Decision: domain.FallbackDecision(),
			Fault:    fmt.Errorf("%w: %v", domain.ErrOracleUnavailable, err),
		}
	}
	log.Ctx(ctx).Debug().Str("raw", raw).Msg("oracle raw response")

	d, err := ParseDecision(raw)
	if err != nil {
		return ports.Interpretation{
			Decision: domain.FallbackDecision(),
			Raw:      raw,
			Fault:    fmt.Errorf("%w: %v", domain.ErrOracleMalformedOutput, err),
		}
	}
	return ports.Interpretation{Decision: d, Raw: raw}
}

type wireDecision struct {
	Action   *string         `json:"action"`
	Target   *string         `json:"target"`
	Payload  json.RawMessage `json:"payload"`
	Response *string         `json:"response"`
}

// ParseDecision decodes exactly one JSON object and checks its shape. It
// does not check whether an API_CALL target is dispatchable.
func ParseDecision(raw string) (domain.Decision, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return domain.Decision{}, errors.New("expected a JSON object")
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	var w wireDecision
	if err := dec.Decode(&w); err != nil {
		return domain.Decision{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return domain.Decision{}, errors.New("unexpected data after JSON object")
	}

	if w.Action == nil {
		return domain.Decision{}, errors.New("missing action")
	}

	switch domain.Action(*w.Action) {
	case domain.ActionAPICall:
		if w.Target == nil || strings.TrimSpace(*w.Target) == "" {
			return domain.Decision{}, errors.New("API_CALL without target")
		}
		payload, err := objectPayload(w.Payload)
		if err != nil {
			return domain.Decision{}, err
		}
		return domain.Decision{
			Action:  domain.ActionAPICall,
			Target:  domain.Target(strings.TrimSpace(*w.Target)),
			Payload: payload,
		}, nil

	case domain.ActionGeneralInquiry:
		if w.Response == nil || strings.TrimSpace(*w.Response) == "" {
			return domain.Decision{}, errors.New("GENERAL_INQUIRY without response")
		}
		return domain.Decision{Action: domain.ActionGeneralInquiry, Response: *w.Response}, nil
	}

	return domain.Decision{}, fmt.Errorf("unknown action %q", *w.Action)
}

func objectPayload(raw json.RawMessage) (json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return json.RawMessage(`{}`), nil
	}
	if raw[0] != '{' {
		return nil, errors.New("payload must be an object")
	}
	return raw, nil
}
