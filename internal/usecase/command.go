package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"nexus/internal/domain"
	"nexus/internal/ports"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	// SourceAgent tags records the orchestrator feeds back to the
	// content engine.
	SourceAgent = "NexusOrchestrator"

	noResponseData       = "No response data"
	unknownAPIReply      = "I received an instruction to call an unknown API: %s. This issue has been logged."
	engineErrorReply     = "There was an error communicating with the %s. Error: %s"
	unhandledActionReply = "I'm not sure how to handle that command. Please ensure it's a valid request for knowledge or financial summary."
)

type CommandResult struct {
	TaskID string
	Reply  string
	Action domain.Action
	Status domain.TaskStatus
}

type outcome struct {
	reply  string
	status domain.TaskStatus
	result any
	errMsg string
}

// DispatchCommand interprets text and acts on the decision. Apart from an
// empty command it always returns a reply; downstream failures are
// reported in the reply and the task record. It runs to completion even
// if ctx is cancelled.
func (d *Dispatcher) DispatchCommand(ctx context.Context, text string) (CommandResult, error) {
	if strings.TrimSpace(text) == "" {
		return CommandResult{}, domain.ErrEmptyCommand
	}
	ctx = context.WithoutCancel(ctx)

	id := d.open(ctx, domain.Task{
		Type:    domain.TaskCommandExecution,
		Payload: mustJSON(domain.CommandPayload{Command: text}),
	})
	d.emit(ctx, domain.EventCommandReceived, map[string]any{"taskId": id, "command": text})

	in := d.Interpreter.Interpret(ctx, text)
	if in.Fault != nil {
		evt := domain.EventOracleCallFailed
		if errors.Is(in.Fault, domain.ErrOracleMalformedOutput) {
			evt = domain.EventOracleParseError
		}
		log.Ctx(ctx).Warn().Err(in.Fault).Str("task_id", id).Msg("oracle fell back to clarification reply")
		d.emit(ctx, evt, map[string]any{
			"taskId":       id,
			"command":      text,
			"responseText": in.Raw,
			"error":        in.Fault.Error(),
		})
	}

	dec := in.Decision
	var out outcome
	switch dec.Action {
	case domain.ActionGeneralInquiry:
		out = outcome{
			reply:  dec.Response,
			status: domain.StatusCompleted,
			result: map[string]any{"action": dec.Action, "response": dec.Response},
		}
		d.emit(ctx, domain.EventGeneralInquiryResponse, map[string]any{"taskId": id, "response": dec.Response, "command": text})
	case domain.ActionAPICall:
		out = d.callTarget(ctx, id, text, dec)
	default:
		out = outcome{
			reply:  unhandledActionReply,
			status: domain.StatusFailed,
			errMsg: fmt.Sprintf("Unhandled command action: %s", dec.Action),
		}
		d.emit(ctx, domain.EventUnhandledCommand, map[string]any{"taskId": id, "command": text, "action": dec.Action})
	}

	d.finish(ctx, id, domain.TaskCommandExecution, out.status, out.result, out.errMsg)

	if out.reply != "" {
		d.sendFeedback(ctx, out.reply)
	}
	return CommandResult{TaskID: id, Reply: out.reply, Action: dec.Action, Status: out.status}, nil
}

func (d *Dispatcher) callTarget(ctx context.Context, id, text string, dec domain.Decision) outcome {
	d.emit(ctx, domain.EventAPICallInitiated, map[string]any{
		"taskId":  id,
		"target":  dec.Target,
		"payload": dec.Payload,
		"command": text,
	})

	if !dec.Target.Known() {
		reply := fmt.Sprintf(unknownAPIReply, dec.Target)
		log.Ctx(ctx).Warn().Err(domain.ErrUnknownDispatchTarget).Str("target", string(dec.Target)).Msg("oracle requested unknown target")
		d.emit(ctx, domain.EventUnknownAPICall, map[string]any{"taskId": id, "target": dec.Target, "command": text})
		return outcome{
			reply:  reply,
			status: domain.StatusCompleted,
			result: map[string]any{"action": dec.Action, "target": dec.Target, "agentResponse": reply},
		}
	}

	var (
		reply     string
		apiResult json.RawMessage
		err       error
	)
	switch dec.Target {
	case domain.TargetKnowledgeQuery:
		var resp ports.QueryResponse
		if resp, err = d.Content.Query(ctx, question(dec.Payload, text)); err == nil {
			reply, apiResult = FormatQueryResults(resp.Results), resp.Raw
		}
	case domain.TargetFinancialSummary:
		var resp ports.SummaryResponse
		if resp, err = d.Financial.SummaryByCategory(ctx); err == nil {
			reply, apiResult = FormatSummary(resp.Items), resp.Raw
		}
	}

	if err != nil {
		details := noResponseData
		if body, ok := domain.EngineErrorBody(err); ok {
			details = body
		}
		log.Ctx(ctx).Error().Err(err).Str("target", string(dec.Target)).Str("details", details).Msg("error during engine call")
		d.emit(ctx, domain.EventAPICallFailed, map[string]any{
			"taskId":  id,
			"target":  dec.Target,
			"payload": dec.Payload,
			"error":   err.Error(),
			"details": details,
		})
		return outcome{
			reply:  fmt.Sprintf(engineErrorReply, engineName(dec.Target), err.Error()),
			status: domain.StatusFailed,
			errMsg: "API call failed: " + err.Error(),
		}
	}

	d.emit(ctx, domain.EventAPICallCompleted, map[string]any{
		"taskId":  id,
		"target":  dec.Target,
		"payload": dec.Payload,
		"result":  apiResult,
	})
	return outcome{
		reply:  reply,
		status: domain.StatusCompleted,
		result: map[string]any{"action": dec.Action, "apiResult": apiResult, "agentResponse": reply},
	}
}

// question reads payload.question, falling back to the raw command.
func question(payload json.RawMessage, text string) string {
	var p struct {
		Question string `json:"question"`
	}
	if len(payload) > 0 && json.Unmarshal(payload, &p) == nil && strings.TrimSpace(p.Question) != "" {
		return p.Question
	}
	return text
}

func engineName(t domain.Target) string {
	if t == domain.TargetFinancialSummary {
		return "Financial Engine"
	}
	return "Knowledge Engine"
}
