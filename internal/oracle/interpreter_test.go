package oracle

import (
	"context"
	"errors"
	"testing"

	"nexus/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOracle struct {
	out    string
	err    error
	prompt string
	calls  int
}

func (s *stubOracle) Generate(_ context.Context, prompt string) (string, error) {
	s.calls++
	s.prompt = prompt
	return s.out, s.err
}

func TestParseDecision(t *testing.T) {
	t.Run("api call", func(t *testing.T) {
		d, err := ParseDecision("\n  {\"action\":\"API_CALL\",\"target\":\"knowledge_query\",\"payload\":{\"question\":\"capital of France\"}}  \n")
		require.NoError(t, err)
		assert.Equal(t, domain.ActionAPICall, d.Action)
		assert.Equal(t, domain.TargetKnowledgeQuery, d.Target)
		assert.JSONEq(t, `{"question":"capital of France"}`, string(d.Payload))
	})

	t.Run("api call without payload gets empty object", func(t *testing.T) {
		d, err := ParseDecision(`{"action":"API_CALL","target":"financial_summary"}`)
		require.NoError(t, err)
		assert.JSONEq(t, `{}`, string(d.Payload))
	})

	t.Run("unknown target is structurally valid", func(t *testing.T) {
		d, err := ParseDecision(`{"action":"API_CALL","target":"weather_forecast","payload":{}}`)
		require.NoError(t, err)
		assert.Equal(t, domain.Target("weather_forecast"), d.Target)
		assert.False(t, d.Target.Known())
	})

	t.Run("general inquiry", func(t *testing.T) {
		d, err := ParseDecision(`{"action":"GENERAL_INQUIRY","response":"Hello!"}`)
		require.NoError(t, err)
		assert.Equal(t, domain.Decision{Action: domain.ActionGeneralInquiry, Response: "Hello!"}, d)
	})

	malformed := map[string]string{
		"empty":               "",
		"prose":               "Sure! Here is the JSON you asked for.",
		"fenced":              "```json\n{\"action\":\"GENERAL_INQUIRY\",\"response\":\"hi\"}\n```",
		"array":               `[{"action":"GENERAL_INQUIRY","response":"hi"}]`,
		"truncated":           `{"action":"API_CALL","target":"knowledge_query"`,
		"trailing data":       `{"action":"GENERAL_INQUIRY","response":"hi"} {"action":"API_CALL"}`,
		"missing action":      `{"response":"hi"}`,
		"unknown action":      `{"action":"SHUTDOWN"}`,
		"numeric action":      `{"action":1,"response":"hi"}`,
		"api call no target":  `{"action":"API_CALL","payload":{}}`,
		"blank target":        `{"action":"API_CALL","target":"  "}`,
		"payload not object":  `{"action":"API_CALL","target":"knowledge_query","payload":"capital"}`,
		"inquiry no response": `{"action":"GENERAL_INQUIRY"}`,
		"inquiry blank":       `{"action":"GENERAL_INQUIRY","response":""}`,
	}
	for name, raw := range malformed {
		t.Run("rejects "+name, func(t *testing.T) {
			_, err := ParseDecision(raw)
			assert.Error(t, err)
		})
	}
}

func TestInterpret(t *testing.T) {
	ctx := context.Background()

	t.Run("valid output passes through", func(t *testing.T) {
		o := &stubOracle{out: `{"action":"GENERAL_INQUIRY","response":"Hi there"}`}
		got := NewInterpreter(o).Interpret(ctx, "hello")

		assert.NoError(t, got.Fault)
		assert.Equal(t, "Hi there", got.Decision.Response)
		assert.Equal(t, 1, o.calls)
		assert.Contains(t, o.prompt, `"hello"`)
	})

	t.Run("malformed output falls back", func(t *testing.T) {
		o := &stubOracle{out: "I think you want the knowledge base"}
		got := NewInterpreter(o).Interpret(ctx, "find docs")

		assert.Equal(t, domain.FallbackDecision(), got.Decision)
		assert.ErrorIs(t, got.Fault, domain.ErrOracleMalformedOutput)
		assert.Equal(t, "I think you want the knowledge base", got.Raw)
		assert.Equal(t, 1, o.calls)
	})

	t.Run("oracle failure falls back", func(t *testing.T) {
		o := &stubOracle{err: errors.New("quota exceeded")}
		got := NewInterpreter(o).Interpret(ctx, "anything")

		assert.Equal(t, domain.FallbackDecision(), got.Decision)
		assert.ErrorIs(t, got.Fault, domain.ErrOracleUnavailable)
		assert.NotErrorIs(t, got.Fault, domain.ErrOracleMalformedOutput)
	})
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(`say "hi"`)
	assert.Contains(t, p, `"knowledge_query"`)
	assert.Contains(t, p, `"financial_summary"`)
	assert.Contains(t, p, "GENERAL_INQUIRY")
	assert.Contains(t, p, `User command: "say \"hi\""`)
}
