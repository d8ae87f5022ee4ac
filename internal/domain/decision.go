package domain

import "encoding/json"

type Action string

const (
	ActionAPICall        Action = "API_CALL"
	ActionGeneralInquiry Action = "GENERAL_INQUIRY"
)

// Target names a downstream call the oracle may request. Only the values
// in KnownTargets are dispatchable.
type Target string

const (
	TargetKnowledgeQuery   Target = "knowledge_query"
	TargetFinancialSummary Target = "financial_summary"
)

var KnownTargets = map[Target]struct{}{
	TargetKnowledgeQuery:   {},
	TargetFinancialSummary: {},
}

func (t Target) Known() bool {
	_, ok := KnownTargets[t]
	return ok
}

// Decision is the structured interpretation of a command.
type Decision struct {
	Action   Action          `json:"action"`
	Target   Target          `json:"target,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Response string          `json:"response,omitempty"`
}

const FallbackResponse = "I had trouble interpreting your command. The AI response was not in the expected format. Could you please rephrase?"

func FallbackDecision() Decision {
	return Decision{Action: ActionGeneralInquiry, Response: FallbackResponse}
}
