package ports

import (
	"context"
	"encoding/json"
	"nexus/internal/domain"
)

type File struct {
	Name     string
	MimeType string
	Content  []byte
}

type QueryHit struct {
	Score  *float64 `json:"score,omitempty"`
	Source string   `json:"source,omitempty"`
	Text   string   `json:"text"`
}

type QueryResponse struct {
	Results []QueryHit
	Raw     json.RawMessage
}

type CategoryTotal struct {
	Category string        `json:"category"`
	Total    domain.Amount `json:"total"`
}

type SummaryResponse struct {
	Items []CategoryTotal
	Raw   json.RawMessage
}

// Feedback is a self-authored record submitted back to the content engine.
type Feedback struct {
	Type        string         `json:"type"`
	Payload     map[string]any `json:"payload"`
	SourceAgent string         `json:"source_agent"`
}

type ContentEngine interface {
	Ingest(ctx context.Context, f File) (json.RawMessage, error)
	Query(ctx context.Context, question string) (QueryResponse, error)
	PublishEvent(ctx context.Context, fb Feedback) error
}

type FinancialEngine interface {
	IngestTransactions(ctx context.Context, f File) (json.RawMessage, error)
	SummaryByCategory(ctx context.Context) (SummaryResponse, error)
}
