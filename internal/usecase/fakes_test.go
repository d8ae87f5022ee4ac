package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"nexus/internal/domain"
	"nexus/internal/infra/memstore"
	"nexus/internal/ports"
)

type recordingBus struct {
	mu     sync.Mutex
	events []domain.Event
}

func (b *recordingBus) Publish(_ context.Context, e domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

func (b *recordingBus) snapshot() []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Event(nil), b.events...)
}

func (b *recordingBus) types() []domain.EventType {
	var out []domain.EventType
	for _, e := range b.snapshot() {
		out = append(out, e.Type)
	}
	return out
}

func (b *recordingBus) find(t domain.EventType) (domain.Event, bool) {
	for _, e := range b.snapshot() {
		if e.Type == t {
			return e, true
		}
	}
	return domain.Event{}, false
}

func (b *recordingBus) terminal() []domain.Event {
	var out []domain.Event
	for _, e := range b.snapshot() {
		if e.Type.Terminal() {
			out = append(out, e)
		}
	}
	return out
}

type fakeContent struct {
	mu       sync.Mutex
	ingested []ports.File
	queries  []string
	feedback []ports.Feedback

	ingestFn  func(ctx context.Context, f ports.File) (json.RawMessage, error)
	queryFn   func(ctx context.Context, q string) (ports.QueryResponse, error)
	publishFn func(ctx context.Context, fb ports.Feedback) error
}

func (c *fakeContent) Ingest(ctx context.Context, f ports.File) (json.RawMessage, error) {
	c.mu.Lock()
	c.ingested = append(c.ingested, f)
	c.mu.Unlock()
	if c.ingestFn != nil {
		return c.ingestFn(ctx, f)
	}
	return json.RawMessage(`{"document_id":1,"status":"pending"}`), nil
}

func (c *fakeContent) Query(ctx context.Context, q string) (ports.QueryResponse, error) {
	c.mu.Lock()
	c.queries = append(c.queries, q)
	c.mu.Unlock()
	if c.queryFn != nil {
		return c.queryFn(ctx, q)
	}
	return ports.QueryResponse{Raw: json.RawMessage(`{"results":[]}`)}, nil
}

func (c *fakeContent) PublishEvent(ctx context.Context, fb ports.Feedback) error {
	c.mu.Lock()
	c.feedback = append(c.feedback, fb)
	c.mu.Unlock()
	if c.publishFn != nil {
		return c.publishFn(ctx, fb)
	}
	return nil
}

func (c *fakeContent) counts() (ingest, query, feedback int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ingested), len(c.queries), len(c.feedback)
}

type fakeFinancial struct {
	mu        sync.Mutex
	ingested  []ports.File
	summaries int

	ingestFn  func(ctx context.Context, f ports.File) (json.RawMessage, error)
	summaryFn func(ctx context.Context) (ports.SummaryResponse, error)
}

func (f *fakeFinancial) IngestTransactions(ctx context.Context, file ports.File) (json.RawMessage, error) {
	f.mu.Lock()
	f.ingested = append(f.ingested, file)
	f.mu.Unlock()
	if f.ingestFn != nil {
		return f.ingestFn(ctx, file)
	}
	return json.RawMessage(`{"document_id":2,"status":"pending"}`), nil
}

func (f *fakeFinancial) SummaryByCategory(ctx context.Context) (ports.SummaryResponse, error) {
	f.mu.Lock()
	f.summaries++
	f.mu.Unlock()
	if f.summaryFn != nil {
		return f.summaryFn(ctx)
	}
	return ports.SummaryResponse{Raw: json.RawMessage(`[]`)}, nil
}

func (f *fakeFinancial) counts() (ingest, summaries int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ingested), f.summaries
}

type interpreterFunc func(text string) ports.Interpretation

func (f interpreterFunc) Interpret(_ context.Context, text string) ports.Interpretation {
	return f(text)
}

func decide(d domain.Decision) interpreterFunc {
	return func(string) ports.Interpretation { return ports.Interpretation{Decision: d} }
}

type brokenLedger struct {
	ports.TaskLedger
	createErr error
	finishErr error
}

func (l brokenLedger) Create(ctx context.Context, t domain.Task) (domain.Task, error) {
	if l.createErr != nil {
		return domain.Task{}, l.createErr
	}
	return l.TaskLedger.Create(ctx, t)
}

func (l brokenLedger) Finish(ctx context.Context, id string, status domain.TaskStatus, result json.RawMessage, errMsg string) error {
	if l.finishErr != nil {
		return l.finishErr
	}
	return l.TaskLedger.Finish(ctx, id, status, result, errMsg)
}

type harness struct {
	d         *Dispatcher
	ledger    *memstore.Ledger
	bus       *recordingBus
	content   *fakeContent
	financial *fakeFinancial
}

func newHarness(t *testing.T, interp ports.Interpreter) *harness {
	t.Helper()
	h := &harness{
		ledger:    memstore.New(),
		bus:       &recordingBus{},
		content:   &fakeContent{},
		financial: &fakeFinancial{},
	}
	h.d = &Dispatcher{
		Ledger:      h.ledger,
		Bus:         h.bus,
		Content:     h.content,
		Financial:   h.financial,
		Interpreter: interp,
	}
	t.Cleanup(h.d.Wait)
	return h
}

func (h *harness) task(t *testing.T, id string) *domain.Task {
	t.Helper()
	task, err := h.ledger.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get task %s: %v", id, err)
	}
	return task
}

func floatPtr(f float64) *float64 { return &f }
