// Package engine is the HTTP gateway to the content and financial engines.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"nexus/internal/config"
	"nexus/internal/domain"
	"nexus/internal/ports"
	"strings"
)

const (
	ContentEngine   = "content-engine"
	FinancialEngine = "financial-engine"

	maxResponseBytes = 8 << 20
)

var (
	_ ports.ContentEngine   = (*Client)(nil)
	_ ports.FinancialEngine = (*Client)(nil)
)

// Client issues exactly one request per call; it never retries.
type Client struct {
	contentURL   string
	financialURL string
	summaryPath  string
	http         *http.Client
}

func New(cfg config.Engines) *Client {
	return &Client{
		contentURL:   strings.TrimRight(cfg.ContentURL, "/"),
		financialURL: strings.TrimRight(cfg.FinancialURL, "/"),
		summaryPath:  cfg.FinancialSummaryPath,
		http:         &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Ingest(ctx context.Context, f ports.File) (json.RawMessage, error) {
	return c.upload(ctx, ContentEngine, "ingest", c.contentURL+"/ingest", f)
}

func (c *Client) Query(ctx context.Context, question string) (ports.QueryResponse, error) {
	raw, err := c.sendJSON(ctx, ContentEngine, "query", http.MethodPost, c.contentURL+"/query", map[string]string{"question": question})
	if err != nil {
		return ports.QueryResponse{}, err
	}

	var body struct {
		Results []ports.QueryHit `json:"results"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ports.QueryResponse{}, decodeError(ContentEngine, "query", raw, err)
	}
	return ports.QueryResponse{Results: body.Results, Raw: raw}, nil
}

func (c *Client) PublishEvent(ctx context.Context, fb ports.Feedback) error {
	_, err := c.sendJSON(ctx, ContentEngine, "events", http.MethodPost, c.contentURL+"/events", fb)
	return err
}

func (c *Client) IngestTransactions(ctx context.Context, f ports.File) (json.RawMessage, error) {
	return c.upload(ctx, FinancialEngine, "ingest", c.financialURL+"/ingest/transactions", f)
}

func (c *Client) SummaryByCategory(ctx context.Context) (ports.SummaryResponse, error) {
	raw, err := c.send(ctx, FinancialEngine, "summary", http.MethodGet, c.financialURL+c.summaryPath, nil, "")
	if err != nil {
		return ports.SummaryResponse{}, err
	}

	var items []ports.CategoryTotal
	if err := json.Unmarshal(raw, &items); err != nil {
		return ports.SummaryResponse{}, decodeError(FinancialEngine, "summary", raw, err)
	}
	return ports.SummaryResponse{Items: items, Raw: raw}, nil
}

func (c *Client) upload(ctx context.Context, engine, op, url string, f ports.File) (json.RawMessage, error) {
	body, contentType, err := encodeMultipart(f)
	if err != nil {
		return nil, &domain.EngineError{Engine: engine, Op: op, Err: fmt.Errorf("encode multipart: %w", err)}
	}
	return c.send(ctx, engine, op, http.MethodPost, url, body, contentType)
}

func (c *Client) sendJSON(ctx context.Context, engine, op, method, url string, v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, &domain.EngineError{Engine: engine, Op: op, Err: err}
	}
	return c.send(ctx, engine, op, method, url, bytes.NewBuffer(b), "application/json")
}

// send performs the request with an explicit Content-Length taken from the
// fully encoded body.
func (c *Client) send(ctx context.Context, engine, op, method, url string, body *bytes.Buffer, contentType string) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		reader = body
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &domain.EngineError{Engine: engine, Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	if body != nil {
		req.ContentLength = int64(body.Len())
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.EngineError{Engine: engine, Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &domain.EngineError{Engine: engine, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.EngineError{
			Engine:     engine,
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       string(raw),
			Err:        fmt.Errorf("request failed with status code %d", resp.StatusCode),
		}
	}
	return normalizeJSON(raw), nil
}

// normalizeJSON keeps valid JSON as-is and wraps anything else as a JSON
// string so results can always be stored as structured data.
func normalizeJSON(raw []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	b, _ := json.Marshal(string(raw))
	return b
}

func decodeError(engine, op string, raw []byte, err error) error {
	return &domain.EngineError{
		Engine:     engine,
		Op:         op,
		StatusCode: http.StatusOK,
		Body:       string(raw),
		Err:        fmt.Errorf("unexpected response shape: %w", err),
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeMultipart(f ports.File) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(f.Name)))
	mimeType := f.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	h.Set("Content-Type", mimeType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(f.Content); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
