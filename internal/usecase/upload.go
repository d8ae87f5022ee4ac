package usecase

import (
	"context"
	"encoding/json"
	"mime"
	"nexus/internal/domain"
	"nexus/internal/ports"
	"strings"

	"github.com/rs/zerolog/log"
)

type Destination int

const (
	DestinationContent Destination = iota + 1
	DestinationFinancial
)

func (d Destination) Label() string {
	switch d {
	case DestinationContent:
		return "Knowledge Ingestion"
	case DestinationFinancial:
		return "Financial Ingestion"
	}
	return ""
}

const spreadsheetMime = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Classify routes a declared media type to an engine. Transaction CSVs are
// matched before the generic text family.
func Classify(mimeType string) (Destination, error) {
	base := strings.ToLower(strings.TrimSpace(mimeType))
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		base = mt
	}

	switch {
	case base == "text/csv":
		return DestinationFinancial, nil
	case base == "application/pdf",
		strings.HasPrefix(base, "text/"),
		strings.HasPrefix(base, "image/"),
		base == spreadsheetMime:
		return DestinationContent, nil
	}
	return 0, &domain.ClassificationError{MimeType: mimeType}
}

type Upload struct {
	Filename string
	MimeType string
	Content  []byte
}

type UploadResult struct {
	TaskID      string
	Destination Destination
	Data        json.RawMessage
}

func (r UploadResult) Message() string {
	return r.Destination.Label() + " initiated successfully."
}

// DispatchUpload classifies the file and hands it to one engine. It runs to
// completion even if ctx is cancelled so the task always reaches a
// terminal state.
func (d *Dispatcher) DispatchUpload(ctx context.Context, u Upload) (UploadResult, error) {
	ctx = context.WithoutCancel(ctx)
	payload := mustJSON(domain.UploadPayload{Filename: u.Filename, MimeType: u.MimeType})

	dest, err := Classify(u.MimeType)
	if err != nil {
		log.Ctx(ctx).Error().Str("filename", u.Filename).Msg(err.Error())
		id := d.open(ctx, domain.Task{
			Type:    domain.TaskFileUpload,
			Payload: payload,
			Status:  domain.StatusFailed,
			Error:   err.Error(),
		})
		d.emit(ctx, domain.EventFileUploadFailed, map[string]any{
			"taskId":   id,
			"filename": u.Filename,
			"mimetype": u.MimeType,
			"error":    err.Error(),
		})
		d.terminal(ctx, id, domain.TaskFileUpload, domain.StatusFailed, err.Error())
		return UploadResult{TaskID: id}, err
	}

	id := d.open(ctx, domain.Task{Type: domain.TaskFileUpload, Payload: payload})
	d.emit(ctx, domain.EventFileUploadReceived, map[string]any{
		"taskId":   id,
		"filename": u.Filename,
		"mimetype": u.MimeType,
		"engine":   dest.Label(),
	})

	f := ports.File{Name: u.Filename, MimeType: u.MimeType, Content: u.Content}
	var data json.RawMessage
	switch dest {
	case DestinationContent:
		data, err = d.Content.Ingest(ctx, f)
	case DestinationFinancial:
		data, err = d.Financial.IngestTransactions(ctx, f)
	}

	if err != nil {
		details := noResponseData
		if body, ok := domain.EngineErrorBody(err); ok {
			details = body
		}
		log.Ctx(ctx).Error().Err(err).Str("filename", u.Filename).Str("engine", dest.Label()).Str("details", details).
			Msg("error during file upload")
		d.emit(ctx, domain.EventFileUploadFailed, map[string]any{
			"taskId":   id,
			"filename": u.Filename,
			"error":    err.Error(),
			"details":  details,
			"engine":   dest.Label(),
		})
		d.finish(ctx, id, domain.TaskFileUpload, domain.StatusFailed, nil, err.Error())
		return UploadResult{TaskID: id, Destination: dest}, err
	}

	d.emit(ctx, domain.EventFileUploadSuccess, map[string]any{
		"taskId":   id,
		"filename": u.Filename,
		"response": data,
		"engine":   dest.Label(),
	})
	d.finish(ctx, id, domain.TaskFileUpload, domain.StatusCompleted, data, "")
	return UploadResult{TaskID: id, Destination: dest, Data: data}, nil
}
