package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"nexus/internal/domain"
	"nexus/internal/usecase"
	"strconv"

	"github.com/rs/zerolog/log"
)

var uploadFields = []string{"document", "file"}

type commandReq struct {
	Command string `json:"command"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large.")
			return
		}
		writeError(w, http.StatusBadRequest, "No file uploaded.")
		return
	}

	var (
		file   io.ReadCloser
		upload usecase.Upload
	)
	for _, field := range uploadFields {
		f, header, err := r.FormFile(field)
		if err != nil {
			continue
		}
		file = f
		upload.Filename = header.Filename
		upload.MimeType = header.Header.Get("Content-Type")
		break
	}
	if file == nil {
		writeError(w, http.StatusBadRequest, "No file uploaded.")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded.")
		return
	}
	upload.Content = content

	res, err := s.dispatch.DispatchUpload(r.Context(), upload)
	switch {
	case errors.Is(err, domain.ErrUnsupportedMediaType):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to process file: "+err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]any{"message": res.Message(), "data": res.Data})
	}
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	res, err := s.dispatch.DispatchCommand(r.Context(), req.Command)
	switch {
	case errors.Is(err, domain.ErrEmptyCommand):
		writeError(w, http.StatusBadRequest, "Command is required.")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred: "+err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]any{"message": res.Reply})
	}
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	tasks, err := s.dispatch.RecentTasks(r.Context(), limit)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to fetch tasks")
		writeError(w, http.StatusInternalServerError, "Failed to fetch tasks")
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
