// Package api exposes the conversion service over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pdf2sheet/pdf2sheet/internal/convert"
	"github.com/pdf2sheet/pdf2sheet/internal/session"
)

// Conversions is the service surface the HTTP layer needs.
type Conversions interface {
	Upload(req convert.UploadRequest) (*convert.UploadResult, error)
	Start(req convert.StartRequest) (*convert.StartResult, error)
	Pause(id string) (*session.Session, error)
	Resume(id string) (*session.Session, error)
	Cancel(id string) (*session.Session, error)
	Status(id string) (*session.Session, error)
	Progress(id string) (*convert.ProgressResult, error)
	List() ([]*session.Session, error)
	Download(id string) (*convert.DownloadResult, error)
	ResetPreview(id string) (*session.Session, error)
}

// Server registers the HTTP routes for a conversion service.
type Server struct {
	svc           Conversions
	maxUploadSize int64
	version       string
}

// NewServer creates an HTTP server wrapper around svc.
func NewServer(svc Conversions, maxUploadSize int64, version string) *Server {
	return &Server{svc: svc, maxUploadSize: maxUploadSize, version: version}
}

// RegisterHTTP mounts the API routes on a chi router.
func (s *Server) RegisterHTTP(r chi.Router) {
	r.Post("/api/v1/upload", s.handleUpload)
	r.Post("/api/v1/start/{id}", s.handleStart)
	r.Post("/api/v1/pause/{id}", s.handlePause)
	r.Post("/api/v1/resume/{id}", s.handleResume)
	r.Post("/api/v1/cancel/{id}", s.handleCancel)
	r.Post("/api/v1/reset-preview/{id}", s.handleResetPreview)

	r.Get("/api/v1/status/{id}", s.handleStatus)
	r.Get("/api/v1/progress/{id}", s.handleProgress)
	r.Get("/api/v1/sessions", s.handleSessions)
	r.Get("/api/v1/download/{id}", s.handleDownload)
	r.Get("/api/v1/health", s.handleHealth)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize+1024)
	if err := r.ParseMultipartForm(s.maxUploadSize); err != nil {
		writeError(w, &session.ValidationError{Reason: "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, &session.ValidationError{Reason: "missing file field"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	result, err := s.svc.Upload(convert.UploadRequest{Data: data, Filename: header.Filename})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OutputFormat string `json:"output_format"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, &session.ValidationError{Reason: "invalid request body"})
		return
	}

	result, err := s.svc.Start(convert.StartRequest{
		SessionID:    chi.URLParam(r, "id"),
		OutputFormat: body.OutputFormat,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, s.svc.Pause)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, s.svc.Resume)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, s.svc.Cancel)
}

func (s *Server) handleResetPreview(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, s.svc.ResetPreview)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, s.svc.Status)
}

// control runs one of the id-keyed session operations and writes the
// resulting snapshot.
func (s *Server) control(w http.ResponseWriter, r *http.Request, op func(string) (*session.Session, error)) {
	sess, err := op(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.Progress(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSessions(w http.ResponseWriter, _ *http.Request) {
	sessions, err := s.svc.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.Download(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(result.Data)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "pdf2sheet",
		"version": s.version,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the service error taxonomy onto HTTP status codes:
// validation 400, unknown session 404, disallowed transition 409.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case session.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound):
		status = http.StatusNotFound
	case session.IsInvalidTransition(err):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
