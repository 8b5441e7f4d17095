// Package session defines the conversion session entity, its status
// lifecycle, and the repository that persists one record per job.
package session

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a conversion session.
type Status string

// Session lifecycle states. Values are lowercase on the wire.
const (
	StatusPending    Status = "pending"
	StatusAnalyzing  Status = "analyzing"
	StatusProcessing Status = "processing"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAnalyzing, StatusProcessing, StatusPaused, StatusCompleted, StatusError:
		return true
	}
	return false
}

// Output formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// AnalysisResult is the cached verdict of the document analysis pass.
// It is computed once from a page sample and reused for every page of
// the run, including after a resume.
type AnalysisResult struct {
	PageCount         int    `json:"page_count"`
	HasTables         bool   `json:"has_tables"`
	HasImages         bool   `json:"has_images"`
	HasRTLText        bool   `json:"has_rtl_text"`
	SuggestedStrategy string `json:"suggested_strategy"`
}

// Session is the persistent record of one conversion job. It is created
// pending on upload and mutated only through state-machine operations
// and the background worker.
//
// The completion fields (OutputPath, Preview, Columns) and ErrorMessage
// are mutually exclusive: exactly the set matching the current status
// may be populated. Go cannot express this as a tagged variant, so
// CheckInvariant enforces it at persistence time.
type Session struct {
	ID           string           `json:"session_id"`
	Filename     string           `json:"filename"`
	SourcePath   string           `json:"source_path"`
	Status       Status           `json:"status"`
	Progress     int              `json:"progress"`
	CurrentPage  int              `json:"current_page"`
	TotalPages   int              `json:"total_pages"`
	OutputFormat string           `json:"output_format,omitempty"`
	OutputPath   string           `json:"output_path,omitempty"`
	Analysis     *AnalysisResult  `json:"analysis,omitempty"`
	Preview      []map[string]any `json:"preview,omitempty"`
	Columns      []string         `json:"columns,omitempty"`
	ErrorMessage string           `json:"error,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// New creates a pending session for an uploaded file.
func New(id, filename, sourcePath string) *Session {
	return &Session{
		ID:         id,
		Filename:   filename,
		SourcePath: sourcePath,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
}

// CheckInvariant validates the cross-field rules that the status
// variant implies: progress within 0..100, current page within total,
// completion fields present exactly when completed, error message
// present exactly when errored.
func (s *Session) CheckInvariant() error {
	if !s.Status.Valid() {
		return fmt.Errorf("unknown status %q", s.Status)
	}
	if s.Progress < 0 || s.Progress > 100 {
		return fmt.Errorf("progress %d out of range", s.Progress)
	}
	if s.CurrentPage > s.TotalPages {
		return fmt.Errorf("current page %d exceeds total pages %d", s.CurrentPage, s.TotalPages)
	}

	completed := s.Status == StatusCompleted
	if completed && s.OutputPath == "" {
		return fmt.Errorf("completed session missing output path")
	}
	if !completed && (s.OutputPath != "" || s.Preview != nil || s.Columns != nil) {
		return fmt.Errorf("completion fields set while status is %q", s.Status)
	}

	errored := s.Status == StatusError
	if errored && s.ErrorMessage == "" {
		return fmt.Errorf("error session missing message")
	}
	if !errored && s.ErrorMessage != "" {
		return fmt.Errorf("error message set while status is %q", s.Status)
	}

	return nil
}

// Reset returns the session to its freshly uploaded shape: pending,
// zero progress, no output, no error. The cached analysis survives; it
// was computed from the source file, which cancel does not touch.
func (s *Session) Reset() {
	s.Status = StatusPending
	s.Progress = 0
	s.CurrentPage = 0
	s.OutputFormat = ""
	s.OutputPath = ""
	s.Preview = nil
	s.Columns = nil
	s.ErrorMessage = ""
}
