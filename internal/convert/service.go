// Package convert implements the conversion service: upload intake, the
// session state machine, and the background worker that turns a PDF into
// a tabular artifact page by page.
package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pdf2sheet/pdf2sheet/internal/analyze"
	"github.com/pdf2sheet/pdf2sheet/internal/extract"
	"github.com/pdf2sheet/pdf2sheet/internal/layout"
	"github.com/pdf2sheet/pdf2sheet/internal/session"
	"github.com/pdf2sheet/pdf2sheet/internal/storage"
	"github.com/pdf2sheet/pdf2sheet/internal/table"
	"github.com/pdf2sheet/pdf2sheet/internal/writer"
)

// Config holds the service tunables.
type Config struct {
	UploadDir     string
	WorkDir       string
	MaxUploadSize int64
	PreviewRows   int
	SamplePages   int
	OCRLanguages  string
	Cluster       layout.ClusterConfig

	// Numeric coercion thresholds, per candidate source.
	TextNumericThreshold       float64
	StructuredNumericThreshold float64
}

// DefaultConfig returns the service defaults: 10 MiB upload ceiling,
// ten preview rows, three analysis sample pages, English OCR.
func DefaultConfig() Config {
	return Config{
		MaxUploadSize:              10 * 1024 * 1024,
		PreviewRows:                10,
		SamplePages:                analyze.DefaultSamplePages,
		OCRLanguages:               "eng",
		Cluster:                    layout.DefaultClusterConfig(),
		TextNumericThreshold:       table.TextNumericThreshold,
		StructuredNumericThreshold: table.StructuredNumericThreshold,
	}
}

// Service coordinates sessions and their background workers. Control
// operations and workers communicate through the session repository;
// a per-session mutex serializes their writes within this process. The
// store itself stays last-writer-wins, so a second process writing the
// same records can still lose updates.
type Service struct {
	cfg      Config
	repo     session.Repository
	analyzer *analyze.Analyzer
	uploads  *storage.Guard
	work     *storage.Guard

	locks keyedMutex
	wg    sync.WaitGroup

	mu      sync.Mutex
	cancels map[string]context.CancelFunc

	// Extraction seams, replaceable in tests.
	openDocument   func(path string) (extract.Document, error)
	validateUpload func(path, filename string) (int, error)
	recognizePage  func(srcPath string, page int) (string, error)
	writeArtifact  func(path string, t *table.Table, format string) error
}

// NewService creates a conversion service backed by repo.
func NewService(cfg Config, repo session.Repository) *Service {
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = DefaultConfig().MaxUploadSize
	}
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = DefaultConfig().PreviewRows
	}
	if cfg.Cluster.RowTolerance == 0 {
		cfg.Cluster = layout.DefaultClusterConfig()
	}
	if cfg.OCRLanguages == "" {
		cfg.OCRLanguages = DefaultConfig().OCRLanguages
	}
	if cfg.TextNumericThreshold <= 0 {
		cfg.TextNumericThreshold = table.TextNumericThreshold
	}
	if cfg.StructuredNumericThreshold <= 0 {
		cfg.StructuredNumericThreshold = table.StructuredNumericThreshold
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "."
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = "."
	}
	uploads, _ := storage.NewGuard(cfg.UploadDir)
	work, _ := storage.NewGuard(cfg.WorkDir)
	return &Service{
		cfg:      cfg,
		repo:     repo,
		analyzer: analyze.NewAnalyzerWithSamplePages(cfg.SamplePages),
		uploads:  uploads,
		work:     work,
		cancels:  make(map[string]context.CancelFunc),
		openDocument: func(path string) (extract.Document, error) {
			return extract.Open(path)
		},
		validateUpload: extract.NewValidator(cfg.MaxUploadSize).ValidateUpload,
		recognizePage: func(srcPath string, page int) (string, error) {
			return recognizePageImages(srcPath, page, cfg.OCRLanguages)
		},
		writeArtifact:  writer.WriteArtifact,
	}
}

// Wait blocks until all running workers have exited. Used on shutdown.
func (s *Service) Wait() {
	s.wg.Wait()
}

// UploadRequest carries an uploaded file.
type UploadRequest struct {
	Data     []byte
	Filename string
}

// UploadResult reports the created session.
type UploadResult struct {
	SessionID string `json:"session_id"`
	Filename  string `json:"filename"`
}

// Upload validates the file, stores it under the upload directory and
// creates a Pending session for it.
func (s *Service) Upload(req UploadRequest) (*UploadResult, error) {
	if len(req.Data) == 0 {
		return nil, &session.ValidationError{Reason: "empty upload"}
	}
	if int64(len(req.Data)) > s.cfg.MaxUploadSize {
		return nil, &session.ValidationError{
			Reason: fmt.Sprintf("file too large: %d bytes (max: %d bytes)", len(req.Data), s.cfg.MaxUploadSize),
		}
	}

	id := uuid.NewString()
	srcPath := s.uploads.Join(id + ".pdf")
	if err := os.WriteFile(srcPath, req.Data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	if _, err := s.validateUpload(srcPath, req.Filename); err != nil {
		os.Remove(srcPath)
		return nil, &session.ValidationError{Reason: err.Error()}
	}

	sess := session.New(id, req.Filename, srcPath)
	if err := s.repo.Put(sess); err != nil {
		os.Remove(srcPath)
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	return &UploadResult{SessionID: id, Filename: req.Filename}, nil
}

// StartRequest begins processing a session.
type StartRequest struct {
	SessionID    string
	OutputFormat string
}

// StartResult reports the post-start session status.
type StartResult struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// Start transitions a Pending session to Analyzing and launches its
// worker. "spreadsheet" is accepted as an alias for xlsx.
func (s *Service) Start(req StartRequest) (*StartResult, error) {
	format, err := normalizeFormat(req.OutputFormat)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(req.SessionID)
	defer unlock()

	sess, err := s.repo.Get(req.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != session.StatusPending {
		return nil, &session.InvalidTransitionError{Op: "start", Status: sess.Status}
	}

	sess.OutputFormat = format
	sess.Status = session.StatusAnalyzing
	if err := s.repo.Put(sess); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	s.launchWorker(req.SessionID)
	return &StartResult{SessionID: req.SessionID, Status: string(sess.Status)}, nil
}

// Pause suspends a Processing session. The worker observes the change at
// its next page checkpoint and exits.
func (s *Service) Pause(id string) (*session.Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	if sess.Status != session.StatusProcessing {
		return nil, &session.InvalidTransitionError{Op: "pause", Status: sess.Status}
	}

	sess.Status = session.StatusPaused
	if err := s.repo.Put(sess); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	s.signalWorker(id)
	return sess, nil
}

// Resume relaunches a Paused session's worker from the persisted page.
func (s *Service) Resume(id string) (*session.Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	if sess.Status != session.StatusPaused {
		return nil, &session.InvalidTransitionError{Op: "resume", Status: sess.Status}
	}

	sess.Status = session.StatusProcessing
	if err := s.repo.Put(sess); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	s.launchWorker(id)
	return sess, nil
}

// Cancel resets a session to Pending from any status, stopping its
// worker and removing any produced artifact.
func (s *Service) Cancel(id string) (*session.Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}

	s.signalWorker(id)

	// Session records live on disk; never follow an output path that
	// points outside the work directory.
	if sess.OutputPath != "" && s.work.Check(sess.OutputPath) == nil {
		os.Remove(sess.OutputPath)
	}
	removeCheckpoint(s.cfg.WorkDir, id)

	sess.Reset()
	if err := s.repo.Put(sess); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	return sess, nil
}

// Status returns the current session snapshot.
func (s *Service) Status(id string) (*session.Session, error) {
	return s.repo.Get(id)
}

// ProgressResult is the polling view of a running conversion.
type ProgressResult struct {
	SessionID   string                  `json:"session_id"`
	Status      string                  `json:"status"`
	Progress    int                     `json:"progress"`
	CurrentPage int                     `json:"current_page"`
	TotalPages  int                     `json:"total_pages"`
	Error       string                  `json:"error,omitempty"`
	Preview     []map[string]any        `json:"preview,omitempty"`
	Columns     []string                `json:"columns,omitempty"`
	Analysis    *session.AnalysisResult `json:"analysis,omitempty"`
}

// Progress returns the polling view of a session. Preview and columns
// are present only once the session has completed.
func (s *Service) Progress(id string) (*ProgressResult, error) {
	sess, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	return &ProgressResult{
		SessionID:   sess.ID,
		Status:      string(sess.Status),
		Progress:    sess.Progress,
		CurrentPage: sess.CurrentPage,
		TotalPages:  sess.TotalPages,
		Error:       sess.ErrorMessage,
		Preview:     sess.Preview,
		Columns:     sess.Columns,
		Analysis:    sess.Analysis,
	}, nil
}

// List returns all readable sessions. Corrupt records are skipped by
// the repository.
func (s *Service) List() ([]*session.Session, error) {
	return s.repo.List()
}

// DownloadResult carries a finished artifact.
type DownloadResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Download returns the artifact of a Completed session. The filename is
// the original upload's basename with the output extension.
func (s *Service) Download(id string) (*DownloadResult, error) {
	sess, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	if sess.Status != session.StatusCompleted {
		return nil, &session.InvalidTransitionError{Op: "download", Status: sess.Status}
	}
	if err := s.work.Check(sess.OutputPath); err != nil {
		return nil, session.ErrNotFound
	}

	data, err := os.ReadFile(sess.OutputPath)
	if os.IsNotExist(err) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	base := strings.TrimSuffix(sess.Filename, filepath.Ext(sess.Filename))
	return &DownloadResult{
		Filename:    base + "." + sess.OutputFormat,
		ContentType: contentTypeFor(sess.OutputFormat),
		Data:        data,
	}, nil
}

// ResetPreview clears the cached preview rows of a session.
func (s *Service) ResetPreview(id string) (*session.Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	sess.Preview = nil
	if err := s.repo.Put(sess); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	return sess, nil
}

// launchWorker starts the background worker for id. The caller must hold
// the session lock.
func (s *Service) launchWorker(id string) {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[id] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.cancels, id)
			s.mu.Unlock()
			cancel()
		}()
		s.runWorker(ctx, id)
	}()
}

// signalWorker cancels the worker context of id, if one is running.
func (s *Service) signalWorker(id string) {
	s.mu.Lock()
	cancel, ok := s.cancels[id]
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

func normalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case session.FormatCSV:
		return session.FormatCSV, nil
	case session.FormatXLSX, "spreadsheet":
		return session.FormatXLSX, nil
	default:
		return "", &session.ValidationError{Reason: fmt.Sprintf("unsupported output format: %s", format)}
	}
}

func contentTypeFor(format string) string {
	if format == session.FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}
