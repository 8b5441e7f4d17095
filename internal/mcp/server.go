package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pdf2sheet/pdf2sheet/internal/config"
	"github.com/pdf2sheet/pdf2sheet/internal/convert"
	"github.com/pdf2sheet/pdf2sheet/internal/descriptions"
	"github.com/pdf2sheet/pdf2sheet/internal/session"
)

// Conversions is the conversion service surface the tools operate on.
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
}

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	svc       Conversions
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, svc Conversions) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("conversion service cannot be nil")
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:    cfg,
		svc:       svc,
		mcpServer: mcpServer,
	}

	// Register tools
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	uploadTool := mcp.NewTool(
		"convert_upload_file",
		mcp.WithDescription(descriptions.ConvertUploadFileDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
	)
	s.mcpServer.AddTool(uploadTool, s.handleUploadFile)

	startTool := mcp.NewTool(
		"convert_start",
		mcp.WithDescription(descriptions.ConvertStartDescription),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id returned by convert_upload_file"),
		),
		mcp.WithString("output_format",
			mcp.Required(),
			mcp.Description("Output format: csv, xlsx or spreadsheet"),
		),
	)
	s.mcpServer.AddTool(startTool, s.handleStart)

	pauseTool := mcp.NewTool(
		"convert_pause",
		mcp.WithDescription(descriptions.ConvertPauseDescription),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id of a running conversion"),
		),
	)
	s.mcpServer.AddTool(pauseTool, s.handlePause)

	resumeTool := mcp.NewTool(
		"convert_resume",
		mcp.WithDescription(descriptions.ConvertResumeDescription),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id of a paused conversion"),
		),
	)
	s.mcpServer.AddTool(resumeTool, s.handleResume)

	cancelTool := mcp.NewTool(
		"convert_cancel",
		mcp.WithDescription(descriptions.ConvertCancelDescription),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id to cancel"),
		),
	)
	s.mcpServer.AddTool(cancelTool, s.handleCancel)

	statusTool := mcp.NewTool(
		"convert_status",
		mcp.WithDescription(descriptions.ConvertStatusDescription),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id to inspect"),
		),
	)
	s.mcpServer.AddTool(statusTool, s.handleStatus)

	progressTool := mcp.NewTool(
		"convert_progress",
		mcp.WithDescription(descriptions.ConvertProgressDescription),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id to poll"),
		),
	)
	s.mcpServer.AddTool(progressTool, s.handleProgress)

	listTool := mcp.NewTool(
		"convert_list_sessions",
		mcp.WithDescription(descriptions.ConvertListSessionsDescription),
	)
	s.mcpServer.AddTool(listTool, s.handleListSessions)

	saveTool := mcp.NewTool(
		"convert_save_result",
		mcp.WithDescription(descriptions.ConvertSaveResultDescription),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id of a completed conversion"),
		),
		mcp.WithString("directory",
			mcp.Required(),
			mcp.Description("Existing directory to write the artifact into"),
		),
	)
	s.mcpServer.AddTool(saveTool, s.handleSaveResult)
}

// Handler functions
func (s *Server) handleUploadFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot read %s: %v", path, err)), nil
	}

	result, err := s.svc.Upload(convert.UploadRequest{
		Data:     data,
		Filename: filepath.Base(path),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Upload accepted: %s\n", result.Filename)
	responseText += fmt.Sprintf("Session ID: %s\n", result.SessionID)
	responseText += "Status: pending\n"
	responseText += "\nNext step: call convert_start with this session id and an output format (csv or xlsx).\n"

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format, err := request.RequireString("output_format")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.svc.Start(convert.StartRequest{SessionID: id, OutputFormat: format})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Conversion started for session %s\n", result.SessionID)
	responseText += fmt.Sprintf("Status: %s\n", result.Status)
	responseText += "\nPoll convert_progress to follow the conversion.\n"

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handlePause(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.controlTool(request, "paused", s.svc.Pause)
}

func (s *Server) handleResume(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.controlTool(request, "resumed", s.svc.Resume)
}

func (s *Server) handleCancel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.controlTool(request, "cancelled", s.svc.Cancel)
}

// controlTool runs a session_id keyed control operation and reports the
// resulting session state.
func (s *Server) controlTool(
	request mcp.CallToolRequest,
	verb string,
	op func(string) (*session.Session, error),
) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sess, err := op(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Session %s %s\n", sess.ID, verb)
	responseText += fmt.Sprintf("Status: %s\n", sess.Status)
	responseText += fmt.Sprintf("Progress: %d%% (page %d of %d)\n", sess.Progress, sess.CurrentPage, sess.TotalPages)

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sess, err := s.svc.Status(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatSession(sess)), nil
}

func (s *Server) handleProgress(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.svc.Progress(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatProgress(result)), nil
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := s.svc.List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(sessions) == 0 {
		return mcp.NewToolResultText("No conversion sessions found"), nil
	}

	responseText := fmt.Sprintf("Found %d conversion session(s)\n\n", len(sessions))
	for i, sess := range sessions {
		responseText += fmt.Sprintf("%d. %s\n", i+1, sess.ID)
		responseText += fmt.Sprintf("   File: %s\n", sess.Filename)
		responseText += fmt.Sprintf("   Status: %s\n", sess.Status)
		if sess.Status == session.StatusProcessing || sess.Status == session.StatusPaused {
			responseText += fmt.Sprintf("   Progress: %d%% (page %d of %d)\n",
				sess.Progress, sess.CurrentPage, sess.TotalPages)
		}
		if sess.ErrorMessage != "" {
			responseText += fmt.Sprintf("   Error: %s\n", sess.ErrorMessage)
		}
		if i < len(sessions)-1 {
			responseText += "\n"
		}
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleSaveResult(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	directory, err := request.RequireString("directory")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	info, err := os.Stat(directory)
	if err != nil || !info.IsDir() {
		return mcp.NewToolResultError(fmt.Sprintf("directory does not exist: %s", directory)), nil
	}

	result, err := s.svc.Download(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	target := filepath.Join(directory, result.Filename)
	if err := os.WriteFile(target, result.Data, 0o600); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot write %s: %v", target, err)), nil
	}

	responseText := fmt.Sprintf("Saved conversion result for session %s\n", id)
	responseText += fmt.Sprintf("File: %s\n", target)
	responseText += fmt.Sprintf("Size: %d bytes\n", len(result.Data))
	responseText += fmt.Sprintf("Content Type: %s\n", result.ContentType)

	return mcp.NewToolResultText(responseText), nil
}

// Formatting methods
func (s *Server) formatSession(sess *session.Session) string {
	text := "Conversion Session\n"
	text += fmt.Sprintf("ID: %s\n", sess.ID)
	text += fmt.Sprintf("File: %s\n", sess.Filename)
	text += fmt.Sprintf("Status: %s\n", sess.Status)
	text += fmt.Sprintf("Progress: %d%% (page %d of %d)\n", sess.Progress, sess.CurrentPage, sess.TotalPages)

	if sess.OutputFormat != "" {
		text += fmt.Sprintf("Output Format: %s\n", sess.OutputFormat)
	}
	if sess.ErrorMessage != "" {
		text += fmt.Sprintf("Error: %s\n", sess.ErrorMessage)
	}

	if sess.Analysis != nil {
		text += "\nDocument Analysis:\n"
		text += fmt.Sprintf("  Pages: %d\n", sess.Analysis.PageCount)
		text += fmt.Sprintf("  Has Tables: %t\n", sess.Analysis.HasTables)
		text += fmt.Sprintf("  Has Images: %t\n", sess.Analysis.HasImages)
		text += fmt.Sprintf("  Has RTL Text: %t\n", sess.Analysis.HasRTLText)
		text += fmt.Sprintf("  Strategy: %s\n", sess.Analysis.SuggestedStrategy)
	}

	if len(sess.Columns) > 0 {
		text += "\nResult Columns:\n"
		for _, col := range sess.Columns {
			text += fmt.Sprintf("  • %s\n", col)
		}
	}

	if len(sess.Preview) > 0 {
		text += fmt.Sprintf("\nPreview (%d row(s)):\n", len(sess.Preview))
		for i, row := range sess.Preview {
			text += fmt.Sprintf("  %d. ", i+1)
			for j, col := range sess.Columns {
				if j > 0 {
					text += " | "
				}
				text += fmt.Sprintf("%s=%v", col, row[col])
			}
			text += "\n"
		}
	}

	return text
}

func (s *Server) formatProgress(result *convert.ProgressResult) string {
	text := fmt.Sprintf("Session %s\n", result.SessionID)
	text += fmt.Sprintf("Status: %s\n", result.Status)
	text += fmt.Sprintf("Progress: %d%%\n", result.Progress)
	text += fmt.Sprintf("Pages: %d of %d\n", result.CurrentPage, result.TotalPages)

	if result.Error != "" {
		text += fmt.Sprintf("Error: %s\n", result.Error)
	}
	if result.Status == string(session.StatusCompleted) {
		text += "\nThe artifact is ready; use convert_save_result to write it to disk.\n"
	}

	return text
}

// Run serves the MCP tool interface over stdio
func (s *Server) Run(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting pdf2sheet MCP server in stdio mode")
		log.Printf("Upload directory: %s", s.config.UploadDir)
		log.Printf("Work directory: %s", s.config.WorkDir)
	}

	// Use the mark3labs/mcp-go server.ServeStdio function
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
