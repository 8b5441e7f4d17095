package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pdf2sheet/pdf2sheet/internal/api"
	"github.com/pdf2sheet/pdf2sheet/internal/config"
	"github.com/pdf2sheet/pdf2sheet/internal/convert"
	"github.com/pdf2sheet/pdf2sheet/internal/layout"
	"github.com/pdf2sheet/pdf2sheet/internal/mcp"
	"github.com/pdf2sheet/pdf2sheet/internal/session"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

const shutdownTimeout = 15 * time.Second

// setupLogging configures logging based on the run mode
func setupLogging(cfg *config.Config) {
	if cfg.IsStdioMode() {
		// In stdio mode, redirect log output to stderr to avoid interfering with MCP protocol
		log.SetOutput(os.Stderr)
		// Reduce log verbosity in stdio mode unless debug is enabled
		if !cfg.IsDebug() {
			log.SetOutput(os.NewFile(0, os.DevNull))
		}
	} else {
		// In server mode, use normal stdout logging with more detail
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
}

// newConversionService wires the conversion service from the loaded
// configuration.
func newConversionService(cfg *config.Config) (*convert.Service, error) {
	repo, err := session.NewFileRepository(cfg.SessionDir)
	if err != nil {
		return nil, err
	}

	svcCfg := convert.DefaultConfig()
	svcCfg.UploadDir = cfg.UploadDir
	svcCfg.WorkDir = cfg.WorkDir
	svcCfg.MaxUploadSize = cfg.MaxUploadSize
	svcCfg.PreviewRows = cfg.PreviewRows
	svcCfg.SamplePages = cfg.SamplePages
	svcCfg.OCRLanguages = cfg.OCRLanguages
	svcCfg.Cluster = layout.ClusterConfig{
		RowTolerance:    cfg.RowTolerance,
		ColumnTolerance: cfg.ColumnTolerance,
		MinBoundaryHits: cfg.MinBoundaryHits,
		BoundaryRatio:   cfg.BoundaryRatio,
	}
	svcCfg.TextNumericThreshold = cfg.TextNumericThreshold
	svcCfg.StructuredNumericThreshold = cfg.StructuredNumericThreshold

	return convert.NewService(svcCfg, repo), nil
}

// runServerMode serves the HTTP API with signal handling
func runServerMode(ctx context.Context, cfg *config.Config, svc *convert.Service) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if cfg.IsDebug() {
		r.Use(middleware.Logger)
	}

	api.NewServer(svc, cfg.MaxUploadSize, cfg.Version).RegisterHTTP(r)

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Set up signal handling for graceful shutdown
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	// Start server in a goroutine
	serverErrCh := make(chan error, 1)
	go func() {
		log.Printf("Serving HTTP API on %s", cfg.Address())
		serverErrCh <- srv.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-signalCh:
		log.Printf("Received signal: %s", sig)
		log.Println("Initiating graceful shutdown...")

		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown with error: %v", err)
		}

	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server error: %v", err)
			os.Exit(1)
		}
	}

	// Let running conversions reach their next page checkpoint
	svc.Wait()
	log.Println("Server stopped successfully")
}

// runStdioMode handles the MCP tool interface over stdio
func runStdioMode(ctx context.Context, cfg *config.Config, svc *convert.Service) {
	server, err := mcp.NewServer(cfg, svc)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	// In stdio mode, the parent process controls our lifecycle
	// We should exit cleanly when stdin is closed or we get an error
	if err := server.Run(ctx); err != nil {
		// Only log to stderr in debug mode to avoid protocol interference
		if os.Getenv("DEBUG") != "" {
			log.Printf("Server error: %v", err)
		}
		os.Exit(1)
	}

	svc.Wait()
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	// Load configuration from flags first
	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging based on mode
	setupLogging(cfg)

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() && cfg.IsServerMode() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	// Create the conversion service
	svc, err := newConversionService(cfg)
	if err != nil {
		log.Fatalf("Failed to create conversion service: %v", err)
	}

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle different modes
	if cfg.IsServerMode() {
		runServerMode(ctx, cfg, svc)
	} else {
		runStdioMode(ctx, cfg, svc)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("pdf2sheet\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
