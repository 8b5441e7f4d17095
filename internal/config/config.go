package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdf2sheet/pdf2sheet/internal/layout"
	"github.com/pdf2sheet/pdf2sheet/internal/table"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort          = 8080
	DefaultHost          = "127.0.0.1"
	DefaultLogLevel      = "info"
	DefaultMaxUploadSize = 10 * 1024 * 1024 // 10MB
	DefaultPreviewRows   = 10
	DefaultSamplePages   = 3
	DefaultOCRLanguages  = "eng"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the conversion service
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Storage configuration
	UploadDir  string // uploaded source PDFs
	WorkDir    string // session records, checkpoints and artifacts
	SessionDir string // derived: WorkDir/sessions

	// Pipeline configuration
	MaxUploadSize int64 // maximum upload size in bytes
	PreviewRows   int   // result rows cached on the session
	SamplePages   int   // pages sampled during analysis
	OCRLanguages  string

	// Layout reconstruction tuning
	RowTolerance    float64 // vertical band for grouping fragments into rows
	ColumnTolerance float64 // clustering tolerance for column boundaries
	MinBoundaryHits int     // absolute floor on boundary cluster occurrences
	BoundaryRatio   float64 // relative floor as a fraction of fragment count

	// Numeric coercion thresholds per extraction path
	TextNumericThreshold       float64
	StructuredNumericThreshold float64

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Mode:                       ModeServer,
		Host:                       DefaultHost,
		Port:                       DefaultPort,
		UploadDir:                  filepath.Join(currentDir, "uploads"),
		WorkDir:                    filepath.Join(currentDir, "work"),
		MaxUploadSize:              DefaultMaxUploadSize,
		PreviewRows:                DefaultPreviewRows,
		SamplePages:                DefaultSamplePages,
		OCRLanguages:               DefaultOCRLanguages,
		RowTolerance:               layout.DefaultRowTolerance,
		ColumnTolerance:            layout.DefaultColumnTolerance,
		MinBoundaryHits:            layout.DefaultMinBoundaryHits,
		BoundaryRatio:              layout.DefaultBoundaryRatio,
		TextNumericThreshold:       table.TextNumericThreshold,
		StructuredNumericThreshold: table.StructuredNumericThreshold,
		Version:                    "1.0.0",
		ServerName:                 "pdf2sheet",
		LogLevel:                   DefaultLogLevel,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	if expanded, err := filepath.Abs(cfg.UploadDir); err == nil {
		cfg.UploadDir = expanded
	}
	if expanded, err := filepath.Abs(cfg.WorkDir); err == nil {
		cfg.WorkDir = expanded
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// Set environment variable prefix
	viper.SetEnvPrefix("PDF2SHEET")
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("uploaddir", cfg.UploadDir)
	viper.SetDefault("workdir", cfg.WorkDir)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxuploadsize", cfg.MaxUploadSize)
	viper.SetDefault("previewrows", cfg.PreviewRows)
	viper.SetDefault("samplepages", cfg.SamplePages)
	viper.SetDefault("ocrlangs", cfg.OCRLanguages)
	viper.SetDefault("rowtolerance", cfg.RowTolerance)
	viper.SetDefault("columntolerance", cfg.ColumnTolerance)
	viper.SetDefault("minboundaryhits", cfg.MinBoundaryHits)
	viper.SetDefault("boundaryratio", cfg.BoundaryRatio)
	viper.SetDefault("textnumthreshold", cfg.TextNumericThreshold)
	viper.SetDefault("structurednumthreshold", cfg.StructuredNumericThreshold)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'server' for the HTTP API, 'stdio' for the MCP tool interface")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("uploaddir", cfg.UploadDir, "Directory for uploaded source files")
	pflag.String("workdir", cfg.WorkDir, "Directory for session state and output artifacts")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxuploadsize", cfg.MaxUploadSize, "Maximum upload size in bytes")
	pflag.Int("previewrows", cfg.PreviewRows, "Result rows cached on completed sessions")
	pflag.Int("samplepages", cfg.SamplePages, "Pages sampled when analyzing a document")
	pflag.String("ocrlangs", cfg.OCRLanguages, "OCR languages, '+' separated (requires the ocr build)")
	pflag.Float64("rowtolerance", cfg.RowTolerance, "Vertical tolerance for grouping text into rows (page units)")
	pflag.Float64("columntolerance", cfg.ColumnTolerance, "Horizontal tolerance for clustering column boundaries (page units)")
	pflag.Int("minboundaryhits", cfg.MinBoundaryHits, "Minimum occurrences for a column boundary candidate")
	pflag.Float64("boundaryratio", cfg.BoundaryRatio, "Minimum fraction of fragments backing a column boundary")
	pflag.Float64("textnumthreshold", cfg.TextNumericThreshold, "Numeric column threshold on the text/geometry path")
	pflag.Float64("structurednumthreshold", cfg.StructuredNumericThreshold, "Numeric column threshold on the structured path")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("mode", pflag.Lookup("mode"))
	_ = viper.BindPFlag("host", pflag.Lookup("host"))
	_ = viper.BindPFlag("port", pflag.Lookup("port"))
	_ = viper.BindPFlag("uploaddir", pflag.Lookup("uploaddir"))
	_ = viper.BindPFlag("workdir", pflag.Lookup("workdir"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
	_ = viper.BindPFlag("maxuploadsize", pflag.Lookup("maxuploadsize"))
	_ = viper.BindPFlag("previewrows", pflag.Lookup("previewrows"))
	_ = viper.BindPFlag("samplepages", pflag.Lookup("samplepages"))
	_ = viper.BindPFlag("ocrlangs", pflag.Lookup("ocrlangs"))
	_ = viper.BindPFlag("rowtolerance", pflag.Lookup("rowtolerance"))
	_ = viper.BindPFlag("columntolerance", pflag.Lookup("columntolerance"))
	_ = viper.BindPFlag("minboundaryhits", pflag.Lookup("minboundaryhits"))
	_ = viper.BindPFlag("boundaryratio", pflag.Lookup("boundaryratio"))
	_ = viper.BindPFlag("textnumthreshold", pflag.Lookup("textnumthreshold"))
	_ = viper.BindPFlag("structurednumthreshold", pflag.Lookup("structurednumthreshold"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\npdf2sheet - converts PDF documents into CSV or XLSX datasets\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          # HTTP API on 127.0.0.1:8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --host=0.0.0.0 --port=9000               # API on all interfaces\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --workdir=/var/lib/pdf2sheet             # custom state directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=stdio                             # MCP tool interface\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  PDF2SHEET_MODE           Run mode\n")
		fmt.Fprintf(os.Stderr, "  PDF2SHEET_HOST           Server host\n")
		fmt.Fprintf(os.Stderr, "  PDF2SHEET_PORT           Server port\n")
		fmt.Fprintf(os.Stderr, "  PDF2SHEET_UPLOADDIR      Upload directory\n")
		fmt.Fprintf(os.Stderr, "  PDF2SHEET_WORKDIR        State directory\n")
		fmt.Fprintf(os.Stderr, "  PDF2SHEET_LOGLEVEL       Log level\n")
		fmt.Fprintf(os.Stderr, "  PDF2SHEET_MAXUPLOADSIZE  Maximum upload size\n")
		fmt.Fprintf(os.Stderr, "  PDF2SHEET_OCRLANGS       OCR languages\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.UploadDir = viper.GetString("uploaddir")
	cfg.WorkDir = viper.GetString("workdir")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxUploadSize = viper.GetInt64("maxuploadsize")
	cfg.PreviewRows = viper.GetInt("previewrows")
	cfg.SamplePages = viper.GetInt("samplepages")
	cfg.OCRLanguages = viper.GetString("ocrlangs")
	cfg.RowTolerance = viper.GetFloat64("rowtolerance")
	cfg.ColumnTolerance = viper.GetFloat64("columntolerance")
	cfg.MinBoundaryHits = viper.GetInt("minboundaryhits")
	cfg.BoundaryRatio = viper.GetFloat64("boundaryratio")
	cfg.TextNumericThreshold = viper.GetFloat64("textnumthreshold")
	cfg.StructuredNumericThreshold = viper.GetFloat64("structurednumthreshold")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.UploadDir == "" {
		return errors.New("upload directory cannot be empty")
	}
	if c.WorkDir == "" {
		return errors.New("work directory cannot be empty")
	}

	// Create the storage directories if they do not exist
	c.SessionDir = filepath.Join(c.WorkDir, "sessions")
	for _, dir := range []string{c.UploadDir, c.WorkDir, c.SessionDir} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
				return fmt.Errorf("cannot create directory %s: %w", dir, err)
			}
		} else if err != nil {
			return fmt.Errorf("cannot access directory %s: %w", dir, err)
		}
	}

	// Validate pipeline sizes
	if c.MaxUploadSize <= 0 {
		return errors.New("maximum upload size must be positive")
	}
	if c.PreviewRows <= 0 {
		return errors.New("preview rows must be positive")
	}
	if c.SamplePages <= 0 {
		return errors.New("sample pages must be positive")
	}

	// Validate layout and coercion tuning
	if c.RowTolerance <= 0 {
		return errors.New("row tolerance must be positive")
	}
	if c.ColumnTolerance <= 0 {
		return errors.New("column tolerance must be positive")
	}
	if c.MinBoundaryHits < 1 {
		return errors.New("minimum boundary hits must be at least 1")
	}
	if c.BoundaryRatio <= 0 || c.BoundaryRatio > 1 {
		return errors.New("boundary ratio must be in (0, 1]")
	}
	if c.TextNumericThreshold <= 0 || c.TextNumericThreshold > 1 {
		return errors.New("text numeric threshold must be in (0, 1]")
	}
	if c.StructuredNumericThreshold <= 0 || c.StructuredNumericThreshold > 1 {
		return errors.New("structured numeric threshold must be in (0, 1]")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, UploadDir: %s, WorkDir: %s, LogLevel: %s, MaxUploadSize: %d}",
		c.Mode, c.Host, c.Port, c.UploadDir, c.WorkDir, c.LogLevel, c.MaxUploadSize)
}

// IsServerMode returns true if the service runs the HTTP API
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the service runs the MCP stdio interface
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
