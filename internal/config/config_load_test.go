package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Helper function to reset pflag.CommandLine for testing
func resetFlags() {
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	viper.Reset()
}

// Helper function to set os.Args for testing
func setArgs(args []string) {
	os.Args = args
}

// Helper function to clear environment variables
func clearEnvVars() {
	os.Unsetenv("PDF2SHEET_MODE")
	os.Unsetenv("PDF2SHEET_HOST")
	os.Unsetenv("PDF2SHEET_PORT")
	os.Unsetenv("PDF2SHEET_UPLOADDIR")
	os.Unsetenv("PDF2SHEET_WORKDIR")
	os.Unsetenv("PDF2SHEET_LOGLEVEL")
	os.Unsetenv("PDF2SHEET_MAXUPLOADSIZE")
	os.Unsetenv("PDF2SHEET_OCRLANGS")
	os.Unsetenv("PDF2SHEET_ROWTOLERANCE")
	os.Unsetenv("PDF2SHEET_COLUMNTOLERANCE")
	os.Unsetenv("PDF2SHEET_TEXTNUMTHRESHOLD")
}

// storageArgs returns upload and work directory flags under a temp base.
func storageArgs(t *testing.T) []string {
	t.Helper()
	base := t.TempDir()
	return []string{
		"--uploaddir=" + filepath.Join(base, "uploads"),
		"--workdir=" + filepath.Join(base, "work"),
	}
}

func TestLoadFromFlags_DefaultConfig(t *testing.T) {
	// Save original args and environment
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	// Storage flags only, so defaults do not litter the source tree
	setArgs(append([]string{"pdf2sheet"}, storageArgs(t)...))
	resetFlags()
	clearEnvVars()

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	// Verify default values
	if cfg.Mode != "server" {
		t.Errorf("LoadFromFlags() Mode = %v, want %v", cfg.Mode, "server")
	}
	if cfg.Host != "127.0.0.1" {
		t.Errorf("LoadFromFlags() Host = %v, want %v", cfg.Host, "127.0.0.1")
	}
	if cfg.Port != 8080 {
		t.Errorf("LoadFromFlags() Port = %v, want %v", cfg.Port, 8080)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LoadFromFlags() LogLevel = %v, want %v", cfg.LogLevel, "info")
	}
	if cfg.MaxUploadSize != 10*1024*1024 {
		t.Errorf("LoadFromFlags() MaxUploadSize = %v, want %v", cfg.MaxUploadSize, 10*1024*1024)
	}
	if cfg.OCRLanguages != "eng" {
		t.Errorf("LoadFromFlags() OCRLanguages = %v, want %v", cfg.OCRLanguages, "eng")
	}
	if cfg.RowTolerance != 10.0 {
		t.Errorf("LoadFromFlags() RowTolerance = %v, want %v", cfg.RowTolerance, 10.0)
	}
	if cfg.TextNumericThreshold != 0.50 {
		t.Errorf("LoadFromFlags() TextNumericThreshold = %v, want %v", cfg.TextNumericThreshold, 0.50)
	}
	if cfg.UploadDir == "" {
		t.Error("LoadFromFlags() UploadDir should not be empty")
	}
	if cfg.SessionDir == "" {
		t.Error("LoadFromFlags() SessionDir should not be empty")
	}
}

func TestLoadFromFlags_ValidFlags(t *testing.T) {
	tests := []struct {
		name              string
		extraArgs         []string
		wantMode          string
		wantHost          string
		wantPort          int
		wantLogLevel      string
		wantMaxUploadSize int64
	}{
		{
			name:              "server mode defaults",
			extraArgs:         nil,
			wantMode:          "server",
			wantHost:          "127.0.0.1",
			wantPort:          8080,
			wantLogLevel:      "info",
			wantMaxUploadSize: 10 * 1024 * 1024,
		},
		{
			name:              "stdio mode",
			extraArgs:         []string{"--mode=stdio"},
			wantMode:          "stdio",
			wantHost:          "127.0.0.1",
			wantPort:          8080,
			wantLogLevel:      "info",
			wantMaxUploadSize: 10 * 1024 * 1024,
		},
		{
			name:              "custom host and port",
			extraArgs:         []string{"--host=0.0.0.0", "--port=9090"},
			wantMode:          "server",
			wantHost:          "0.0.0.0",
			wantPort:          9090,
			wantLogLevel:      "info",
			wantMaxUploadSize: 10 * 1024 * 1024,
		},
		{
			name:              "debug logging",
			extraArgs:         []string{"--loglevel=debug"},
			wantMode:          "server",
			wantHost:          "127.0.0.1",
			wantPort:          8080,
			wantLogLevel:      "debug",
			wantMaxUploadSize: 10 * 1024 * 1024,
		},
		{
			name:              "custom max upload size",
			extraArgs:         []string{"--maxuploadsize=5000000"},
			wantMode:          "server",
			wantHost:          "127.0.0.1",
			wantPort:          8080,
			wantLogLevel:      "info",
			wantMaxUploadSize: 5000000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Save original args and environment
			originalArgs := os.Args
			defer func() {
				os.Args = originalArgs
				resetFlags()
				clearEnvVars()
			}()

			args := append([]string{"pdf2sheet"}, storageArgs(t)...)
			args = append(args, tt.extraArgs...)

			setArgs(args)
			resetFlags()
			clearEnvVars()

			cfg, err := LoadFromFlags()
			if err != nil {
				t.Fatalf("LoadFromFlags() unexpected error: %v", err)
			}

			if cfg.Mode != tt.wantMode {
				t.Errorf("LoadFromFlags() Mode = %v, want %v", cfg.Mode, tt.wantMode)
			}
			if cfg.Host != tt.wantHost {
				t.Errorf("LoadFromFlags() Host = %v, want %v", cfg.Host, tt.wantHost)
			}
			if cfg.Port != tt.wantPort {
				t.Errorf("LoadFromFlags() Port = %v, want %v", cfg.Port, tt.wantPort)
			}
			if cfg.LogLevel != tt.wantLogLevel {
				t.Errorf("LoadFromFlags() LogLevel = %v, want %v", cfg.LogLevel, tt.wantLogLevel)
			}
			if cfg.MaxUploadSize != tt.wantMaxUploadSize {
				t.Errorf("LoadFromFlags() MaxUploadSize = %v, want %v", cfg.MaxUploadSize, tt.wantMaxUploadSize)
			}
			// Directories should be expanded to absolute paths
			if !filepath.IsAbs(cfg.UploadDir) {
				t.Errorf("LoadFromFlags() UploadDir should be absolute, got %v", cfg.UploadDir)
			}
			if !filepath.IsAbs(cfg.WorkDir) {
				t.Errorf("LoadFromFlags() WorkDir should be absolute, got %v", cfg.WorkDir)
			}
		})
	}
}

func TestLoadFromFlags_EnvironmentVariables(t *testing.T) {
	// Save original args and environment
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	base := t.TempDir()

	// Set environment variables
	os.Setenv("PDF2SHEET_MODE", "stdio")
	os.Setenv("PDF2SHEET_HOST", "192.168.1.1")
	os.Setenv("PDF2SHEET_PORT", "3000")
	os.Setenv("PDF2SHEET_UPLOADDIR", filepath.Join(base, "uploads"))
	os.Setenv("PDF2SHEET_WORKDIR", filepath.Join(base, "work"))
	os.Setenv("PDF2SHEET_LOGLEVEL", "warn")
	os.Setenv("PDF2SHEET_MAXUPLOADSIZE", "20000000")
	os.Setenv("PDF2SHEET_OCRLANGS", "eng+heb")

	setArgs([]string{"pdf2sheet"})
	resetFlags()

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "stdio" {
		t.Errorf("LoadFromFlags() Mode = %v, want %v", cfg.Mode, "stdio")
	}
	if cfg.Host != "192.168.1.1" {
		t.Errorf("LoadFromFlags() Host = %v, want %v", cfg.Host, "192.168.1.1")
	}
	if cfg.Port != 3000 {
		t.Errorf("LoadFromFlags() Port = %v, want %v", cfg.Port, 3000)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LoadFromFlags() LogLevel = %v, want %v", cfg.LogLevel, "warn")
	}
	if cfg.MaxUploadSize != 20000000 {
		t.Errorf("LoadFromFlags() MaxUploadSize = %v, want %v", cfg.MaxUploadSize, 20000000)
	}
	if cfg.OCRLanguages != "eng+heb" {
		t.Errorf("LoadFromFlags() OCRLanguages = %v, want %v", cfg.OCRLanguages, "eng+heb")
	}
}

func TestLoadFromFlags_PipelineTuning(t *testing.T) {
	// Save original args and environment
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	os.Setenv("PDF2SHEET_TEXTNUMTHRESHOLD", "0.65")

	args := append([]string{"pdf2sheet",
		"--rowtolerance=6.5",
		"--columntolerance=12",
		"--minboundaryhits=3",
		"--boundaryratio=0.2",
		"--structurednumthreshold=0.8",
	}, storageArgs(t)...)
	setArgs(args)
	resetFlags()

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.RowTolerance != 6.5 {
		t.Errorf("LoadFromFlags() RowTolerance = %v, want %v", cfg.RowTolerance, 6.5)
	}
	if cfg.ColumnTolerance != 12.0 {
		t.Errorf("LoadFromFlags() ColumnTolerance = %v, want %v", cfg.ColumnTolerance, 12.0)
	}
	if cfg.MinBoundaryHits != 3 {
		t.Errorf("LoadFromFlags() MinBoundaryHits = %v, want %v", cfg.MinBoundaryHits, 3)
	}
	if cfg.BoundaryRatio != 0.2 {
		t.Errorf("LoadFromFlags() BoundaryRatio = %v, want %v", cfg.BoundaryRatio, 0.2)
	}
	if cfg.TextNumericThreshold != 0.65 {
		t.Errorf("LoadFromFlags() TextNumericThreshold = %v, want %v (from env)", cfg.TextNumericThreshold, 0.65)
	}
	if cfg.StructuredNumericThreshold != 0.8 {
		t.Errorf("LoadFromFlags() StructuredNumericThreshold = %v, want %v", cfg.StructuredNumericThreshold, 0.8)
	}
}

func TestLoadFromFlags_FlagOverridesEnvironment(t *testing.T) {
	// Save original args and environment
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	// Set environment variables
	os.Setenv("PDF2SHEET_MODE", "stdio")
	os.Setenv("PDF2SHEET_HOST", "192.168.1.1")
	os.Setenv("PDF2SHEET_PORT", "3000")

	// Set args that should override environment
	args := append([]string{"pdf2sheet", "--mode=server", "--host=localhost", "--port=8888"}, storageArgs(t)...)
	setArgs(args)
	resetFlags()

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	// Flags should override environment variables
	if cfg.Mode != "server" {
		t.Errorf("LoadFromFlags() Mode = %v, want %v (should override env)", cfg.Mode, "server")
	}
	if cfg.Host != "localhost" {
		t.Errorf("LoadFromFlags() Host = %v, want %v (should override env)", cfg.Host, "localhost")
	}
	if cfg.Port != 8888 {
		t.Errorf("LoadFromFlags() Port = %v, want %v (should override env)", cfg.Port, 8888)
	}
}

func TestLoadFromFlags_InvalidMode(t *testing.T) {
	// Save original args
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	args := append([]string{"pdf2sheet", "--mode=invalid"}, storageArgs(t)...)
	setArgs(args)
	resetFlags()
	clearEnvVars()

	_, err := LoadFromFlags()
	if err == nil {
		t.Error("LoadFromFlags() expected error for invalid mode")
	}
	if err != nil && !containsString(err.Error(), "mode must be either 'stdio' or 'server'") {
		t.Errorf("LoadFromFlags() error = %v, want error about invalid mode", err)
	}
}

func TestLoadFromFlags_InvalidPort(t *testing.T) {
	// Save original args
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	args := append([]string{"pdf2sheet", "--port=99999"}, storageArgs(t)...)
	setArgs(args)
	resetFlags()
	clearEnvVars()

	_, err := LoadFromFlags()
	if err == nil {
		t.Error("LoadFromFlags() expected error for invalid port")
	}
	if err != nil && !containsString(err.Error(), "port must be between 1 and 65535") {
		t.Errorf("LoadFromFlags() error = %v, want error about invalid port", err)
	}
}

func TestLoadFromFlags_InvalidLogLevel(t *testing.T) {
	// Save original args
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	args := append([]string{"pdf2sheet", "--loglevel=invalid"}, storageArgs(t)...)
	setArgs(args)
	resetFlags()
	clearEnvVars()

	_, err := LoadFromFlags()
	if err == nil {
		t.Error("LoadFromFlags() expected error for invalid log level")
	}
	if err != nil && !containsString(err.Error(), "invalid log level") {
		t.Errorf("LoadFromFlags() error = %v, want error about invalid log level", err)
	}
}

func TestLoadFromFlags_VersionFlag(t *testing.T) {
	// Save original args
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	setArgs([]string{"pdf2sheet", "--version"})
	resetFlags()
	clearEnvVars()

	_, err := LoadFromFlags()
	if err == nil {
		t.Error("LoadFromFlags() expected version error")
	}
	if err != nil && err.Error() != "version requested" {
		t.Errorf("LoadFromFlags() error = %v, want 'version requested'", err)
	}
}

// Helper function to check if a string contains a substring
func containsString(s, substr string) bool {
	return len(s) >= len(substr) &&
		(s == substr ||
			(len(s) > len(substr) &&
				(s[:len(substr)] == substr ||
					s[len(s)-len(substr):] == substr ||
					findSubstring(s, substr))))
}

func findSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
