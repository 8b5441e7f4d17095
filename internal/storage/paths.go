// Package storage guards file paths used by the conversion service so
// that uploads, checkpoints and artifacts never escape their
// configured directories.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Guard confines paths to a single base directory.
type Guard struct {
	dir string
}

// NewGuard creates a guard for the given directory.
func NewGuard(dir string) (*Guard, error) {
	if dir == "" {
		return nil, fmt.Errorf("guard directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve guard directory: %w", err)
	}
	return &Guard{dir: filepath.Clean(abs)}, nil
}

// Dir returns the guarded directory.
func (g *Guard) Dir() string {
	return g.dir
}

// Join builds a path for name inside the guarded directory. The name is
// reduced to its base component first, so traversal segments and
// separators smuggled into identifiers are discarded.
func (g *Guard) Join(name string) string {
	return filepath.Join(g.dir, filepath.Base(name))
}

// Check reports whether path resolves inside the guarded directory.
// Paths that are symlinks are resolved before the containment test.
func (g *Guard) Check(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	clean := filepath.Clean(abs)

	real := clean
	if info, err := os.Lstat(clean); err == nil && info.Mode()&os.ModeSymlink != 0 {
		if resolved, err := filepath.EvalSymlinks(clean); err == nil {
			real = resolved
		}
	}

	realDir := g.dir
	if resolved, err := filepath.EvalSymlinks(g.dir); err == nil {
		realDir = resolved
	}

	if !within(clean, g.dir) && !within(clean, realDir) {
		return fmt.Errorf("path is outside %s: %s", g.dir, path)
	}
	if !within(real, g.dir) && !within(real, realDir) {
		return fmt.Errorf("path is outside %s: %s", g.dir, path)
	}
	return nil
}

func within(path, dir string) bool {
	if path == dir {
		return true
	}
	sep := dir
	if !strings.HasSuffix(sep, string(filepath.Separator)) {
		sep += string(filepath.Separator)
	}
	return strings.HasPrefix(path, sep)
}
