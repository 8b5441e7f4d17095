// Package writer produces the downloadable artifacts of a conversion:
// delimited text and single-sheet XLSX workbooks.
package writer

import (
	"fmt"
	"os"

	"github.com/pdf2sheet/pdf2sheet/internal/session"
	"github.com/pdf2sheet/pdf2sheet/internal/table"
)

// ArtifactWriter renders a table into an output file.
type ArtifactWriter interface {
	WriteFile(path string, t *table.Table) error
	Extension() string
}

// ForFormat returns the writer for an output format.
func ForFormat(format string) (ArtifactWriter, error) {
	switch format {
	case session.FormatCSV:
		return NewCSVWriter(), nil
	case session.FormatXLSX:
		return NewXLSXWriter(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteArtifact renders t at path in the given format. When the styled
// writer fails it retries once with the format's minimal fallback writer
// so a session can still complete with a plain artifact.
func WriteArtifact(path string, t *table.Table, format string) error {
	w, err := ForFormat(format)
	if err != nil {
		return err
	}
	if err := w.WriteFile(path, t); err != nil {
		os.Remove(path)
		if fbErr := fallbackFor(format).WriteFile(path, t); fbErr != nil {
			os.Remove(path)
			return fmt.Errorf("failed to write artifact: %w", err)
		}
	}
	return nil
}

func fallbackFor(format string) ArtifactWriter {
	if format == session.FormatXLSX {
		return newMinimalXLSXWriter()
	}
	return newMinimalCSVWriter()
}
