package writer

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/pdf2sheet/pdf2sheet/internal/table"
)

// utf8BOM marks the file as UTF-8 so spreadsheet applications decode
// non-ASCII cell text correctly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter renders delimited text with every field quoted and CRLF row
// endings. The delimiter is a comma unless any cell contains one, in
// which case the whole file switches to tabs.
type CSVWriter struct{}

// NewCSVWriter creates a delimited text writer.
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{}
}

// Extension returns the artifact file extension.
func (w *CSVWriter) Extension() string { return "csv" }

// WriteFile renders t at path.
func (w *CSVWriter) WriteFile(path string, t *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	if _, err := buf.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	delim := delimiterFor(t)
	if err := writeRow(buf, t.Header, delim); err != nil {
		return err
	}
	for _, row := range t.Rows {
		fields := make([]string, len(row))
		for i, cell := range row {
			fields[i] = cell.String()
		}
		if err := writeRow(buf, fields, delim); err != nil {
			return err
		}
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}

// delimiterFor picks tab over comma when any value contains a comma so
// tools that ignore quoting still split the file correctly.
func delimiterFor(t *table.Table) string {
	for _, h := range t.Header {
		if strings.Contains(h, ",") {
			return "\t"
		}
	}
	for _, row := range t.Rows {
		for _, cell := range row {
			if strings.Contains(cell.String(), ",") {
				return "\t"
			}
		}
	}
	return ","
}

func writeRow(buf *bufio.Writer, fields []string, delim string) error {
	for i, field := range fields {
		if i > 0 {
			if _, err := buf.WriteString(delim); err != nil {
				return fmt.Errorf("failed to write artifact: %w", err)
			}
		}
		quoted := `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
		if _, err := buf.WriteString(quoted); err != nil {
			return fmt.Errorf("failed to write artifact: %w", err)
		}
	}
	if _, err := buf.WriteString("\r\n"); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}

// minimalCSVWriter is the fallback used when the full writer fails. It
// emits plain comma-separated output with default quoting and no BOM.
type minimalCSVWriter struct{}

func newMinimalCSVWriter() *minimalCSVWriter { return &minimalCSVWriter{} }

func (w *minimalCSVWriter) Extension() string { return "csv" }

func (w *minimalCSVWriter) WriteFile(path string, t *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	for _, row := range t.Rows {
		fields := make([]string, len(row))
		for i, cell := range row {
			fields[i] = cell.String()
		}
		if err := cw.Write(fields); err != nil {
			return fmt.Errorf("failed to write artifact: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
