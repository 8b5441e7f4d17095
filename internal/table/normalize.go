package table

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pdf2sheet/pdf2sheet/internal/rtl"
)

// Numeric coercion thresholds. The geometry/plain-text path and the
// structured-extractor path intentionally use different cutoffs; both
// are preserved as independent knobs rather than unified.
const (
	TextNumericThreshold       = 0.50
	StructuredNumericThreshold = 0.70
)

// Normalizer turns a raw cell grid into a Table: the first row becomes
// the header, short rows are padded and long rows truncated to the
// grid's maximum column count, header names are sanitized, columns are
// numerically coerced, and RTL text is repaired for visual rendering.
type Normalizer struct {
	// NumericThreshold is the minimum fraction of non-blank values in a
	// column that must parse as numbers for the column to be coerced.
	NumericThreshold float64
}

// NewNormalizer creates a normalizer with the given coercion threshold.
func NewNormalizer(numericThreshold float64) *Normalizer {
	return &Normalizer{NumericThreshold: numericThreshold}
}

// Normalize converts a grid into a Table. The first row is assumed to be
// the header whenever any row exists; an empty grid yields an empty
// table.
func (n *Normalizer) Normalize(grid [][]string) Table {
	if len(grid) == 0 {
		return Table{}
	}

	maxCols := 0
	for _, row := range grid {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}

	header := SanitizeHeader(fitRow(grid[0], maxCols))
	for i, name := range header {
		if rtl.ContainsRTL(name) {
			header[i] = rtl.Fix(name)
		}
	}

	rows := make([][]Cell, 0, len(grid)-1)
	for _, raw := range grid[1:] {
		fitted := fitRow(raw, maxCols)
		row := make([]Cell, maxCols)
		for i, text := range fitted {
			row[i] = TextCell(text)
		}
		rows = append(rows, row)
	}

	t := Table{Header: header, Rows: rows}
	n.coerceNumericColumns(&t)
	fixRTLCells(&t)
	return t
}

// coerceNumericColumns converts a column to numbers when at least
// NumericThreshold of its non-blank values parse as numeric after
// stripping thousands separators and surrounding whitespace. Values
// that fail to parse in a coerced column stay as text.
func (n *Normalizer) coerceNumericColumns(t *Table) {
	for col := 0; col < t.Columns(); col++ {
		nonBlank, numeric := 0, 0
		for _, row := range t.Rows {
			if row[col].IsBlank() {
				continue
			}
			nonBlank++
			if _, ok := ParseNumber(row[col].Text); ok {
				numeric++
			}
		}
		if nonBlank == 0 || float64(numeric)/float64(nonBlank) < n.NumericThreshold {
			continue
		}
		for _, row := range t.Rows {
			if row[col].IsBlank() {
				continue
			}
			if f, ok := ParseNumber(row[col].Text); ok {
				row[col] = NumberCell(f)
			}
		}
	}
}

// fixRTLCells reshapes and reorders any remaining RTL text cells.
func fixRTLCells(t *Table) {
	for _, row := range t.Rows {
		for i, cell := range row {
			if !cell.Numeric && rtl.ContainsRTL(cell.Text) {
				row[i] = TextCell(rtl.Fix(cell.Text))
			}
		}
	}
}

// ParseNumber reports whether s represents a number once thousands
// separators and surrounding whitespace are stripped, returning the
// parsed value.
func ParseNumber(s string) (float64, bool) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(s, ",", ""), " ", ""))
	if cleaned == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// headerIllegal lists the characters stripped from header names because
// spreadsheet column identifiers cannot contain them.
const headerIllegal = `[]\/*?:'`

// SanitizeHeader cleans raw header names: illegal characters are
// stripped, and names that end up empty or duplicate an earlier name
// fall back to a positional placeholder.
func SanitizeHeader(raw []string) []string {
	header := make([]string, len(raw))
	seen := make(map[string]bool, len(raw))

	for i, name := range raw {
		cleaned := strings.TrimSpace(stripIllegal(name))
		if cleaned == "" || seen[cleaned] {
			cleaned = fmt.Sprintf("Column %d", i+1)
		}
		seen[cleaned] = true
		header[i] = cleaned
	}
	return header
}

func stripIllegal(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(headerIllegal, r) {
			return -1
		}
		return r
	}, s)
}

// fitRow pads a short row with blanks or truncates a long one so it has
// exactly cols cells.
func fitRow(row []string, cols int) []string {
	fitted := make([]string, cols)
	copy(fitted, row)
	return fitted
}
