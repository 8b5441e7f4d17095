package table

import (
	"regexp"
	"strings"
)

// multiSpace splits cells on runs of two or more spaces when no explicit
// delimiter is present.
var multiSpace = regexp.MustCompile(`\s{2,}`)

// ScanText detects table-like blocks in plain page text, the weakest
// extraction path. Contiguous lines carrying delimiter patterns (tabs,
// double spaces, pipes, semicolons or commas) form a block; blank lines
// end it. Each block is split on its dominant delimiter and kept only
// when every line yields the same cell count with more than one column.
func ScanText(text string) [][][]string {
	var blocks [][]string
	var current []string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		if hasTabularShape(line) {
			current = append(current, line)
		}
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}

	var tables [][][]string
	for _, block := range blocks {
		if rows := splitBlock(block); rows != nil {
			tables = append(tables, rows)
		}
	}
	return tables
}

func hasTabularShape(line string) bool {
	return strings.ContainsRune(line, '\t') ||
		strings.Contains(line, "  ") ||
		strings.ContainsRune(line, '|') ||
		strings.ContainsRune(line, ';') ||
		strings.ContainsRune(line, ',')
}

// splitBlock splits each line of the block on the dominant delimiter
// (pipe, then semicolon, then comma, falling back to runs of spaces)
// and returns the rows when the column count is consistent and
// tabular.
func splitBlock(block []string) [][]string {
	delimiter := ""
	switch {
	case strings.ContainsRune(block[0], '|'):
		delimiter = "|"
	case strings.ContainsRune(block[0], ';'):
		delimiter = ";"
	case strings.ContainsRune(block[0], ','):
		delimiter = ","
	}

	var rows [][]string
	for _, line := range block {
		var cells []string
		if delimiter != "" {
			cells = strings.Split(line, delimiter)
		} else {
			cells = multiSpace.Split(line, -1)
		}

		kept := cells[:0]
		for _, cell := range cells {
			if cell = strings.TrimSpace(cell); cell != "" {
				kept = append(kept, cell)
			}
		}
		if len(kept) > 0 {
			rows = append(rows, kept)
		}
	}

	if len(rows) == 0 {
		return nil
	}
	cols := len(rows[0])
	if cols <= 1 {
		return nil
	}
	for _, row := range rows {
		if len(row) != cols {
			return nil
		}
	}
	return rows
}
