package layout

import "strings"

// MergeContinuations folds multi-line wrapped rows into their logical
// parent rows. A row is a continuation of the previously retained row
// when more than half of its leading cells, scanned left to right up to
// the first non-blank cell, are blank. Continuations are merged
// cell-wise into the retained row and never emitted on their own:
// a blank parent cell adopts the continuation's value, and two non-blank
// cells are joined with a single space. The scan is a single forward
// pass; only the immediately preceding retained row is ever amended.
func MergeContinuations(rows [][]string) [][]string {
	if len(rows) == 0 {
		return rows
	}

	merged := [][]string{cloneRow(rows[0])}

	for _, row := range rows[1:] {
		if !isContinuation(row) {
			merged = append(merged, cloneRow(row))
			continue
		}

		prev := merged[len(merged)-1]
		for i, cell := range row {
			if i >= len(prev) {
				break
			}
			if strings.TrimSpace(cell) == "" {
				continue
			}
			if strings.TrimSpace(prev[i]) == "" {
				prev[i] = cell
			} else {
				prev[i] += " " + cell
			}
		}
	}

	return merged
}

// isContinuation reports whether the row's blank prefix covers at least
// half of the row. Blanks are counted left to right up to the first
// non-blank cell.
func isContinuation(row []string) bool {
	leadingBlanks := 0
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			break
		}
		leadingBlanks++
	}
	return leadingBlanks >= 1 && leadingBlanks*2 >= len(row)
}

func cloneRow(row []string) []string {
	clone := make([]string, len(row))
	copy(clone, row)
	return clone
}
