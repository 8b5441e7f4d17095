package table

import (
	"reflect"
	"testing"
)

func TestScanTextPipeDelimited(t *testing.T) {
	text := "name | qty\nwidget | 3\ngadget | 7\n"

	tables := ScanText(text)
	if len(tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables))
	}
	want := [][]string{
		{"name", "qty"},
		{"widget", "3"},
		{"gadget", "7"},
	}
	if !reflect.DeepEqual(tables[0], want) {
		t.Errorf("rows = %v, want %v", tables[0], want)
	}
}

func TestScanTextWhitespaceDelimited(t *testing.T) {
	text := "name  qty\nwidget  3\n"

	tables := ScanText(text)
	if len(tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables))
	}
	if len(tables[0]) != 2 || len(tables[0][0]) != 2 {
		t.Errorf("unexpected shape: %v", tables[0])
	}
}

func TestScanTextBlankLineSplitsBlocks(t *testing.T) {
	text := "a;1\nb;2\n\nc;3\nd;4\n"

	tables := ScanText(text)
	if len(tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(tables))
	}
}

func TestScanTextRejectsInconsistentColumns(t *testing.T) {
	text := "a;1\nb;2;3\n"

	if tables := ScanText(text); tables != nil {
		t.Errorf("inconsistent block must be rejected, got %v", tables)
	}
}

func TestScanTextRejectsSingleColumn(t *testing.T) {
	// Trailing commas leave one cell per line after blank removal.
	text := "alpha,\nbeta,\n"

	if tables := ScanText(text); tables != nil {
		t.Errorf("single-column block must be rejected, got %v", tables)
	}
}

func TestScanTextProse(t *testing.T) {
	text := "This is a paragraph of prose.\nIt has no tabular structure.\n"

	if tables := ScanText(text); tables != nil {
		t.Errorf("prose must yield no tables, got %v", tables)
	}
}
