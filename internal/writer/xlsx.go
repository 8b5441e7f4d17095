package writer

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/pdf2sheet/pdf2sheet/internal/table"
)

// XLSX packaging boilerplate. A workbook is a ZIP archive of
// SpreadsheetML parts; these are the static ones for a single-sheet
// workbook named "Data".
const (
	xlsxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/>
<Override PartName="/xl/worksheets/sheet1.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/>
<Override PartName="/xl/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml"/>
</Types>`

	xlsxRootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="xl/workbook.xml"/>
</Relationships>`

	xlsxWorkbook = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets><sheet name="Data" sheetId="1" r:id="rId1"/></sheets>
</workbook>`

	xlsxWorkbookRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

	// Style indexes used in sheet cells: 1 = header (bold 12pt, E0E0E0
	// fill, centered), 2 = bordered text cell, 3 = bordered numeric
	// cell, right aligned.
	xlsxStyles = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<styleSheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<fonts count="2">
<font><sz val="11"/><name val="Calibri"/></font>
<font><b/><sz val="12"/><name val="Calibri"/></font>
</fonts>
<fills count="3">
<fill><patternFill patternType="none"/></fill>
<fill><patternFill patternType="gray125"/></fill>
<fill><patternFill patternType="solid"><fgColor rgb="FFE0E0E0"/></patternFill></fill>
</fills>
<borders count="2">
<border><left/><right/><top/><bottom/><diagonal/></border>
<border><left style="thin"/><right style="thin"/><top style="thin"/><bottom style="thin"/><diagonal/></border>
</borders>
<cellStyleXfs count="1"><xf numFmtId="0" fontId="0" fillId="0" borderId="0"/></cellStyleXfs>
<cellXfs count="4">
<xf numFmtId="0" fontId="0" fillId="0" borderId="0" xfId="0"/>
<xf numFmtId="0" fontId="1" fillId="2" borderId="1" xfId="0" applyFont="1" applyFill="1" applyBorder="1" applyAlignment="1"><alignment horizontal="center"/></xf>
<xf numFmtId="0" fontId="0" fillId="0" borderId="1" xfId="0" applyBorder="1"/>
<xf numFmtId="0" fontId="0" fillId="0" borderId="1" xfId="0" applyBorder="1" applyAlignment="1"><alignment horizontal="right"/></xf>
</cellXfs>
</styleSheet>`
)

const (
	styleHeader  = 1
	styleText    = 2
	styleNumeric = 3

	maxColumnWidth = 50.0
)

// XLSXWriter renders a styled single-sheet workbook.
type XLSXWriter struct {
	styled bool
}

// NewXLSXWriter creates a workbook writer with header and cell styling.
func NewXLSXWriter() *XLSXWriter {
	return &XLSXWriter{styled: true}
}

// newMinimalXLSXWriter creates the unstyled fallback writer.
func newMinimalXLSXWriter() *XLSXWriter {
	return &XLSXWriter{}
}

// Extension returns the artifact file extension.
func (w *XLSXWriter) Extension() string { return "xlsx" }

// WriteFile renders t at path.
func (w *XLSXWriter) WriteFile(path string, t *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	parts := map[string]string{
		"[Content_Types].xml":        xlsxContentTypes,
		"_rels/.rels":                xlsxRootRels,
		"xl/workbook.xml":            xlsxWorkbook,
		"xl/_rels/workbook.xml.rels": xlsxWorkbookRels,
		"xl/styles.xml":              xlsxStyles,
		"xl/worksheets/sheet1.xml":   w.sheetXML(t),
	}
	for _, name := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"xl/workbook.xml",
		"xl/_rels/workbook.xml.rels",
		"xl/styles.xml",
		"xl/worksheets/sheet1.xml",
	} {
		entry, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("failed to write workbook part %s: %w", name, err)
		}
		if _, err := entry.Write([]byte(parts[name])); err != nil {
			return fmt.Errorf("failed to write workbook part %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize workbook: %w", err)
	}
	return nil
}

// sheetXML builds the worksheet part: column widths sized to content,
// a styled header row, then the data rows.
func (w *XLSXWriter) sheetXML(t *table.Table) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">` + "\n")

	if w.styled && len(t.Header) > 0 {
		b.WriteString("<cols>")
		for i, width := range columnWidths(t) {
			fmt.Fprintf(&b, `<col min="%d" max="%d" width="%.2f" customWidth="1"/>`, i+1, i+1, width)
		}
		b.WriteString("</cols>\n")
	}

	b.WriteString("<sheetData>\n")
	b.WriteString(`<row r="1">`)
	for col, h := range t.Header {
		w.writeCell(&b, col, 1, table.TextCell(h), styleHeader)
	}
	b.WriteString("</row>\n")

	for r, row := range t.Rows {
		fmt.Fprintf(&b, `<row r="%d">`, r+2)
		for col, cell := range row {
			style := styleText
			if cell.Numeric {
				style = styleNumeric
			}
			w.writeCell(&b, col, r+2, cell, style)
		}
		b.WriteString("</row>\n")
	}
	b.WriteString("</sheetData>\n</worksheet>")
	return b.String()
}

func (w *XLSXWriter) writeCell(b *strings.Builder, col, row int, cell table.Cell, style int) {
	ref := columnName(col) + fmt.Sprint(row)
	styleAttr := ""
	if w.styled {
		styleAttr = fmt.Sprintf(` s="%d"`, style)
	}
	if cell.Numeric {
		fmt.Fprintf(b, `<c r="%s"%s t="n"><v>%s</v></c>`, ref, styleAttr, cell.String())
		return
	}
	fmt.Fprintf(b, `<c r="%s"%s t="inlineStr"><is><t xml:space="preserve">%s</t></is></c>`,
		ref, styleAttr, escapeXML(cell.Text))
}

// columnWidths sizes each column to its longest value with a little
// padding, capped so one long cell cannot blow up the layout.
func columnWidths(t *table.Table) []float64 {
	widths := make([]float64, len(t.Header))
	for i, h := range t.Header {
		widths[i] = float64(utf8.RuneCountInString(h))
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if n := float64(utf8.RuneCountInString(cell.String())); n > widths[i] {
				widths[i] = n
			}
		}
	}
	for i := range widths {
		widths[i] = (widths[i] + 2) * 1.2
		if widths[i] > maxColumnWidth {
			widths[i] = maxColumnWidth
		}
	}
	return widths
}

// columnName converts a zero-based column index to its A1-style letters.
func columnName(col int) string {
	name := ""
	for col >= 0 {
		name = string(rune('A'+col%26)) + name
		col = col/26 - 1
	}
	return name
}

func escapeXML(s string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return s
	}
	return b.String()
}
