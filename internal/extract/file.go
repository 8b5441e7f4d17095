package extract

import (
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/ledongthuc/pdf"

	"github.com/pdf2sheet/pdf2sheet/internal/layout"
)

const (
	// defaultFontSize is used when the PDF does not report a size for a
	// text run. ledongthuc/pdf leaves FontSize zero in that case.
	defaultFontSize = 12.0

	// defaultPageHeight is the US Letter height in points, used when a
	// page carries no usable MediaBox.
	defaultPageHeight = 792.0

	// baselineTolerance decides whether two runs share a baseline.
	baselineTolerance = 2.0
)

// FileDocument reads pages from a PDF file on disk using ledongthuc/pdf.
type FileDocument struct {
	file   *os.File
	reader *pdf.Reader
}

// Open opens a PDF file for page extraction. The returned document must
// be closed when no longer needed.
func Open(path string) (*FileDocument, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &FileDocument{file: f, reader: reader}, nil
}

// PageCount returns the number of pages in the document.
func (d *FileDocument) PageCount() int {
	return d.reader.NumPage()
}

// Close releases the underlying file handle.
func (d *FileDocument) Close() error {
	return d.file.Close()
}

// Page extracts the content of page n (1-based).
func (d *FileDocument) Page(n int) (*PageContent, error) {
	if n < 1 || n > d.reader.NumPage() {
		return nil, fmt.Errorf("page %d out of range (document has %d pages)", n, d.reader.NumPage())
	}

	page := d.reader.Page(n)
	if page.V.IsNull() {
		return &PageContent{Number: n}, nil
	}

	height := pageHeight(page)
	content := page.Content()

	result := &PageContent{
		Number:     n,
		Fragments:  assembleFragments(content.Text, height),
		Rules:      convertRules(content.Rect, height),
		ImageCount: countImages(page),
	}

	// Plain text is best effort. Pages with broken font maps still
	// contribute their positioned fragments.
	if text, err := page.GetPlainText(nil); err == nil {
		result.PlainText = text
	}

	return result, nil
}

// pageHeight reads the MediaBox height of a page, falling back to the
// US Letter height when the box is missing or malformed.
func pageHeight(page pdf.Page) float64 {
	box := page.V.Key("MediaBox")
	if box.IsNull() || box.Kind() != pdf.Array || box.Len() != 4 {
		return defaultPageHeight
	}
	h := box.Index(3).Float64() - box.Index(1).Float64()
	if h <= 0 {
		return defaultPageHeight
	}
	return h
}

// assembleFragments converts raw text runs into word-level fragments.
// PDF content streams frequently emit one run per glyph, so runs sharing
// a baseline are joined when the horizontal gap between them is small
// relative to the font size. Coordinates are flipped to a top-left origin.
func assembleFragments(runs []pdf.Text, height float64) []layout.TextFragment {
	if len(runs) == 0 {
		return nil
	}

	sorted := make([]pdf.Text, len(runs))
	copy(sorted, runs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if math.Abs(sorted[i].Y-sorted[j].Y) >= baselineTolerance {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var fragments []layout.TextFragment
	var (
		current  string
		left     float64
		right    float64
		baseline float64
		size     float64
	)

	flush := func() {
		if current == "" {
			return
		}
		fragments = append(fragments, layout.TextFragment{
			Text: current,
			BBox: layout.BBox{
				Left:   left,
				Top:    height - baseline - size,
				Right:  right,
				Bottom: height - baseline,
			},
		})
		current = ""
	}

	for _, run := range sorted {
		if run.S == "" {
			continue
		}
		fs := run.FontSize
		if fs == 0 {
			fs = defaultFontSize
		}

		sameBaseline := current != "" && math.Abs(run.Y-baseline) < baselineTolerance
		gap := run.X - right
		if sameBaseline && gap <= fs*0.3 {
			current += run.S
			if run.X+run.W > right {
				right = run.X + run.W
			}
			if fs > size {
				size = fs
			}
			continue
		}

		flush()
		current = run.S
		left = run.X
		right = run.X + run.W
		baseline = run.Y
		size = fs
	}
	flush()

	return fragments
}

// convertRules flips ruling rectangles to the top-left origin used by
// the layout package.
func convertRules(rects []pdf.Rect, height float64) []layout.BBox {
	if len(rects) == 0 {
		return nil
	}
	rules := make([]layout.BBox, 0, len(rects))
	for _, r := range rects {
		rules = append(rules, layout.BBox{
			Left:   r.Min.X,
			Top:    height - r.Max.Y,
			Right:  r.Max.X,
			Bottom: height - r.Min.Y,
		})
	}
	return rules
}

// countImages counts image XObjects in the page resources. Malformed
// resource dictionaries can panic deep inside the value walker, so the
// count degrades to zero for such pages.
func countImages(page pdf.Page) (count int) {
	defer func() {
		if recover() != nil {
			count = 0
		}
	}()

	resources := page.V.Key("Resources")
	if resources.IsNull() {
		return 0
	}
	xObjects := resources.Key("XObject")
	if xObjects.IsNull() || xObjects.Kind() != pdf.Dict {
		return 0
	}

	for _, key := range xObjects.Keys() {
		obj := xObjects.Key(key)
		if obj.IsNull() {
			continue
		}
		if subtype := obj.Key("Subtype"); !subtype.IsNull() && subtype.Name() == "Image" {
			count++
		}
	}
	return count
}
