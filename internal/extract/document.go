// Package extract reads PDF files into the intermediate page model the
// conversion pipeline works on: positioned text fragments, ruling
// rectangles, plain text, and image counts per page.
package extract

import (
	"github.com/pdf2sheet/pdf2sheet/internal/layout"
)

// PageContent holds everything extracted from a single page. Coordinates
// use a top-left origin so that smaller Top values are higher on the page.
type PageContent struct {
	Number     int
	Fragments  []layout.TextFragment
	Rules      []layout.BBox
	PlainText  string
	ImageCount int
}

// Document is a page-addressable source of PDF content. Pages are numbered
// from 1. Implementations are not safe for concurrent use.
type Document interface {
	PageCount() int
	Page(n int) (*PageContent, error)
	Close() error
}
