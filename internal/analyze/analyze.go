// Package analyze inspects a PDF document and suggests the extraction
// strategy best suited to its content.
package analyze

import (
	"fmt"

	"github.com/pdf2sheet/pdf2sheet/internal/extract"
	"github.com/pdf2sheet/pdf2sheet/internal/rtl"
	"github.com/pdf2sheet/pdf2sheet/internal/session"
)

// Extraction strategies, ordered by preference. A document with ruled
// tables always uses the structured path; RTL text beats the OCR path
// because embedded text is more reliable than recognition.
const (
	StrategyStructured = "structured"
	StrategyRTL        = "rtl-optimized"
	StrategyOCR        = "ocr"
	StrategyPlainText  = "plain-text"
)

// DefaultSamplePages bounds how many leading pages the analyzer inspects.
// Sampling keeps analysis fast on large documents; content flags are
// accumulated across the sampled pages.
const DefaultSamplePages = 3

// Analyzer probes document content to pick an extraction strategy.
type Analyzer struct {
	samplePages int
}

// NewAnalyzer creates an analyzer sampling the default number of pages.
func NewAnalyzer() *Analyzer {
	return NewAnalyzerWithSamplePages(DefaultSamplePages)
}

// NewAnalyzerWithSamplePages creates an analyzer with a custom sample
// window. Values below 1 fall back to the default.
func NewAnalyzerWithSamplePages(pages int) *Analyzer {
	if pages < 1 {
		pages = DefaultSamplePages
	}
	return &Analyzer{samplePages: pages}
}

// Analyze samples the leading pages of doc and returns the content flags
// and suggested strategy.
func (a *Analyzer) Analyze(doc extract.Document) (*session.AnalysisResult, error) {
	result := &session.AnalysisResult{
		PageCount: doc.PageCount(),
	}

	sample := a.samplePages
	if result.PageCount < sample {
		sample = result.PageCount
	}

	for n := 1; n <= sample; n++ {
		page, err := doc.Page(n)
		if err != nil {
			return nil, fmt.Errorf("failed to analyze page %d: %w", n, err)
		}
		if len(extract.Tables(page)) > 0 {
			result.HasTables = true
		}
		if page.ImageCount > 0 {
			result.HasImages = true
		}
		if pageHasRTL(page) {
			result.HasRTLText = true
		}
	}

	result.SuggestedStrategy = suggest(result)
	return result, nil
}

func pageHasRTL(page *extract.PageContent) bool {
	if rtl.ContainsRTL(page.PlainText) {
		return true
	}
	for _, frag := range page.Fragments {
		if rtl.ContainsRTL(frag.Text) {
			return true
		}
	}
	return false
}

func suggest(r *session.AnalysisResult) string {
	switch {
	case r.HasTables:
		return StrategyStructured
	case r.HasRTLText:
		return StrategyRTL
	case r.HasImages:
		return StrategyOCR
	default:
		return StrategyPlainText
	}
}

// ValidStrategy reports whether name is a known extraction strategy.
func ValidStrategy(name string) bool {
	switch name {
	case StrategyStructured, StrategyRTL, StrategyOCR, StrategyPlainText:
		return true
	}
	return false
}
