package convert

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/pdf2sheet/pdf2sheet/internal/analyze"
	"github.com/pdf2sheet/pdf2sheet/internal/extract"
	"github.com/pdf2sheet/pdf2sheet/internal/layout"
	"github.com/pdf2sheet/pdf2sheet/internal/ocr"
	"github.com/pdf2sheet/pdf2sheet/internal/session"
	"github.com/pdf2sheet/pdf2sheet/internal/table"
)

// runWorker executes the conversion pipeline for one session: analyze
// once, then process pages sequentially, checkpointing after each page.
// Pause and cancel take effect only at the page checkpoint.
func (s *Service) runWorker(ctx context.Context, id string) {
	sess, err := s.repo.Get(id)
	if err != nil {
		return
	}

	doc, err := s.openDocument(sess.SourcePath)
	if err != nil {
		s.fail(id, fmt.Errorf("failed to open source document: %w", err))
		return
	}
	defer doc.Close()

	if sess.Status == session.StatusAnalyzing {
		sess = s.analyzePhase(doc, id, sess)
		if sess == nil {
			return
		}
	}
	if sess.Status != session.StatusProcessing {
		return
	}

	cp, err := loadCheckpoint(s.cfg.WorkDir, id)
	if err != nil {
		s.fail(id, err)
		return
	}
	if cp.Strategy == "" {
		cp.Strategy = analyze.StrategyPlainText
		if sess.Analysis != nil {
			cp.Strategy = sess.Analysis.SuggestedStrategy
		}
	}

	total := sess.TotalPages
	for page := sess.CurrentPage + 1; page <= total; page++ {
		if ctx.Err() != nil {
			return
		}

		content, err := doc.Page(page)
		if err != nil {
			s.fail(id, fmt.Errorf("failed to process page %d: %w", page, err))
			return
		}
		if err := s.accumulate(cp, content, sess.SourcePath); err != nil {
			s.fail(id, fmt.Errorf("failed to process page %d: %w", page, err))
			return
		}

		if !s.checkpointPage(ctx, id, cp, page, total) {
			return
		}
	}

	s.finalize(id, cp)
}

// analyzePhase computes and caches the analysis result, then moves the
// session to Processing. A session whose analysis survived a cancel
// skips the sampling and only transitions. Returns the updated snapshot,
// or nil when the run should stop.
func (s *Service) analyzePhase(doc extract.Document, id string, sess *session.Session) *session.Session {
	analysis := sess.Analysis
	if analysis == nil {
		var err error
		analysis, err = s.analyzer.Analyze(doc)
		if err != nil {
			s.fail(id, fmt.Errorf("analysis failed: %w", err))
			return nil
		}
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	cur, err := s.repo.Get(id)
	if err != nil || cur.Status != session.StatusAnalyzing {
		return nil
	}
	cur.Analysis = analysis
	cur.TotalPages = analysis.PageCount
	cur.Status = session.StatusProcessing
	if err := s.repo.Put(cur); err != nil {
		log.Printf("session %s: failed to persist analysis: %v", id, err)
		return nil
	}
	return cur
}

// accumulate feeds one page into the checkpoint's candidate tables. The
// geometry reconstruction runs for every strategy; the strategy decides
// which additional source contributes.
func (s *Service) accumulate(cp *checkpoint, content *extract.PageContent, srcPath string) error {
	grid := layout.NewClustererWithConfig(s.cfg.Cluster).Grid(content.Fragments)
	cp.Geometry = append(cp.Geometry, layout.MergeContinuations(grid)...)

	switch cp.Strategy {
	case analyze.StrategyStructured:
		cp.Structured = append(cp.Structured, extract.Tables(content)...)
	case analyze.StrategyRTL:
		// Ruled tables can start after the sampled pages. Keep the
		// structured source in play and scan the plain text as well.
		cp.Structured = append(cp.Structured, extract.Tables(content)...)
		cp.Text = append(cp.Text, table.ScanText(content.PlainText)...)
	case analyze.StrategyOCR:
		text, err := s.recognizePage(srcPath, content.Number)
		if err != nil {
			return fmt.Errorf("OCR failed: %w", err)
		}
		cp.Text = append(cp.Text, table.ScanText(text)...)
	default:
		cp.Text = append(cp.Text, table.ScanText(content.PlainText)...)
	}
	return nil
}

// checkpointPage persists progress after a page and reports whether the
// loop may advance. Paused sessions get their progress recorded before
// the loop stops; a session reset underneath the worker is left alone.
func (s *Service) checkpointPage(ctx context.Context, id string, cp *checkpoint, page, total int) bool {
	unlock := s.locks.Lock(id)
	defer unlock()

	cur, err := s.repo.Get(id)
	if err != nil {
		return false
	}

	switch cur.Status {
	case session.StatusProcessing, session.StatusPaused:
		cur.CurrentPage = page
		cur.Progress = page * 100 / total
		if err := s.repo.Put(cur); err != nil {
			log.Printf("session %s: failed to persist progress: %v", id, err)
			return false
		}
		if err := saveCheckpoint(s.cfg.WorkDir, id, cp); err != nil {
			log.Printf("session %s: %v", id, err)
			return false
		}
	default:
		// Cancelled (reset to Pending) or externally rewritten. The
		// session record wins; this run is over.
		return false
	}

	return cur.Status == session.StatusProcessing && ctx.Err() == nil
}

// finalize assembles the accumulated candidates, writes the artifact and
// completes the session.
func (s *Service) finalize(id string, cp *checkpoint) {
	result := assembleCandidates(cp, s.cfg.StructuredNumericThreshold, s.cfg.TextNumericThreshold)

	sess, err := s.repo.Get(id)
	if err != nil {
		return
	}
	artifactPath := s.work.Join(id + "." + sess.OutputFormat)
	if err := s.writeArtifact(artifactPath, &result, sess.OutputFormat); err != nil {
		s.fail(id, fmt.Errorf("failed to write artifact: %w", err))
		return
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	cur, err := s.repo.Get(id)
	if err != nil || cur.Status != session.StatusProcessing {
		os.Remove(artifactPath)
		return
	}

	cur.Status = session.StatusCompleted
	cur.Progress = 100
	cur.CurrentPage = cur.TotalPages
	cur.OutputPath = artifactPath
	cur.Columns = append([]string(nil), result.Header...)
	cur.Preview = previewRows(result, s.cfg.PreviewRows)
	if err := s.repo.Put(cur); err != nil {
		log.Printf("session %s: failed to persist completion: %v", id, err)
		os.Remove(artifactPath)
		return
	}
	removeCheckpoint(s.cfg.WorkDir, id)
}

// fail moves a running session to Error, keeping its last checkpointed
// progress.
func (s *Service) fail(id string, cause error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.repo.Get(id)
	if err != nil {
		return
	}
	if sess.Status != session.StatusProcessing && sess.Status != session.StatusAnalyzing {
		return
	}
	sess.Status = session.StatusError
	sess.ErrorMessage = cause.Error()
	if err := s.repo.Put(sess); err != nil {
		log.Printf("session %s: failed to persist error state: %v", id, err)
	}
}

// assembleCandidates normalizes every accumulated candidate and runs the
// source-priority assembly. The structured path uses its stricter
// numeric threshold; geometry and text share the looser one.
func assembleCandidates(cp *checkpoint, structuredThreshold, textThreshold float64) table.Table {
	asm := table.NewAssembler()
	structured := table.NewNormalizer(structuredThreshold)
	loose := table.NewNormalizer(textThreshold)

	for _, grid := range cp.Structured {
		asm.Add(table.SourceStructured, structured.Normalize(grid))
	}
	if len(cp.Geometry) > 0 {
		asm.Add(table.SourceGeometry, loose.Normalize(cp.Geometry))
	}
	for _, grid := range cp.Text {
		asm.Add(table.SourceText, loose.Normalize(grid))
	}
	return asm.Assemble()
}

// previewRows renders the leading data rows as header-keyed maps.
func previewRows(t table.Table, n int) []map[string]any {
	if len(t.Rows) == 0 || len(t.Header) == 0 {
		return nil
	}
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	preview := make([]map[string]any, 0, n)
	for _, row := range t.Rows[:n] {
		entry := make(map[string]any, len(t.Header))
		for i, h := range t.Header {
			if i < len(row) {
				entry[h] = row[i].Value()
			}
		}
		preview = append(preview, entry)
	}
	return preview
}

// recognizePageImages extracts the images of one page and runs OCR over
// them with the configured languages. With the stub OCR build this fails
// with ocr.ErrNotEnabled, which surfaces as the session's error message.
func recognizePageImages(srcPath string, page int, languages string) (string, error) {
	dir, err := os.MkdirTemp("", "pdf2sheet-ocr-")
	if err != nil {
		return "", fmt.Errorf("failed to create OCR scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	paths, err := extract.ExtractPageImages(srcPath, page, dir)
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", nil
	}

	client, err := ocr.New()
	if err != nil {
		return "", err
	}
	defer client.Close()

	if languages != "" {
		if err := client.SetLanguage(languages); err != nil {
			return "", err
		}
	}

	var parts []string
	for _, p := range paths {
		text, err := client.RecognizeFile(p)
		if err != nil {
			return "", err
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n"), nil
}
