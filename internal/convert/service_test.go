package convert

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdf2sheet/pdf2sheet/internal/extract"
	"github.com/pdf2sheet/pdf2sheet/internal/layout"
	"github.com/pdf2sheet/pdf2sheet/internal/session"
)

const (
	waitFor = 5 * time.Second
	tick    = 5 * time.Millisecond
)

// fakeDocument serves canned pages, optionally gating each Page call on
// a channel so tests can hold the worker at a page boundary.
type fakeDocument struct {
	pages   []*extract.PageContent
	release chan struct{}
}

func (d *fakeDocument) PageCount() int { return len(d.pages) }

func (d *fakeDocument) Page(n int) (*extract.PageContent, error) {
	if d.release != nil {
		<-d.release
	}
	if n < 1 || n > len(d.pages) {
		return nil, fmt.Errorf("page %d out of range", n)
	}
	return d.pages[n-1], nil
}

func (d *fakeDocument) Close() error { return nil }

// frag positions text in an 8-unit-tall box; rows pitched 20 units apart
// group cleanly under the default tolerances.
func frag(text string, left, top float64) layout.TextFragment {
	return layout.TextFragment{
		Text: text,
		BBox: layout.BBox{Left: left, Top: top, Right: left + 30, Bottom: top + 8},
	}
}

// tablePage lays out two-column rows at lefts 10 and 80.
func tablePage(n int, rows [][2]string) *extract.PageContent {
	page := &extract.PageContent{Number: n}
	top := 10.0
	for _, row := range rows {
		page.Fragments = append(page.Fragments,
			frag(row[0], 10, top),
			frag(row[1], 80, top),
		)
		top += 20
	}
	return page
}

type testService struct {
	*Service
	repo *session.FileRepository
}

func newTestService(t *testing.T, doc *fakeDocument) *testService {
	t.Helper()
	base := t.TempDir()
	repo, err := session.NewFileRepository(base + "/sessions")
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.UploadDir = base
	cfg.WorkDir = base

	svc := NewService(cfg, repo)
	svc.openDocument = func(string) (extract.Document, error) { return doc, nil }
	svc.validateUpload = func(string, string) (int, error) { return len(doc.pages), nil }
	t.Cleanup(svc.Wait)
	return &testService{Service: svc, repo: repo}
}

func uploadFixture(t *testing.T, svc *testService) string {
	t.Helper()
	res, err := svc.Upload(UploadRequest{Data: []byte("%PDF-fixture"), Filename: "report.pdf"})
	require.NoError(t, err)
	return res.SessionID
}

func waitForStatus(t *testing.T, svc *testService, id string, want session.Status) *session.Session {
	t.Helper()
	var sess *session.Session
	require.Eventually(t, func() bool {
		s, err := svc.Status(id)
		if err != nil {
			return false
		}
		sess = s
		return s.Status == want
	}, waitFor, tick, "session never reached %s", want)
	return sess
}

// preAnalyze caches an analysis result on the session so the worker
// skips the sampling phase. Tests that gate Page calls need this, since
// analysis reads pages through the same document.
func preAnalyze(t *testing.T, svc *testService, id string) {
	t.Helper()
	sess, err := svc.repo.Get(id)
	require.NoError(t, err)
	sess.Analysis = &session.AnalysisResult{PageCount: 3, SuggestedStrategy: "plain-text"}
	sess.TotalPages = 3
	require.NoError(t, svc.repo.Put(sess))
}

func threePageDoc() *fakeDocument {
	return &fakeDocument{pages: []*extract.PageContent{
		tablePage(1, [][2]string{{"Name", "Amount"}, {"Ada", "125"}}),
		tablePage(2, [][2]string{{"Grace", "200"}, {"Edsger", "75"}}),
		tablePage(3, [][2]string{{"Barbara", "310"}, {"Alan", "88"}}),
	}}
}

func TestNewServiceFillsConfigDefaults(t *testing.T) {
	repo, err := session.NewFileRepository(t.TempDir() + "/sessions")
	require.NoError(t, err)

	svc := NewService(Config{UploadDir: t.TempDir(), WorkDir: t.TempDir()}, repo)
	assert.Equal(t, "eng", svc.cfg.OCRLanguages)
	assert.Equal(t, 0.50, svc.cfg.TextNumericThreshold)
	assert.Equal(t, 0.70, svc.cfg.StructuredNumericThreshold)

	cfg := DefaultConfig()
	cfg.UploadDir = t.TempDir()
	cfg.WorkDir = t.TempDir()
	cfg.OCRLanguages = "eng+heb"
	svc = NewService(cfg, repo)
	assert.Equal(t, "eng+heb", svc.cfg.OCRLanguages)
}

func TestUploadCreatesPendingSession(t *testing.T) {
	svc := newTestService(t, threePageDoc())
	id := uploadFixture(t, svc)

	sess, err := svc.Status(id)
	require.NoError(t, err)
	assert.Equal(t, session.StatusPending, sess.Status)
	assert.Equal(t, "report.pdf", sess.Filename)
	assert.FileExists(t, sess.SourcePath)
}

func TestUploadRejections(t *testing.T) {
	svc := newTestService(t, threePageDoc())

	_, err := svc.Upload(UploadRequest{Filename: "empty.pdf"})
	assert.True(t, session.IsValidation(err), "empty upload: %v", err)

	big := UploadRequest{Data: make([]byte, 11*1024*1024), Filename: "big.pdf"}
	_, err = svc.Upload(big)
	assert.True(t, session.IsValidation(err), "oversized upload: %v", err)

	svc.validateUpload = func(path, filename string) (int, error) {
		return 0, fmt.Errorf("file is not a PDF: %s", filename)
	}
	_, err = svc.Upload(UploadRequest{Data: []byte("x"), Filename: "notes.txt"})
	assert.True(t, session.IsValidation(err), "wrong type: %v", err)
}

func TestConversionCompletesWithUnionOfRows(t *testing.T) {
	svc := newTestService(t, threePageDoc())
	id := uploadFixture(t, svc)

	_, err := svc.Start(StartRequest{SessionID: id, OutputFormat: "csv"})
	require.NoError(t, err)

	sess := waitForStatus(t, svc, id, session.StatusCompleted)
	assert.Equal(t, 100, sess.Progress)
	assert.Equal(t, 3, sess.CurrentPage)
	assert.Equal(t, 3, sess.TotalPages)
	assert.Equal(t, []string{"Name", "Amount"}, sess.Columns)
	// Header counted once: 5 data rows across the three pages.
	assert.Len(t, sess.Preview, 5)
	assert.FileExists(t, sess.OutputPath)

	require.NotNil(t, sess.Analysis)
	assert.Equal(t, "plain-text", sess.Analysis.SuggestedStrategy)
}

func TestStartValidations(t *testing.T) {
	svc := newTestService(t, threePageDoc())
	id := uploadFixture(t, svc)

	_, err := svc.Start(StartRequest{SessionID: id, OutputFormat: "docx"})
	assert.True(t, session.IsValidation(err))

	_, err = svc.Start(StartRequest{SessionID: "missing", OutputFormat: "csv"})
	assert.ErrorIs(t, err, session.ErrNotFound)

	_, err = svc.Start(StartRequest{SessionID: id, OutputFormat: "csv"})
	require.NoError(t, err)
	waitForStatus(t, svc, id, session.StatusCompleted)

	_, err = svc.Start(StartRequest{SessionID: id, OutputFormat: "csv"})
	assert.True(t, session.IsInvalidTransition(err))
}

func TestSpreadsheetAliasProducesXLSX(t *testing.T) {
	svc := newTestService(t, threePageDoc())
	id := uploadFixture(t, svc)

	_, err := svc.Start(StartRequest{SessionID: id, OutputFormat: "spreadsheet"})
	require.NoError(t, err)

	sess := waitForStatus(t, svc, id, session.StatusCompleted)
	assert.Equal(t, session.FormatXLSX, sess.OutputFormat)

	dl, err := svc.Download(id)
	require.NoError(t, err)
	assert.Equal(t, "report.xlsx", dl.Filename)
}

func TestPauseResumeContinuesFromCheckpoint(t *testing.T) {
	doc := threePageDoc()
	doc.release = make(chan struct{})
	svc := newTestService(t, doc)
	id := uploadFixture(t, svc)
	preAnalyze(t, svc, id)

	_, err := svc.Start(StartRequest{SessionID: id, OutputFormat: "csv"})
	require.NoError(t, err)

	// Let the worker through page 1, then hold it at the page-2 fetch.
	doc.release <- struct{}{}
	require.Eventually(t, func() bool {
		s, err := svc.Status(id)
		return err == nil && s.Status == session.StatusProcessing && s.CurrentPage == 1
	}, waitFor, tick)

	_, err = svc.Pause(id)
	require.NoError(t, err)

	// The in-flight page finishes; pause takes effect at its checkpoint.
	close(doc.release)
	sess := waitForStatus(t, svc, id, session.StatusPaused)
	assert.GreaterOrEqual(t, sess.CurrentPage, 1)
	assert.Less(t, sess.CurrentPage, 3)
	resumeFrom := sess.CurrentPage

	resumed, err := svc.Resume(id)
	require.NoError(t, err)
	assert.Equal(t, resumeFrom, resumed.CurrentPage)

	final := waitForStatus(t, svc, id, session.StatusCompleted)
	// No page reprocessed, none skipped: still exactly 5 data rows.
	assert.Len(t, final.Preview, 5)
	assert.Equal(t, []string{"Name", "Amount"}, final.Columns)
}

func TestPauseRequiresProcessing(t *testing.T) {
	svc := newTestService(t, threePageDoc())
	id := uploadFixture(t, svc)

	_, err := svc.Pause(id)
	assert.True(t, session.IsInvalidTransition(err))

	_, err = svc.Resume(id)
	assert.True(t, session.IsInvalidTransition(err))
}

func TestCancelResetsSessionAndRemovesArtifact(t *testing.T) {
	svc := newTestService(t, threePageDoc())
	id := uploadFixture(t, svc)

	_, err := svc.Start(StartRequest{SessionID: id, OutputFormat: "csv"})
	require.NoError(t, err)
	completed := waitForStatus(t, svc, id, session.StatusCompleted)
	artifact := completed.OutputPath

	sess, err := svc.Cancel(id)
	require.NoError(t, err)
	assert.Equal(t, session.StatusPending, sess.Status)
	assert.Zero(t, sess.Progress)
	assert.Zero(t, sess.CurrentPage)
	assert.NoFileExists(t, artifact)
	assert.NotNil(t, sess.Analysis, "cancel keeps the cached analysis")
}

func TestCancelWhileRunning(t *testing.T) {
	doc := threePageDoc()
	doc.release = make(chan struct{})
	svc := newTestService(t, doc)
	id := uploadFixture(t, svc)
	preAnalyze(t, svc, id)

	_, err := svc.Start(StartRequest{SessionID: id, OutputFormat: "csv"})
	require.NoError(t, err)

	doc.release <- struct{}{}
	require.Eventually(t, func() bool {
		s, err := svc.Status(id)
		return err == nil && s.CurrentPage == 1
	}, waitFor, tick)

	sess, err := svc.Cancel(id)
	require.NoError(t, err)
	assert.Equal(t, session.StatusPending, sess.Status)
	close(doc.release)

	// The draining worker must not resurrect the cancelled run.
	time.Sleep(50 * time.Millisecond)
	svc.Wait()
	after, err := svc.Status(id)
	require.NoError(t, err)
	assert.Equal(t, session.StatusPending, after.Status)
	assert.Zero(t, after.CurrentPage)
}

func TestDownloadGating(t *testing.T) {
	svc := newTestService(t, threePageDoc())
	id := uploadFixture(t, svc)

	_, err := svc.Download(id)
	assert.True(t, session.IsInvalidTransition(err), "pending session must not download")

	_, err = svc.Download("missing")
	assert.ErrorIs(t, err, session.ErrNotFound)

	_, err = svc.Start(StartRequest{SessionID: id, OutputFormat: "csv"})
	require.NoError(t, err)
	sess := waitForStatus(t, svc, id, session.StatusCompleted)

	dl, err := svc.Download(id)
	require.NoError(t, err)
	assert.Equal(t, "report.csv", dl.Filename)
	assert.NotEmpty(t, dl.Data)

	// Artifact removed out of band: download reports it missing.
	require.NoError(t, os.Remove(sess.OutputPath))
	_, err = svc.Download(id)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestWorkerFailureMovesSessionToError(t *testing.T) {
	doc := threePageDoc()
	svc := newTestService(t, doc)
	id := uploadFixture(t, svc)

	svc.openDocument = func(string) (extract.Document, error) {
		return nil, errors.New("corrupt xref table")
	}

	_, err := svc.Start(StartRequest{SessionID: id, OutputFormat: "csv"})
	require.NoError(t, err)

	sess := waitForStatus(t, svc, id, session.StatusError)
	assert.Contains(t, sess.ErrorMessage, "corrupt xref table")
	assert.Empty(t, sess.OutputPath)
}

func TestProgressView(t *testing.T) {
	svc := newTestService(t, threePageDoc())
	id := uploadFixture(t, svc)

	p, err := svc.Progress(id)
	require.NoError(t, err)
	assert.Equal(t, string(session.StatusPending), p.Status)
	assert.Nil(t, p.Preview)

	_, err = svc.Start(StartRequest{SessionID: id, OutputFormat: "csv"})
	require.NoError(t, err)
	waitForStatus(t, svc, id, session.StatusCompleted)

	p, err = svc.Progress(id)
	require.NoError(t, err)
	assert.Equal(t, 100, p.Progress)
	assert.NotEmpty(t, p.Preview)
	assert.Equal(t, []string{"Name", "Amount"}, p.Columns)
	require.NotNil(t, p.Analysis)
}

func TestResetPreview(t *testing.T) {
	svc := newTestService(t, threePageDoc())
	id := uploadFixture(t, svc)

	_, err := svc.Start(StartRequest{SessionID: id, OutputFormat: "csv"})
	require.NoError(t, err)
	waitForStatus(t, svc, id, session.StatusCompleted)

	sess, err := svc.ResetPreview(id)
	require.NoError(t, err)
	assert.Nil(t, sess.Preview)
	assert.Equal(t, session.StatusCompleted, sess.Status)
}

func TestListSessions(t *testing.T) {
	svc := newTestService(t, threePageDoc())
	a := uploadFixture(t, svc)
	b := uploadFixture(t, svc)

	sessions, err := svc.List()
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	ids := map[string]bool{}
	for _, s := range sessions {
		ids[s.ID] = true
	}
	assert.True(t, ids[a] && ids[b])
}

func TestNormalizeFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"csv", "csv", false},
		{"xlsx", "xlsx", false},
		{"spreadsheet", "xlsx", false},
		{"XLSX", "xlsx", false},
		{" csv ", "csv", false},
		{"docx", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := normalizeFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
