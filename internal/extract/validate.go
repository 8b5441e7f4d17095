package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Validator checks uploaded files before they enter the pipeline.
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a validator enforcing the given size limit.
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{maxFileSize: maxFileSize}
}

// ValidateUpload verifies that the file at path is a readable PDF within
// the size limit and returns its page count. filename is the name the
// client supplied, used for the extension check.
func (v *Validator) ValidateUpload(path, filename string) (int, error) {
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return 0, fmt.Errorf("file is not a PDF: %s", filename)
	}

	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return 0, fmt.Errorf("cannot access file: %w", err)
	}
	if fileInfo.IsDir() {
		return 0, fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if fileInfo.Size() == 0 {
		return 0, fmt.Errorf("file is empty: %s", filename)
	}
	if fileInfo.Size() > v.maxFileSize {
		return 0, fmt.Errorf("file too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), v.maxFileSize)
	}

	return pageCount(path)
}

// pageCount parses the document structure with pdfcpu and returns the
// number of pages. Relaxed validation accepts the slightly out-of-spec
// files real-world tools produce.
func pageCount(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(file, conf)
	if err != nil {
		return 0, fmt.Errorf("invalid PDF file: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0, fmt.Errorf("failed to determine page count: %w", err)
	}
	return ctx.PageCount, nil
}
