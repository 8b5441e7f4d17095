package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ExtractPageImages writes the images embedded on one page of the PDF at
// path into outDir and returns the written file paths. The caller owns
// outDir cleanup.
func ExtractPageImages(path string, page int, outDir string) ([]string, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	selected := []string{strconv.Itoa(page)}
	if err := api.ExtractImagesFile(path, outDir, selected, conf); err != nil {
		return nil, fmt.Errorf("failed to extract images from page %d: %w", page, err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read image directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(outDir, entry.Name()))
	}
	return paths, nil
}
