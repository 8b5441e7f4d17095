//go:build ocr

// Package ocr recognizes text in images extracted from scanned PDF
// pages. It wraps the Tesseract engine via gosseract and requires
// Tesseract to be installed on the system.
//
// Build with the "ocr" tag to enable this implementation:
//
//	go build -tags ocr
package ocr

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Client wraps a Tesseract session. Close it to release resources.
type Client struct {
	client *gosseract.Client
}

// New creates an OCR client with the default language (English).
func New() (*Client, error) {
	return &Client{client: gosseract.NewClient()}, nil
}

// Close releases Tesseract resources.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// SetLanguage sets the recognition language(s). Multiple languages are
// given as a "+" separated string, e.g. "eng+heb".
func (c *Client) SetLanguage(lang string) error {
	return c.client.SetLanguage(lang)
}

// RecognizeFile performs OCR on an image file and returns the recognized
// text with surrounding whitespace trimmed.
func (c *Client) RecognizeFile(path string) (string, error) {
	if err := c.client.SetImage(path); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	text, err := c.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Enabled reports whether OCR support was compiled in.
func Enabled() bool { return true }
