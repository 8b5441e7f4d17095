//go:build !ocr

// Package ocr recognizes text in images extracted from scanned PDF
// pages.
//
// This is the stub used when the "ocr" build tag is not set; every
// operation returns ErrNotEnabled. Rebuild with -tags ocr (Tesseract
// must be installed) to enable recognition.
package ocr

import "errors"

// ErrNotEnabled is returned when OCR is invoked but support was not
// compiled in.
var ErrNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// Client is a stub that fails every operation with ErrNotEnabled.
type Client struct{}

// New returns a stub client. Creation itself succeeds so callers can
// defer the error to the first recognition attempt.
func New() (*Client, error) { return &Client{}, nil }

// Close is a no-op on the stub.
func (c *Client) Close() error { return nil }

// SetLanguage fails with ErrNotEnabled.
func (c *Client) SetLanguage(string) error { return ErrNotEnabled }

// RecognizeFile fails with ErrNotEnabled.
func (c *Client) RecognizeFile(string) (string, error) { return "", ErrNotEnabled }

// Enabled reports whether OCR support was compiled in.
func Enabled() bool { return false }
