// Package textex turns uploaded deck files into plain text.
package textex

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/venturesight/dealdesk/internal/config"
)

// Extractor extracts text content from an uploaded file.
type Extractor interface {
	Extract(ctx context.Context, filename string, content []byte) (string, error)
}

// pdfExtractor extracts text from a PDF on disk. Both providers work
// path-based because pdftotext only reads files.
type pdfExtractor interface {
	ExtractText(ctx context.Context, pdfPath string) (string, error)
}

type service struct {
	pdf pdfExtractor
}

// New creates an Extractor based on config.
func New(cfg config.ExtractConfig) (Extractor, error) {
	switch cfg.OCRProvider {
	case "local", "":
		return &service{pdf: NewPdfToText(cfg.PdfToTextPath)}, nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("textex: mistral provider requires mistral_api_key")
		}
		return &service{pdf: NewMistralOCR(cfg.MistralKey, cfg.MistralModel)}, nil
	default:
		return nil, eris.Errorf("textex: unknown ocr provider %q", cfg.OCRProvider)
	}
}

func (s *service) Extract(ctx context.Context, filename string, content []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md":
		if !utf8.Valid(content) {
			return "", eris.Errorf("textex: %s is not valid UTF-8", filename)
		}
		return string(content), nil
	case ".pdf":
		return s.extractPDF(ctx, content)
	default:
		return "", eris.Errorf("textex: unsupported file type %q", filepath.Ext(filename))
	}
}

func (s *service) extractPDF(ctx context.Context, content []byte) (string, error) {
	tmp, err := os.CreateTemp("", "dealdesk-*.pdf")
	if err != nil {
		return "", eris.Wrap(err, "textex: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return "", eris.Wrap(err, "textex: write temp file")
	}
	if err := tmp.Close(); err != nil {
		return "", eris.Wrap(err, "textex: close temp file")
	}

	text, err := s.pdf.ExtractText(ctx, tmp.Name())
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", eris.New("textex: no text extracted from PDF")
	}
	return text, nil
}
