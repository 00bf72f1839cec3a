/*
Package pdftext converts PDF document bytes into plain text using pdfcpu.
*/
package pdftext

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/phuslu/log"
)

const scratchFileName = "document.pdf"

// Extractor extracts page text from PDF bytes. It keeps a single scratch
// file that is overwritten on every call; callers must not assume a
// previous document survives between calls.
type Extractor struct {
	tempDir string
	logger  *log.Logger
}

// NewExtractor creates an extractor with a working directory under the
// system temp dir.
func NewExtractor(logger *log.Logger) (*Extractor, error) {
	tempDir := filepath.Join(os.TempDir(), "concallscraper")
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory %s: %w", tempDir, err)
	}
	return &Extractor{tempDir: tempDir, logger: logger}, nil
}

// Text decodes each page in order and concatenates the extracted text with
// a page-separating newline. Pages yielding no text contribute nothing.
// A document with no extractable text at all (scanned images with no text
// layer) returns an empty string, which callers treat as a processing
// failure; it is not an error here.
func (e *Extractor) Text(pdfBytes []byte) (string, error) {
	scratch := filepath.Join(e.tempDir, scratchFileName)
	if err := os.WriteFile(scratch, pdfBytes, 0o644); err != nil {
		return "", fmt.Errorf("failed to write scratch PDF file: %w", err)
	}

	pdfCtx, err := api.ReadContextFile(scratch)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF: %w", err)
	}
	pageCount := pdfCtx.PageCount

	outDir := filepath.Join(e.tempDir, "pages")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create page output directory: %w", err)
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(scratch, outDir, nil, conf); err != nil {
		return "", fmt.Errorf("failed to extract PDF content: %w", err)
	}

	pageTexts := make(map[int]string)
	files, err := os.ReadDir(outDir)
	if err != nil {
		return "", fmt.Errorf("failed to read page output directory: %w", err)
	}
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(file.Name(), "Content_page_%d", &pageNum); err != nil {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			e.logger.Warn().Err(err).Str("file", file.Name()).Msg("failed to read extracted page")
			continue
		}
		pageTexts[pageNum] = string(content)
	}

	var sb strings.Builder
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		text := strings.TrimSpace(pageTexts[pageNum])
		if text == "" {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	return sb.String(), nil
}
