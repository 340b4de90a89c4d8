// Package extract turns uploaded files into plain text for classification.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/utils"
)

// FileExtractor reads PDF uploads with a PDF parser and treats every other
// file as text, dropping bytes that are not valid UTF-8.
type FileExtractor struct {
	textProcessor *utils.TextProcessor
	logger        *zap.Logger
}

// NewFileExtractor creates a new extractor
func NewFileExtractor(textProcessor *utils.TextProcessor, logger *zap.Logger) *FileExtractor {
	return &FileExtractor{textProcessor: textProcessor, logger: logger}
}

// Extract returns the text content of the named file.
func (e *FileExtractor) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return e.extractPDF(filename, data)
	}
	return e.textProcessor.DecodeBestEffort(data), nil
}

// extractPDF returns an error only when the document cannot be opened. Pages
// whose text cannot be decoded are skipped.
func (e *FileExtractor) extractPDF(filename string, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf parser failed: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("invalid pdf: %w", err)
	}

	var sb strings.Builder
	skipped := 0
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			skipped++
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}
	if skipped > 0 {
		e.logger.Warn("Skipped unreadable PDF pages",
			zap.String("file", filename),
			zap.Int("skipped", skipped),
			zap.Int("pages", reader.NumPage()))
	}
	return e.textProcessor.SanitizeUTF8(sb.String()), nil
}
