package utils

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// TruncationMarker is appended to text cut by TruncateText.
const TruncationMarker = "\n[... conteúdo truncado por limite de tamanho ...]"

// TextProcessor prepares user text before it leaves the process.
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// TruncateText cuts text to at most maxSize bytes without splitting a UTF-8
// sequence. A non-positive maxSize disables the limit.
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	cut := maxSize
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	truncated := text[:cut]

	tp.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated + TruncationMarker
}

// SanitizeUTF8 drops invalid UTF-8 bytes, keeping everything else.
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	clean := strings.ToValidUTF8(text, "")
	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(clean)))
	return clean
}

// DecodeBestEffort turns raw upload bytes into text, ignoring undecodable
// bytes and normalising line endings.
func (tp *TextProcessor) DecodeBestEffort(data []byte) string {
	text := tp.SanitizeUTF8(string(data))
	return strings.ReplaceAll(text, "\r\n", "\n")
}

// ProcessText sanitizes then truncates text for an LLM prompt.
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	return tp.TruncateText(tp.SanitizeUTF8(text), maxSize)
}
