package core

import (
	"time"
)

// Fixed strings shown to users when part of the pipeline degrades.
const (
	MessageNoText        = "Nenhum texto detectado."
	LabelModelError      = "Erro no modelo"
	CategoryUnavailable  = "LLM_INDISPONIVEL"
	CategoryFailed       = "ERROR"
	CategoryUnknown      = "UNKNOWN"
	ReplyUnavailable     = "LLM não disponível para gerar resposta."
	ReplyFailed          = "Erro ao gerar resposta automática."
	extractionMessageFmt = "Erro ao processar arquivo: %v"
)

// Email represents an email message
type Email struct {
	From    string
	To      []string
	Subject string
	Body    string
	Headers map[string][]string
}

// ClassificationRequest carries either pasted text or an uploaded file. The
// file wins when both are set.
type ClassificationRequest struct {
	Text     string
	FileName string
	FileData []byte
}

// CategoryResult is the secondary LLM classification. Confidence uses the
// model's own 1-10 scale and is not normalised against the local score.
type CategoryResult struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// ClassificationResult is the complete answer for one request. Degraded parts
// keep their sentinel values and report the cause in the *Error fields.
type ClassificationResult struct {
	ProcessingID       string    `json:"processing_id"`
	OriginalText       string    `json:"original_text"`
	Label              string    `json:"label"`
	Confidence         float64   `json:"confidence"`
	Category           string    `json:"category"`
	CategoryConfidence float64   `json:"category_confidence"`
	SuggestedReply     string    `json:"suggested_reply"`
	CategoryCached     bool      `json:"category_cached,omitempty"`
	AnalyzedAt         time.Time `json:"analyzed_at"`

	LocalError    string `json:"local_error,omitempty"`
	CategoryError string `json:"category_error,omitempty"`
	ReplyError    string `json:"reply_error,omitempty"`
}

// Degraded reports whether any stage fell back to a sentinel.
func (r *ClassificationResult) Degraded() bool {
	return r.LocalError != "" || r.CategoryError != "" || r.ReplyError != ""
}

// CacheEntry stores an LLM category keyed by a digest of the email text.
type CacheEntry struct {
	Key        string
	Category   string
	Confidence float64
	CreatedAt  time.Time
	ExpiresAt  time.Time
}
