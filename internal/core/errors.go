package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInput            = errors.New("input error")
	ErrModelUnavailable = errors.New("model unavailable")
	ErrExternalService  = errors.New("external service error")
	ErrLLMUnavailable   = errors.New("llm unavailable")
	ErrExtraction       = errors.New("extraction error")
)

// RequestError fails a single request with a message meant for the end user.
type RequestError struct {
	Kind    error
	Message string
	Err     error
}

func (e *RequestError) Error() string { return e.Message }

func (e *RequestError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// ErrNoText is returned when neither the text field nor the file yields text.
var ErrNoText = &RequestError{Kind: ErrInput, Message: MessageNoText}

// NewExtractionError wraps a file decoding failure.
func NewExtractionError(err error) error {
	return &RequestError{Kind: ErrExtraction, Message: fmt.Sprintf(extractionMessageFmt, err), Err: err}
}

// UserMessage returns the text to show the user for err.
func UserMessage(err error) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Message
	}
	return "Erro interno ao processar a solicitação."
}

// Wrap tags err with a marker and an operation description so callers can
// classify it with errors.Is.
func Wrap(marker error, operation, message string, err error) error {
	detail := strings.TrimSpace(operation)
	if message = strings.TrimSpace(message); message != "" {
		if detail != "" {
			detail += ": "
		}
		detail += message
	}
	if detail == "" {
		detail = "service failure"
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}
