package filter

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/core"
	"github.com/mikey/email-classifier/internal/ports"
	"github.com/mikey/email-classifier/internal/utils"
)

// CliFilter classifies a single RFC 822 message and prints the result
type CliFilter struct {
	service       ports.Classifier
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	out           io.Writer
	jsonOutput    bool
	verbose       bool
}

// NewCliFilter creates a new CLI filter writing to out
func NewCliFilter(service ports.Classifier, logger *zap.Logger, textProcessor *utils.TextProcessor, out io.Writer, jsonOutput, verbose bool) *CliFilter {
	return &CliFilter{
		service:       service,
		logger:        logger,
		textProcessor: textProcessor,
		out:           out,
		jsonOutput:    jsonOutput,
		verbose:       verbose,
	}
}

// Run reads a message from r, classifies it and prints the result.
func (f *CliFilter) Run(ctx context.Context, r io.Reader) (*core.ClassificationResult, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	email, err := parseEmail(raw, "", nil)
	if err != nil {
		return nil, err
	}
	return f.ProcessEmail(ctx, email)
}

// ProcessEmail processes an email and displays the results
func (f *CliFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.ClassificationResult, error) {
	f.logger.Debug("Processing email", zap.String("sender", email.From))

	start := time.Now()
	result, err := f.service.ClassifyEmail(ctx, email)
	if err != nil {
		f.logger.Error("Failed to classify email", zap.Error(err))
		return nil, err
	}

	if f.jsonOutput {
		enc := json.NewEncoder(f.out)
		enc.SetIndent("", "  ")
		return result, enc.Encode(result)
	}

	f.printTable(email, result, time.Since(start))
	return result, nil
}

func (f *CliFilter) printTable(email *core.Email, result *core.ClassificationResult, elapsed time.Duration) {
	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Classificação")
	t.AppendRows([]table.Row{
		{"From", email.From},
		{"Subject", email.Subject},
		{"Produtividade", fmt.Sprintf("%s (%.3f)", result.Label, result.Confidence)},
		{"Categoria", fmt.Sprintf("%s (%g)", result.Category, result.CategoryConfidence)},
		{"Resposta sugerida", result.SuggestedReply},
		{"Tempo", elapsed.Round(time.Millisecond).String()},
	})
	if f.verbose {
		t.AppendRow(table.Row{"Texto", f.textProcessor.TruncateText(email.Body, 500)})
	}
	for _, e := range []struct{ name, msg string }{
		{"Erro local", result.LocalError},
		{"Erro categoria", result.CategoryError},
		{"Erro resposta", result.ReplyError},
	} {
		if e.msg != "" {
			t.AppendRow(table.Row{e.name, e.msg})
		}
	}
	t.Render()
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
