package extract

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/utils"
)

func newExtractor() *FileExtractor {
	return NewFileExtractor(utils.NewTextProcessor(zap.NewNop()), zap.NewNop())
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		want     string
	}{
		{"plain text", "email.txt", []byte("Olá, segue o relatório."), "Olá, segue o relatório."},
		{"crlf normalised", "mail.eml", []byte("linha 1\r\nlinha 2"), "linha 1\nlinha 2"},
		{"invalid bytes dropped", "x.txt", []byte{'o', 'k', 0xff, 0xfe, '!'}, "ok!"},
		{"no extension", "README", []byte("texto"), "texto"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newExtractor().Extract(context.Background(), tt.filename, tt.data)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractInvalidPDF(t *testing.T) {
	for _, name := range []string{"doc.pdf", "DOC.PDF"} {
		_, err := newExtractor().Extract(context.Background(), name, []byte("not a pdf at all"))
		if err == nil {
			t.Errorf("%s: expected an error for a non-PDF payload", name)
		}
	}
}

func TestExtractCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newExtractor().Extract(ctx, "a.txt", []byte("x")); err == nil {
		t.Error("expected context error")
	}
}
