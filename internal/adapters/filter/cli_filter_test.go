package filter

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/core"
	"github.com/mikey/email-classifier/internal/utils"
)

func TestCliFilterTable(t *testing.T) {
	var out bytes.Buffer
	f := NewCliFilter(&fakeClassifier{}, zap.NewNop(), utils.NewTextProcessor(zap.NewNop()), &out, false, true)

	res, err := f.Run(context.Background(), strings.NewReader(sampleMessage))
	if err != nil {
		t.Fatal(err)
	}
	if res.Label != "Produtivo" {
		t.Errorf("label = %q", res.Label)
	}
	for _, want := range []string{"Produtivo (0.912)", "SUPORTE", "ana@cliente.com.br", "Qual o status"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestCliFilterJSON(t *testing.T) {
	var out bytes.Buffer
	f := NewCliFilter(&fakeClassifier{}, zap.NewNop(), utils.NewTextProcessor(zap.NewNop()), &out, true, false)

	if _, err := f.Run(context.Background(), strings.NewReader(sampleMessage)); err != nil {
		t.Fatal(err)
	}
	var got core.ClassificationResult
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out.String())
	}
	if got.Category != "SUPORTE" || got.ProcessingID != "id-1" {
		t.Errorf("got %+v", got)
	}
}

func TestCliFilterError(t *testing.T) {
	var out bytes.Buffer
	f := NewCliFilter(&fakeClassifier{err: core.ErrNoText}, zap.NewNop(), utils.NewTextProcessor(zap.NewNop()), &out, false, false)
	if _, err := f.Run(context.Background(), strings.NewReader(sampleMessage)); err != core.ErrNoText {
		t.Errorf("err = %v", err)
	}
}
