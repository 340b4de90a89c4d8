package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/ml"
)

type fakeLocal struct {
	pred  ml.Prediction
	err   error
	calls int
}

func (f *fakeLocal) Classify(text string) (ml.Prediction, error) {
	f.calls++
	return f.pred, f.err
}

type fakeLLM struct {
	mu            sync.Mutex
	category      *CategoryResult
	reply         string
	categoryErr   error
	replyErr      error
	block         bool
	categoryCalls int
	replyCalls    int
	lastLabel     string
}

func (f *fakeLLM) ClassifyCategory(ctx context.Context, text string) (*CategoryResult, error) {
	f.mu.Lock()
	f.categoryCalls++
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.categoryErr != nil {
		return nil, f.categoryErr
	}
	c := *f.category
	return &c, nil
}

func (f *fakeLLM) GenerateReply(ctx context.Context, text, label string) (string, error) {
	f.mu.Lock()
	f.replyCalls++
	f.lastLabel = label
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.replyErr
}

type mapCache struct {
	entries map[string]*CacheEntry
}

func (m *mapCache) Get(_ context.Context, key string) (*CacheEntry, error) {
	if e, ok := m.entries[key]; ok {
		return e, nil
	}
	return nil, errors.New("not found")
}

func (m *mapCache) Set(_ context.Context, e *CacheEntry) error {
	m.entries[e.Key] = e
	return nil
}

func (m *mapCache) Delete(_ context.Context, key string) error {
	delete(m.entries, key)
	return nil
}

func (m *mapCache) Cleanup(context.Context) error { return nil }

type fakeExtractor struct {
	text string
	err  error
	name string
}

func (f *fakeExtractor) Extract(_ context.Context, name string, _ []byte) (string, error) {
	f.name = name
	return f.text, f.err
}

func newTestService(local LocalClassifier, llm LLMClient, cfg ServiceConfig) *ClassifierService {
	return NewClassifierService(local, llm, &mapCache{entries: map[string]*CacheEntry{}}, &fakeExtractor{}, zap.NewNop(), cfg)
}

func healthyLLM() *fakeLLM {
	return &fakeLLM{
		category: &CategoryResult{Category: "PEDIDO", Confidence: 8},
		reply:    "  Olá, obrigado pelo contato.  ",
	}
}

func TestClassifyHappyPath(t *testing.T) {
	local := &fakeLocal{pred: ml.Prediction{Label: "Produtivo", Confidence: 0.87654}}
	llm := healthyLLM()
	svc := newTestService(local, llm, ServiceConfig{LLMTimeout: time.Second})

	res, err := svc.Classify(context.Background(), ClassificationRequest{Text: "Podemos remarcar a reunião?"})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Label != "Produtivo" || res.Confidence != 0.877 {
		t.Errorf("local = %q %v", res.Label, res.Confidence)
	}
	if res.Category != "PEDIDO" || res.CategoryConfidence != 8 {
		t.Errorf("category = %q %v", res.Category, res.CategoryConfidence)
	}
	if res.SuggestedReply != "Olá, obrigado pelo contato." {
		t.Errorf("reply = %q", res.SuggestedReply)
	}
	if llm.lastLabel != "Produtivo" {
		t.Errorf("reply prompt got label %q", llm.lastLabel)
	}
	if res.Degraded() || res.ProcessingID == "" || res.OriginalText != "Podemos remarcar a reunião?" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestClassifyEmptyInput(t *testing.T) {
	for _, text := range []string{"", "   \n\t "} {
		local := &fakeLocal{}
		llm := healthyLLM()
		svc := newTestService(local, llm, ServiceConfig{})

		res, err := svc.Classify(context.Background(), ClassificationRequest{Text: text})
		if res != nil || !errors.Is(err, ErrInput) {
			t.Fatalf("expected input error, got %v %v", res, err)
		}
		if UserMessage(err) != "Nenhum texto detectado." {
			t.Errorf("message = %q", UserMessage(err))
		}
		if local.calls != 0 || llm.categoryCalls != 0 || llm.replyCalls != 0 {
			t.Error("no model should be invoked for empty input")
		}
	}
}

func TestClassifyModelUnavailable(t *testing.T) {
	local := &fakeLocal{err: ml.ErrModelUnavailable}
	llm := healthyLLM()
	svc := newTestService(local, llm, ServiceConfig{})

	res, err := svc.Classify(context.Background(), ClassificationRequest{Text: "Solicito o boleto."})
	if err != nil {
		t.Fatalf("model outage must not fail the request: %v", err)
	}
	if res.Label != LabelModelError || res.Confidence != 0 || res.LocalError == "" {
		t.Errorf("unexpected local result %+v", res)
	}
	if res.Category != "PEDIDO" || llm.lastLabel != LabelModelError {
		t.Errorf("LLM stages should still run: %+v", res)
	}
}

func TestClassifyLLMDegradation(t *testing.T) {
	tests := []struct {
		name     string
		llm      LLMClient
		category string
		reply    string
	}{
		{"not configured", nil, CategoryUnavailable, ReplyUnavailable},
		{
			"unavailable",
			&fakeLLM{categoryErr: ErrLLMUnavailable, replyErr: ErrLLMUnavailable},
			CategoryUnavailable, ReplyUnavailable,
		},
		{
			"call failure",
			&fakeLLM{categoryErr: errors.New("401 unauthorized"), replyErr: errors.New("connection reset")},
			CategoryFailed, ReplyFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := &fakeLocal{pred: ml.Prediction{Label: "Improdutivo", Confidence: 0.9}}
			svc := newTestService(local, tt.llm, ServiceConfig{})

			res, err := svc.Classify(context.Background(), ClassificationRequest{Text: "Feliz Natal!"})
			if err != nil {
				t.Fatalf("LLM failure must not fail the request: %v", err)
			}
			if res.Category != tt.category || res.CategoryConfidence != 0 {
				t.Errorf("category = %q %v, want %q 0", res.Category, res.CategoryConfidence, tt.category)
			}
			if res.SuggestedReply != tt.reply {
				t.Errorf("reply = %q, want %q", res.SuggestedReply, tt.reply)
			}
			if res.CategoryError == "" || res.ReplyError == "" {
				t.Error("degradation causes should be reported")
			}
			if res.Label != "Improdutivo" {
				t.Errorf("local label lost: %q", res.Label)
			}
		})
	}
}

func TestClassifyLLMTimeout(t *testing.T) {
	local := &fakeLocal{pred: ml.Prediction{Label: "Produtivo", Confidence: 0.7}}
	llm := &fakeLLM{block: true}
	svc := newTestService(local, llm, ServiceConfig{LLMTimeout: 20 * time.Millisecond})

	done := make(chan *ClassificationResult, 1)
	go func() {
		res, _ := svc.Classify(context.Background(), ClassificationRequest{Text: "Reunião amanhã"})
		done <- res
	}()

	select {
	case res := <-done:
		if res.Category != CategoryFailed || res.SuggestedReply != ReplyFailed {
			t.Errorf("unexpected result %+v", res)
		}
		if !strings.Contains(res.CategoryError, context.DeadlineExceeded.Error()) {
			t.Errorf("category error = %q", res.CategoryError)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("classification hung on a blocked LLM")
	}
}

func TestClassifyCategoryCache(t *testing.T) {
	local := &fakeLocal{pred: ml.Prediction{Label: "Produtivo", Confidence: 0.8}}
	llm := healthyLLM()
	svc := newTestService(local, llm, ServiceConfig{CacheEnabled: true, CacheTTL: time.Hour})

	req := ClassificationRequest{Text: "Pode me enviar os arquivos do projeto?"}
	first, _ := svc.Classify(context.Background(), req)
	second, _ := svc.Classify(context.Background(), req)

	if llm.categoryCalls != 1 {
		t.Errorf("category calls = %d, want 1", llm.categoryCalls)
	}
	if first.CategoryCached || !second.CategoryCached || second.Category != "PEDIDO" {
		t.Errorf("cache flags wrong: first %+v second %+v", first, second)
	}
	if llm.replyCalls != 2 {
		t.Errorf("replies should not be cached, got %d calls", llm.replyCalls)
	}
}

func TestClassifyFile(t *testing.T) {
	extractor := &fakeExtractor{text: "Anexo o relatório mensal."}
	svc := NewClassifierService(&fakeLocal{pred: ml.Prediction{Label: "Produtivo", Confidence: 1}},
		healthyLLM(), nil, extractor, zap.NewNop(), ServiceConfig{})

	res, err := svc.Classify(context.Background(), ClassificationRequest{
		Text:     "ignored",
		FileName: "relatorio.pdf",
		FileData: []byte("%PDF-1.4"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if extractor.name != "relatorio.pdf" || res.OriginalText != "Anexo o relatório mensal." {
		t.Errorf("file should take precedence: %+v", res)
	}

	extractor.err = errors.New("malformed xref")
	_, err = svc.Classify(context.Background(), ClassificationRequest{FileName: "x.pdf"})
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	if UserMessage(err) != "Erro ao processar arquivo: malformed xref" {
		t.Errorf("message = %q", UserMessage(err))
	}

	extractor.err = nil
	extractor.text = "  "
	if _, err := svc.Classify(context.Background(), ClassificationRequest{FileName: "vazio.txt"}); !errors.Is(err, ErrInput) {
		t.Errorf("blank file should be an input error, got %v", err)
	}
}

func TestClassifyEmail(t *testing.T) {
	extractor := &fakeExtractor{}
	llm := healthyLLM()
	svc := NewClassifierService(&fakeLocal{pred: ml.Prediction{Label: "Produtivo", Confidence: 1}},
		llm, nil, extractor, zap.NewNop(), ServiceConfig{})

	res, err := svc.ClassifyEmail(context.Background(), &Email{Subject: "Boleto", Body: "Solicito a correção."})
	if err != nil {
		t.Fatal(err)
	}
	if res.OriginalText != "Boleto\n\nSolicito a correção." {
		t.Errorf("text = %q", res.OriginalText)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(ErrExternalService, "generate reply", "", cause)
	if !errors.Is(err, ErrExternalService) || !errors.Is(err, cause) {
		t.Errorf("Wrap lost a marker: %v", err)
	}
	if err.Error() != "external service error: generate reply: boom" {
		t.Errorf("message = %q", err.Error())
	}
	if got := Wrap(ErrInput, "", "", nil).Error(); got != "input error: service failure" {
		t.Errorf("message = %q", got)
	}
}
