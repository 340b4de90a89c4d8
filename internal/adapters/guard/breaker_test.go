package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/core"
)

type stubLLM struct {
	err   error
	calls int
}

func (s *stubLLM) ClassifyCategory(context.Context, string) (*core.CategoryResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &core.CategoryResult{Category: "SUPORTE", Confidence: 8}, nil
}

func (s *stubLLM) GenerateReply(context.Context, string, string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "Olá", nil
}

func TestBreakerPassesThrough(t *testing.T) {
	stub := &stubLLM{}
	c := NewBreakerClient(stub, Settings{Name: "test", MaxFailures: 2, OpenTimeout: time.Minute}, zap.NewNop())

	res, err := c.ClassifyCategory(context.Background(), "x")
	if err != nil || res.Category != "SUPORTE" {
		t.Fatalf("res = %+v, err = %v", res, err)
	}
	reply, err := c.GenerateReply(context.Background(), "x", "Produtivo")
	if err != nil || reply != "Olá" {
		t.Fatalf("reply = %q, err = %v", reply, err)
	}
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	boom := errors.New("boom")
	stub := &stubLLM{err: boom}
	c := NewBreakerClient(stub, Settings{Name: "test", MaxFailures: 2, OpenTimeout: time.Minute}, zap.NewNop())

	for i := 0; i < 2; i++ {
		if _, err := c.ClassifyCategory(context.Background(), "x"); !errors.Is(err, boom) {
			t.Fatalf("call %d: err = %v", i, err)
		}
	}
	if c.State() != gobreaker.StateOpen {
		t.Fatalf("state = %v, want open", c.State())
	}

	_, err := c.GenerateReply(context.Background(), "x", "Produtivo")
	if !errors.Is(err, core.ErrLLMUnavailable) {
		t.Errorf("err = %v, want ErrLLMUnavailable", err)
	}
	if stub.calls != 2 {
		t.Errorf("calls = %d, provider should not be called while open", stub.calls)
	}
}

func TestBreakerIgnoresUnconfiguredProvider(t *testing.T) {
	c := NewBreakerClient(core.UnavailableLLM{}, Settings{Name: "none", MaxFailures: 1, OpenTimeout: time.Minute}, zap.NewNop())
	for i := 0; i < 3; i++ {
		if _, err := c.ClassifyCategory(context.Background(), "x"); !errors.Is(err, core.ErrLLMUnavailable) {
			t.Fatalf("err = %v", err)
		}
	}
	if c.State() != gobreaker.StateClosed {
		t.Errorf("state = %v, want closed", c.State())
	}
}
