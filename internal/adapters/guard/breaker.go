// Package guard protects LLM providers with a circuit breaker so an outage
// degrades requests quickly instead of stacking timeouts.
package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/core"
)

// Settings configures the breaker.
type Settings struct {
	Name        string
	MaxFailures uint32
	OpenTimeout time.Duration
}

// BreakerClient decorates an LLMClient with a shared circuit breaker.
type BreakerClient struct {
	next    core.LLMClient
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewBreakerClient wraps next. Consecutive failures beyond MaxFailures open the
// circuit for OpenTimeout; calls made while open fail with
// core.ErrLLMUnavailable.
func NewBreakerClient(next core.LLMClient, s Settings, logger *zap.Logger) *BreakerClient {
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	c := &BreakerClient{next: next, logger: logger}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("LLM circuit breaker state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			// an unconfigured provider is not an outage
			return err == nil || errors.Is(err, core.ErrLLMUnavailable)
		},
	})
	return c
}

// State reports the breaker state.
func (c *BreakerClient) State() gobreaker.State {
	return c.breaker.State()
}

func (c *BreakerClient) ClassifyCategory(ctx context.Context, text string) (*core.CategoryResult, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.next.ClassifyCategory(ctx, text)
	})
	if err != nil {
		return nil, c.translate(err)
	}
	return out.(*core.CategoryResult), nil
}

func (c *BreakerClient) GenerateReply(ctx context.Context, text, label string) (string, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.next.GenerateReply(ctx, text, label)
	})
	if err != nil {
		return "", c.translate(err)
	}
	return out.(string), nil
}

func (c *BreakerClient) translate(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", core.ErrLLMUnavailable, err)
	}
	return err
}
