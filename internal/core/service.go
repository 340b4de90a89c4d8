package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ServiceConfig tunes the classification service.
type ServiceConfig struct {
	// LLMTimeout bounds each LLM call; zero means no extra deadline.
	LLMTimeout   time.Duration
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ClassifierService combines the local classifier with the LLM collaborators.
// Every request is independent and the service holds no mutable state of its
// own, so it is safe for concurrent use.
type ClassifierService struct {
	local     LocalClassifier
	llm       LLMClient
	cache     CacheRepository
	extractor TextExtractor
	logger    *zap.Logger
	cfg       ServiceConfig
}

// NewClassifierService creates a new classification service
func NewClassifierService(
	local LocalClassifier,
	llmClient LLMClient,
	cache CacheRepository,
	extractor TextExtractor,
	logger *zap.Logger,
	cfg ServiceConfig,
) *ClassifierService {
	return &ClassifierService{
		local:     local,
		llm:       llmClient,
		cache:     cache,
		extractor: extractor,
		logger:    logger,
		cfg:       cfg,
	}
}

// Classify resolves the request to text and runs every stage. It fails only
// for input and extraction problems; model and LLM failures degrade the
// result instead.
func (s *ClassifierService) Classify(ctx context.Context, req ClassificationRequest) (*ClassificationResult, error) {
	text, err := s.resolveText(ctx, req)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoText
	}
	return s.analyze(ctx, text), nil
}

// ClassifyEmail classifies a parsed mail message using its subject and body.
func (s *ClassifierService) ClassifyEmail(ctx context.Context, email *Email) (*ClassificationResult, error) {
	text := email.Body
	if subject := strings.TrimSpace(email.Subject); subject != "" {
		text = subject + "\n\n" + email.Body
	}
	return s.Classify(ctx, ClassificationRequest{Text: text})
}

func (s *ClassifierService) resolveText(ctx context.Context, req ClassificationRequest) (string, error) {
	if req.FileName == "" {
		return req.Text, nil
	}
	if s.extractor == nil {
		return "", NewExtractionError(errors.New("no extractor configured"))
	}
	text, err := s.extractor.Extract(ctx, req.FileName, req.FileData)
	if err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			return "", err
		}
		return "", NewExtractionError(err)
	}
	return text, nil
}

func (s *ClassifierService) analyze(ctx context.Context, text string) *ClassificationResult {
	result := &ClassificationResult{
		ProcessingID: uuid.NewString(),
		OriginalText: text,
		AnalyzedAt:   time.Now(),
	}
	logger := s.logger.With(zap.String("request_id", result.ProcessingID))

	if err := s.classifyLocal(text, result); err != nil {
		logger.Warn("Local classification unavailable", zap.Error(err))
		result.LocalError = err.Error()
	}

	category, cached, err := s.classifyCategory(ctx, text)
	result.Category = category.Category
	result.CategoryConfidence = category.Confidence
	result.CategoryCached = cached
	if err != nil {
		logger.Warn("LLM category classification degraded",
			zap.String("category", category.Category), zap.Error(err))
		result.CategoryError = err.Error()
	}

	reply, err := s.generateReply(ctx, text, result.Label)
	result.SuggestedReply = reply
	if err != nil {
		logger.Warn("LLM reply generation degraded", zap.Error(err))
		result.ReplyError = err.Error()
	}

	logger.Info("Classified email",
		zap.String("label", result.Label),
		zap.Float64("confidence", result.Confidence),
		zap.String("category", result.Category),
		zap.Bool("degraded", result.Degraded()))
	return result
}

func (s *ClassifierService) classifyLocal(text string, result *ClassificationResult) error {
	if s.local == nil {
		result.Label = LabelModelError
		return Wrap(ErrModelUnavailable, "local classification", "no classifier configured", nil)
	}
	pred, err := s.local.Classify(text)
	if err != nil {
		result.Label = LabelModelError
		result.Confidence = 0
		return Wrap(ErrModelUnavailable, "local classification", "", err)
	}
	result.Label = pred.Label
	result.Confidence = roundTo(pred.Confidence, 3)
	return nil
}

func (s *ClassifierService) classifyCategory(ctx context.Context, text string) (CategoryResult, bool, error) {
	if s.llm == nil {
		return CategoryResult{Category: CategoryUnavailable}, false, ErrLLMUnavailable
	}

	key := cacheKey(text)
	if s.cfg.CacheEnabled && s.cache != nil {
		if entry, err := s.cache.Get(ctx, key); err == nil {
			s.logger.Debug("Cache hit for category", zap.String("key", key))
			return CategoryResult{Category: entry.Category, Confidence: entry.Confidence}, true, nil
		}
	}

	callCtx, cancel := s.llmContext(ctx)
	defer cancel()

	res, err := s.llm.ClassifyCategory(callCtx, text)
	if err != nil {
		if errors.Is(err, ErrLLMUnavailable) {
			return CategoryResult{Category: CategoryUnavailable}, false, err
		}
		return CategoryResult{Category: CategoryFailed}, false, Wrap(ErrExternalService, "classify category", "", err)
	}

	if s.cfg.CacheEnabled && s.cache != nil {
		now := time.Now()
		entry := &CacheEntry{
			Key:        key,
			Category:   res.Category,
			Confidence: res.Confidence,
			CreatedAt:  now,
			ExpiresAt:  now.Add(s.cfg.CacheTTL),
		}
		if err := s.cache.Set(ctx, entry); err != nil {
			s.logger.Error("Failed to update cache", zap.Error(err))
		}
	}
	return *res, false, nil
}

func (s *ClassifierService) generateReply(ctx context.Context, text, label string) (string, error) {
	if s.llm == nil {
		return ReplyUnavailable, ErrLLMUnavailable
	}

	callCtx, cancel := s.llmContext(ctx)
	defer cancel()

	reply, err := s.llm.GenerateReply(callCtx, text, label)
	if err != nil {
		if errors.Is(err, ErrLLMUnavailable) {
			return ReplyUnavailable, err
		}
		return ReplyFailed, Wrap(ErrExternalService, "generate reply", "", err)
	}
	return strings.TrimSpace(reply), nil
}

func (s *ClassifierService) llmContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.LLMTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.LLMTimeout)
	}
	return context.WithCancel(ctx)
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
