package core

import (
	"context"
	"math"
	"time"

	"github.com/mikey/mail-triage/internal/tokens"
	"go.uber.org/zap"
)

// Classifier is the hybrid category predictor. The inference backend is
// optional and may fail at any point; the rule-based strategy is the
// guaranteed fallback, so Classify always returns a well-formed result and
// never an error.
type Classifier struct {
	backend       InferenceClient
	rules         *Rules
	trace         TraceStore
	tokens        *tokens.Manager
	tokenTimeout  time.Duration
	maxBodyLength int
	logger        *zap.Logger
}

// NewClassifier creates a classifier. backend may be nil to force the
// rule-based path; tokenManager may be nil when no accelerator guard is
// needed (tests, one-shot CLI runs without contention).
func NewClassifier(
	backend InferenceClient,
	rules *Rules,
	trace TraceStore,
	tokenManager *tokens.Manager,
	tokenTimeout time.Duration,
	maxBodyLength int,
	logger *zap.Logger,
) *Classifier {
	if maxBodyLength <= 0 {
		maxBodyLength = 1000
	}
	return &Classifier{
		backend:       backend,
		rules:         rules,
		trace:         trace,
		tokens:        tokenManager,
		tokenTimeout:  tokenTimeout,
		maxBodyLength: maxBodyLength,
		logger:        logger,
	}
}

// Classify predicts a category for the message and appends the outcome to
// the audit trace. Trace failures are logged, never propagated.
func (c *Classifier) Classify(ctx context.Context, msg *Message) *ClassificationResult {
	result := c.classifyOnce(ctx, msg)
	c.record(ctx, msg, result)
	return result
}

func (c *Classifier) classifyOnce(ctx context.Context, msg *Message) *ClassificationResult {
	if c.backend == nil {
		return c.rules.Classify(msg)
	}

	// Only the inference-accelerator token holder may drive the backend.
	if c.tokens != nil {
		if err := c.tokens.Acquire(ctx, tokens.KindInference, c.tokenTimeout); err != nil {
			c.logger.Warn("inference token unavailable, falling back to rules",
				zap.Error(err))
			return c.rules.Classify(msg)
		}
		defer c.tokens.Release(tokens.KindInference)
	}

	result, err := c.backend.ClassifyEmail(ctx, msg)
	if err != nil {
		c.logger.Warn("inference backend failed, falling back to rules",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		return c.rules.Classify(msg)
	}
	if !wellFormed(result) {
		c.logger.Warn("inference backend returned malformed result, falling back to rules",
			zap.String("message_id", msg.ID))
		return c.rules.Classify(msg)
	}

	if result.Confidence < 0 {
		result.Confidence = 0
	} else if result.Confidence > 1 {
		result.Confidence = 1
	}
	if result.AnalyzedAt.IsZero() {
		result.AnalyzedAt = time.Now()
	}
	return result
}

func wellFormed(result *ClassificationResult) bool {
	if result == nil {
		return false
	}
	if !ValidCategory(result.Category) {
		return false
	}
	if math.IsNaN(result.Confidence) || math.IsInf(result.Confidence, 0) {
		return false
	}
	return true
}

func (c *Classifier) record(ctx context.Context, msg *Message, result *ClassificationResult) {
	if c.trace == nil {
		return
	}
	entry := &TraceEntry{
		Timestamp:  time.Now(),
		Input:      classificationInput(msg, c.maxBodyLength),
		Category:   result.Category,
		Confidence: result.Confidence,
		Method:     result.Method,
	}
	if err := c.trace.Append(ctx, entry); err != nil {
		c.logger.Warn("failed to append classification trace", zap.Error(err))
	}
}
