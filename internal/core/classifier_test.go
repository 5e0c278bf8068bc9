package core

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/mail-triage/internal/tokens"
)

type stubInference struct {
	result *ClassificationResult
	err    error
	calls  int
}

func (s *stubInference) ClassifyEmail(ctx context.Context, msg *Message) (*ClassificationResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubTraceStore struct {
	entries   []*TraceEntry
	appendErr error
}

func (s *stubTraceStore) Append(ctx context.Context, entry *TraceEntry) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubTraceStore) Close() error { return nil }

func newRules(t *testing.T) *Rules {
	t.Helper()
	return NewRules(1000, zap.NewNop())
}

func TestClassifyBackendResult(t *testing.T) {
	backend := &stubInference{result: &ClassificationResult{
		Category:   CategoryFeed,
		Confidence: 0.87,
		Method:     "bedrock",
	}}
	classifier := NewClassifier(backend, newRules(t), nil, nil, 0, 1000, zap.NewNop())

	result := classifier.Classify(context.Background(), inboxMessage("m1"))
	assert.Equal(t, CategoryFeed, result.Category)
	assert.Equal(t, 0.87, result.Confidence)
	assert.Equal(t, "bedrock", result.Method)
	assert.False(t, result.AnalyzedAt.IsZero())
	assert.Equal(t, 1, backend.calls)
}

func TestClassifyBackendFailureFallsBackToRules(t *testing.T) {
	backend := &stubInference{err: errors.New("accelerator offline")}
	classifier := NewClassifier(backend, newRules(t), nil, nil, 0, 1000, zap.NewNop())

	result := classifier.Classify(context.Background(), promoMessage("m1"))
	require.NotNil(t, result)
	assert.Equal(t, MethodRules, result.Method)
	assert.Equal(t, CategoryPromotions, result.Category)
}

func TestClassifyMalformedBackendResultFallsBack(t *testing.T) {
	tests := []struct {
		name   string
		result *ClassificationResult
	}{
		{name: "nil result"},
		{
			name:   "unknown category",
			result: &ClassificationResult{Category: "junk", Confidence: 0.9, Method: "bedrock"},
		},
		{
			name:   "NaN confidence",
			result: &ClassificationResult{Category: CategoryFeed, Confidence: math.NaN(), Method: "bedrock"},
		},
		{
			name:   "infinite confidence",
			result: &ClassificationResult{Category: CategoryFeed, Confidence: math.Inf(1), Method: "bedrock"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &stubInference{result: tt.result}
			classifier := NewClassifier(backend, newRules(t), nil, nil, 0, 1000, zap.NewNop())

			result := classifier.Classify(context.Background(), promoMessage("m1"))
			require.NotNil(t, result)
			assert.Equal(t, MethodRules, result.Method)
		})
	}
}

func TestClassifyClampsBackendConfidence(t *testing.T) {
	backend := &stubInference{result: &ClassificationResult{
		Category:   CategoryInbox,
		Confidence: 1.7,
		Method:     "bedrock",
	}}
	classifier := NewClassifier(backend, newRules(t), nil, nil, 0, 1000, zap.NewNop())

	result := classifier.Classify(context.Background(), inboxMessage("m1"))
	assert.Equal(t, 1.0, result.Confidence)
}

func TestClassifyNilBackendUsesRules(t *testing.T) {
	backend := &stubInference{}
	classifier := NewClassifier(nil, newRules(t), nil, nil, 0, 1000, zap.NewNop())

	result := classifier.Classify(context.Background(), transactionMessage("m1"))
	assert.Equal(t, CategoryTransactions, result.Category)
	assert.Equal(t, MethodRules, result.Method)
	assert.Equal(t, 0, backend.calls)
}

func TestClassifyRecordsTrace(t *testing.T) {
	trace := &stubTraceStore{}
	classifier := NewClassifier(nil, newRules(t), trace, nil, 0, 1000, zap.NewNop())

	msg := promoMessage("m1")
	result := classifier.Classify(context.Background(), msg)

	require.Len(t, trace.entries, 1)
	entry := trace.entries[0]
	assert.Equal(t, result.Category, entry.Category)
	assert.Equal(t, result.Confidence, entry.Confidence)
	assert.Equal(t, MethodRules, entry.Method)
	assert.Contains(t, entry.Input, "[SUBJECT] huge sale")
	assert.Contains(t, entry.Input, "<deals@marketing.example.com>")
	assert.False(t, entry.Timestamp.IsZero())
}

func TestClassifyTraceFailureIgnored(t *testing.T) {
	trace := &stubTraceStore{appendErr: errors.New("disk full")}
	classifier := NewClassifier(nil, newRules(t), trace, nil, 0, 1000, zap.NewNop())

	result := classifier.Classify(context.Background(), promoMessage("m1"))
	require.NotNil(t, result)
	assert.Equal(t, CategoryPromotions, result.Category)
}

func TestClassifyInferenceTokenDenialFallsBack(t *testing.T) {
	dir := t.TempDir()
	logger := zap.NewNop()

	holder, err := tokens.NewManager(dir, "other-process", logger)
	require.NoError(t, err)
	require.NoError(t, holder.Acquire(context.Background(), tokens.KindInference, time.Second))
	defer holder.ReleaseAll()

	contender, err := tokens.NewManager(dir, "classifier", logger)
	require.NoError(t, err)

	backend := &stubInference{result: &ClassificationResult{
		Category:   CategoryFeed,
		Confidence: 0.9,
		Method:     "bedrock",
	}}
	classifier := NewClassifier(backend, newRules(t), nil, contender, 30*time.Millisecond, 1000, zap.NewNop())

	result := classifier.Classify(context.Background(), promoMessage("m1"))
	assert.Equal(t, MethodRules, result.Method, "token denial must not reach the backend")
	assert.Equal(t, 0, backend.calls)
}

func TestClassifyHoldsInferenceTokenDuringBackendCall(t *testing.T) {
	dir := t.TempDir()
	logger := zap.NewNop()

	manager, err := tokens.NewManager(dir, "classifier", logger)
	require.NoError(t, err)

	backend := &stubInference{result: &ClassificationResult{
		Category:   CategoryFeed,
		Confidence: 0.9,
		Method:     "bedrock",
	}}
	classifier := NewClassifier(backend, newRules(t), nil, manager, time.Second, 1000, zap.NewNop())

	result := classifier.Classify(context.Background(), inboxMessage("m1"))
	assert.Equal(t, "bedrock", result.Method)
	assert.False(t, manager.Held(tokens.KindInference), "token released after classification")
}
