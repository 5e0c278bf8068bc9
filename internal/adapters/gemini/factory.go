package gemini

import (
	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/core"
	"go.uber.org/zap"
)

// Factory creates new instances of GeminiClient
type Factory struct {
	cfg         config.GeminiConfig
	maxBodySize int
	logger      *zap.Logger
}

// NewFactory creates a new factory for GeminiClient instances
func NewFactory(cfg config.GeminiConfig, maxBodySize int, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:         cfg,
		maxBodySize: maxBodySize,
		logger:      logger,
	}
}

// CreateClient creates a new GeminiClient
func (f *Factory) CreateClient() (core.InferenceClient, error) {
	return NewGeminiClient(
		f.cfg.APIKey,
		f.cfg.ModelName,
		f.cfg.MaxTokens,
		f.cfg.Temperature,
		f.cfg.TopP,
		f.maxBodySize,
		f.logger,
	)
}
