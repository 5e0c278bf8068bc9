package openai

import (
	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/core"
	"go.uber.org/zap"
)

// Factory creates new instances of OpenAIClient
type Factory struct {
	cfg         config.OpenAIConfig
	maxBodySize int
	logger      *zap.Logger
}

// NewFactory creates a new factory for OpenAIClient instances
func NewFactory(cfg config.OpenAIConfig, maxBodySize int, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:         cfg,
		maxBodySize: maxBodySize,
		logger:      logger,
	}
}

// CreateClient creates a new OpenAIClient
func (f *Factory) CreateClient() (core.InferenceClient, error) {
	return NewOpenAIClient(
		f.cfg.APIKey,
		f.cfg.BaseURL,
		f.cfg.ModelName,
		f.cfg.MaxTokens,
		f.cfg.Temperature,
		f.maxBodySize,
		f.logger,
	), nil
}
