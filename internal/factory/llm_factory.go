package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/mail-triage/internal/adapters/bedrock"
	"github.com/mikey/mail-triage/internal/adapters/gemini"
	"github.com/mikey/mail-triage/internal/adapters/openai"
	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/utils"
)

// LLMFactory creates inference clients
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateInferenceClient creates an inference client for the configured
// provider
func (f *LLMFactory) CreateInferenceClient() (core.InferenceClient, error) {
	class := f.cfg.GetClassification()

	switch class.Provider {
	case "bedrock":
		factory := bedrock.NewFactory(f.cfg.GetBedrock(), class.MaxBodyLength, f.logger, f.textProcessor)
		return factory.CreateClient()
	case "gemini":
		factory := gemini.NewFactory(f.cfg.GetGemini(), class.MaxBodyLength, f.logger)
		return factory.CreateClient()
	case "openai":
		factory := openai.NewFactory(f.cfg.GetOpenAI(), class.MaxBodyLength, f.logger)
		return factory.CreateClient()
	default:
		return nil, fmt.Errorf("unsupported inference provider: %s", class.Provider)
	}
}
