package di

import (
	"flag"
	"strings"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mail-triage/internal/adapters/detector"
	"github.com/mikey/mail-triage/internal/adapters/trace"
	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/factory"
	"github.com/mikey/mail-triage/internal/logging"
	"github.com/mikey/mail-triage/internal/utils"
)

// CLIFlags contains all command line flags for the detector CLI
type CLIFlags struct {
	// Inference provider flags
	UseModel      bool
	Provider      string
	MaxTokens     int
	Temperature   float64
	TopP          float64
	MaxBodyLength int

	// Bedrock flags
	BedrockRegion  string
	BedrockModelID string

	// Gemini flags
	GeminiAPIKey    string
	GeminiModelName string

	// OpenAI flags
	OpenAIAPIKey    string
	OpenAIModelName string
	OpenAIBaseURL   string

	// Triage policy flags
	DefaultAction   string
	ActOnPromotions bool
	Topics          string
	Whitelist       string
	Blacklist       string

	// Input flags
	InputFile  string
	Verbose    bool
	JSONLog    bool
	ConfigFile string
	ShowLocks  bool
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// Inference provider flags
	flag.BoolVar(&flags.UseModel, "use-model", false, "Classify with the configured model instead of rules only")
	flag.StringVar(&flags.Provider, "provider", "bedrock", "Inference provider (bedrock, gemini, openai)")
	flag.IntVar(&flags.MaxTokens, "max-tokens", 1000, "Maximum tokens for the model response")
	flag.Float64Var(&flags.Temperature, "temperature", 0.1, "Temperature for model generation")
	flag.Float64Var(&flags.TopP, "top-p", 0.9, "Top-p for model generation")
	flag.IntVar(&flags.MaxBodyLength, "max-body-length", 1000, "Maximum message body length sent to the classifier")

	// Bedrock flags
	flag.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	flag.StringVar(&flags.BedrockModelID, "bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Gemini flags
	flag.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")
	flag.StringVar(&flags.GeminiModelName, "gemini-model", "gemini-pro", "Gemini model name")

	// OpenAI flags
	flag.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	flag.StringVar(&flags.OpenAIModelName, "openai-model", "gpt-4", "OpenAI model name")
	flag.StringVar(&flags.OpenAIBaseURL, "openai-base-url", "", "Base URL override for OpenAI-compatible endpoints")

	// Triage policy flags
	flag.StringVar(&flags.DefaultAction, "action", "quarantine", "Action for promotional messages (quarantine, label)")
	flag.BoolVar(&flags.ActOnPromotions, "act-on-promotions", true, "Act on messages classified as promotions")
	flag.StringVar(&flags.Topics, "topics", "", "Comma-separated list of topics that protect a message")
	flag.StringVar(&flags.Whitelist, "whitelist", "", "Comma-separated list of whitelisted senders")
	flag.StringVar(&flags.Blacklist, "blacklist", "", "Comma-separated list of blacklisted senders")

	// Input flags
	flag.StringVar(&flags.InputFile, "file", "", "Input message file (use stdin if not specified)")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")
	flag.BoolVar(&flags.ShowLocks, "locks", false, "Show resource token status and exit")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection
// container for the detector CLI
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.New()
			if err != nil {
				return nil, err
			}
			logger.Info("loaded configuration from file",
				zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register LLM factory
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}

	// Register inference backend, nil when the model path is disabled
	if err := container.Provide(func(cfg *config.Config, f *factory.LLMFactory) (core.InferenceClient, error) {
		if !cfg.GetClassification().UseAIModel {
			return nil, nil
		}
		return f.CreateInferenceClient()
	}); err != nil {
		return nil, err
	}

	// Register an in-memory trace for one-shot runs
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (core.TraceStore, error) {
		traceCfg, err := cfg.GetTrace()
		if err != nil {
			return nil, err
		}
		return trace.NewMemoryTrace(traceCfg.MaxEntries, logger), nil
	}); err != nil {
		return nil, err
	}

	// Register classification rules
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *core.Rules {
		return core.NewRules(cfg.GetClassification().MaxBodyLength, logger)
	}); err != nil {
		return nil, err
	}

	// Register classifier with no token manager, one-shot runs have no
	// accelerator contention
	if err := container.Provide(func(
		backend core.InferenceClient,
		rules *core.Rules,
		traceStore core.TraceStore,
		cfg *config.Config,
		logger *zap.Logger,
	) *core.Classifier {
		class := cfg.GetClassification()
		return core.NewClassifier(backend, rules, traceStore, nil, 0, class.MaxBodyLength, logger)
	}); err != nil {
		return nil, err
	}

	// Register topic matcher
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *core.TopicMatcher {
		return core.NewTopicMatcher(cfg.GetClassification().Topics, logger)
	}); err != nil {
		return nil, err
	}

	// Register sender policy
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *core.SenderPolicy {
		class := cfg.GetClassification()
		return core.NewSenderPolicy(class.WhitelistedSenders, class.BlacklistedSenders, logger)
	}); err != nil {
		return nil, err
	}

	// Register action policy
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (*core.ActionPolicy, error) {
		deletion, err := cfg.GetDeletion()
		if err != nil {
			return nil, err
		}
		return core.NewActionPolicy(core.Action(deletion.ActionOnDeletion), deletion.DeletePromotional, logger), nil
	}); err != nil {
		return nil, err
	}

	// Register CLI detector
	if err := container.Provide(func(
		classifier *core.Classifier,
		topics *core.TopicMatcher,
		senders *core.SenderPolicy,
		policy *core.ActionPolicy,
		logger *zap.Logger,
		flags *CLIFlags,
	) (*detector.CliDetector, error) {
		return detector.NewCliDetector(classifier, topics, senders, policy, logger, flags.Verbose)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	v.Set("classification.use_ai_model", flags.UseModel)
	v.Set("classification.provider", flags.Provider)
	v.Set("classification.max_body_length", flags.MaxBodyLength)
	v.Set("classification.topics_i_care_about", splitList(flags.Topics))
	v.Set("classification.whitelisted_senders", splitList(flags.Whitelist))
	v.Set("classification.blacklisted_senders", splitList(flags.Blacklist))

	v.Set("deletion.action_on_deletion", flags.DefaultAction)
	v.Set("deletion.delete_promotional", flags.ActOnPromotions)

	switch flags.Provider {
	case "bedrock":
		v.Set("bedrock.region", flags.BedrockRegion)
		v.Set("bedrock.model_id", flags.BedrockModelID)
		v.Set("bedrock.max_tokens", flags.MaxTokens)
		v.Set("bedrock.temperature", flags.Temperature)
		v.Set("bedrock.top_p", flags.TopP)
	case "gemini":
		v.Set("gemini.api_key", flags.GeminiAPIKey)
		v.Set("gemini.model_name", flags.GeminiModelName)
		v.Set("gemini.max_tokens", flags.MaxTokens)
		v.Set("gemini.temperature", flags.Temperature)
		v.Set("gemini.top_p", flags.TopP)
	case "openai":
		v.Set("openai.api_key", flags.OpenAIAPIKey)
		v.Set("openai.model_name", flags.OpenAIModelName)
		v.Set("openai.base_url", flags.OpenAIBaseURL)
		v.Set("openai.max_tokens", flags.MaxTokens)
		v.Set("openai.temperature", flags.Temperature)
	}

	return config.NewFromViper(v)
}

func splitList(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
