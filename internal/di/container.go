package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mail-triage/internal/adapters/secrets"
	"github.com/mikey/mail-triage/internal/agent"
	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/factory"
	"github.com/mikey/mail-triage/internal/logging"
	"github.com/mikey/mail-triage/internal/orchestrator"
	"github.com/mikey/mail-triage/internal/tokens"
	"github.com/mikey/mail-triage/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
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

	// Register resource token manager
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (*tokens.Manager, error) {
		tokensCfg, err := cfg.GetTokens()
		if err != nil {
			return nil, err
		}
		return tokens.NewManager(tokensCfg.Dir, tokensCfg.Holder, logger)
	}); err != nil {
		return nil, err
	}

	// Register secret store
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.SecretStore {
		return secrets.NewFileStore(cfg.GetString("secrets.dir"), logger)
	}); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewTraceFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStateFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewMailFactory); err != nil {
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

	// Register trace store
	if err := container.Provide(func(f *factory.TraceFactory) (core.TraceStore, error) {
		return f.CreateTraceStore()
	}); err != nil {
		return nil, err
	}

	// Register state store
	if err := container.Provide(func(f *factory.StateFactory) (core.StateStore, error) {
		return f.CreateStateStore()
	}); err != nil {
		return nil, err
	}

	// Register mail client
	if err := container.Provide(func(f *factory.MailFactory) (core.MailClient, error) {
		return f.CreateMailClient(context.Background())
	}); err != nil {
		return nil, err
	}

	// Register classification rules
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *core.Rules {
		return core.NewRules(cfg.GetClassification().MaxBodyLength, logger)
	}); err != nil {
		return nil, err
	}

	// Register classifier
	if err := container.Provide(func(
		backend core.InferenceClient,
		rules *core.Rules,
		traceStore core.TraceStore,
		tokenManager *tokens.Manager,
		cfg *config.Config,
		logger *zap.Logger,
	) (*core.Classifier, error) {
		tokensCfg, err := cfg.GetTokens()
		if err != nil {
			return nil, err
		}
		class := cfg.GetClassification()
		return core.NewClassifier(backend, rules, traceStore, tokenManager,
			tokensCfg.AcquireTimeout, class.MaxBodyLength, logger), nil
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

	// Register fetch gate
	if err := container.Provide(core.NewFetchGate); err != nil {
		return nil, err
	}

	// Register triage options
	if err := container.Provide(func(cfg *config.Config) (core.TriageOptions, error) {
		email := cfg.GetEmail()
		deletion, err := cfg.GetDeletion()
		if err != nil {
			return core.TriageOptions{}, err
		}
		tokensCfg, err := cfg.GetTokens()
		if err != nil {
			return core.TriageOptions{}, err
		}
		return core.TriageOptions{
			Folder:       email.Folder,
			FetchLimit:   email.FetchLimit,
			UnreadOnly:   email.UnreadOnly,
			SinceDays:    email.SinceDays,
			DryRun:       deletion.DryRun,
			Label:        deletion.Label,
			TokenTimeout: tokensCfg.AcquireTimeout,
		}, nil
	}); err != nil {
		return nil, err
	}

	// Register triage service
	if err := container.Provide(core.NewTriageService); err != nil {
		return nil, err
	}

	// Register orchestrator with the configured agent set
	if err := container.Provide(func(
		cfg *config.Config,
		service *core.TriageService,
		logger *zap.Logger,
	) (*orchestrator.Orchestrator, error) {
		agentCfg, err := cfg.GetAgent()
		if err != nil {
			return nil, err
		}

		o := orchestrator.New(logger)
		if !agentCfg.Enabled {
			logger.Info("agent disabled, nothing scheduled", zap.String("agent", agentCfg.Name))
			return o, nil
		}
		switch agentCfg.Type {
		case "email":
			o.Register(agent.NewEmailAgent(service, agentCfg.Name, agentCfg.Interval, logger))
		default:
			logger.Warn("unknown agent type, skipping",
				zap.String("agent", agentCfg.Name),
				zap.String("type", agentCfg.Type))
		}
		return o, nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}
