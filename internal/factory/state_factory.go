package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/mail-triage/internal/adapters/state"
	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/core"
)

// StateFactory creates processing state stores based on configuration
type StateFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStateFactory creates a new state factory
func NewStateFactory(cfg *config.Config, logger *zap.Logger) *StateFactory {
	return &StateFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStateStore creates a state store based on the configuration
func (f *StateFactory) CreateStateStore() (core.StateStore, error) {
	stateCfg := f.cfg.GetState()

	switch stateCfg.Type {
	case "memory":
		return state.NewMemoryStore(), nil
	case "file":
		return state.NewFileStore(stateCfg.Path, f.logger)
	default:
		return nil, fmt.Errorf("unsupported state type: %s", stateCfg.Type)
	}
}
