package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mikey/mail-triage/internal/adapters/trace"
	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/core"
)

// TraceFactory creates classification trace stores based on configuration
type TraceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTraceFactory creates a new trace factory
func NewTraceFactory(cfg *config.Config, logger *zap.Logger) *TraceFactory {
	return &TraceFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTraceStore creates a trace store based on the configuration
func (f *TraceFactory) CreateTraceStore() (core.TraceStore, error) {
	traceCfg, err := f.cfg.GetTrace()
	if err != nil {
		return nil, err
	}

	switch traceCfg.Type {
	case "memory":
		return trace.NewMemoryTrace(traceCfg.MaxEntries, f.logger), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(traceCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create trace directory: %w", err)
		}
		return trace.NewSQLiteTrace(traceCfg.SQLitePath, traceCfg.MaxEntries, traceCfg.PruneFrequency, f.logger)
	case "mysql":
		return trace.NewMySQLTrace(traceCfg.MySQLDSN, traceCfg.MaxEntries, traceCfg.PruneFrequency, f.logger)
	default:
		return nil, fmt.Errorf("unsupported trace type: %s", traceCfg.Type)
	}
}
