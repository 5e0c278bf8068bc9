package agent

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mail-triage/internal/core"
)

// EmailAgent adapts the triage service to the schedulable agent shape
type EmailAgent struct {
	service  *core.TriageService
	name     string
	interval time.Duration
	logger   *zap.Logger
}

// NewEmailAgent creates a new email triage agent
func NewEmailAgent(service *core.TriageService, name string, interval time.Duration, logger *zap.Logger) *EmailAgent {
	return &EmailAgent{
		service:  service,
		name:     name,
		interval: interval,
		logger:   logger,
	}
}

// Name returns the agent name
func (a *EmailAgent) Name() string {
	return a.name
}

// Interval returns how often the agent should run
func (a *EmailAgent) Interval() time.Duration {
	return a.interval
}

// Run executes one triage cycle
func (a *EmailAgent) Run(ctx context.Context) error {
	_, err := a.service.Run(ctx)
	return err
}
