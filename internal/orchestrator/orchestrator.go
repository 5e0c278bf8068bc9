package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mail-triage/internal/ports"
)

// scheduledAgent tracks one agent and when it last ran
type scheduledAgent struct {
	agent   ports.Agent
	lastRun time.Time
}

// Orchestrator runs registered agents on their configured intervals
type Orchestrator struct {
	agents        []*scheduledAgent
	checkInterval time.Duration
	logger        *zap.Logger
}

// New creates an orchestrator with no registered agents
func New(logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		checkInterval: time.Minute,
		logger:        logger,
	}
}

// Register adds an agent to the schedule
func (o *Orchestrator) Register(agent ports.Agent) {
	o.agents = append(o.agents, &scheduledAgent{agent: agent})
	o.logger.Info("registered agent",
		zap.String("agent", agent.Name()),
		zap.Duration("interval", agent.Interval()))
}

// RunOnce runs every registered agent a single time
func (o *Orchestrator) RunOnce(ctx context.Context) {
	for _, sa := range o.agents {
		o.runAgent(ctx, sa)
	}
}

// Run loops until the context is cancelled, starting agents whose
// interval has elapsed. The schedule is checked once a minute.
func (o *Orchestrator) Run(ctx context.Context) {
	if len(o.agents) == 0 {
		o.logger.Warn("no agents registered, orchestrator will run idle")
	}

	ticker := time.NewTicker(o.checkInterval)
	defer ticker.Stop()

	// First pass immediately so agents do not wait out a full tick
	o.runDue(ctx)

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("orchestrator stopped")
			return
		case <-ticker.C:
			o.runDue(ctx)
		}
	}
}

func (o *Orchestrator) runDue(ctx context.Context) {
	for _, sa := range o.agents {
		if ctx.Err() != nil {
			return
		}
		if o.shouldRun(sa) {
			o.runAgent(ctx, sa)
		}
	}
}

func (o *Orchestrator) shouldRun(sa *scheduledAgent) bool {
	if sa.lastRun.IsZero() {
		return true
	}
	return time.Since(sa.lastRun) >= sa.agent.Interval()
}

// runAgent runs one agent. Failures are logged and still advance the
// last-run time so a broken agent does not hot-loop.
func (o *Orchestrator) runAgent(ctx context.Context, sa *scheduledAgent) {
	name := sa.agent.Name()
	o.logger.Info("running agent", zap.String("agent", name))
	startTime := time.Now()

	err := sa.agent.Run(ctx)
	sa.lastRun = time.Now()
	if err != nil {
		o.logger.Error("agent run failed",
			zap.String("agent", name),
			zap.Error(err))
		return
	}

	o.logger.Debug("agent run complete",
		zap.String("agent", name),
		zap.Duration("duration", time.Since(startTime)))
}
