package ports

import (
	"context"
	"time"
)

// Agent defines the interface for schedulable agents
type Agent interface {
	// Name returns the agent name used in logs and run accounting
	Name() string

	// Interval returns how often the agent should run
	Interval() time.Duration

	// Run executes one agent cycle
	Run(ctx context.Context) error
}
