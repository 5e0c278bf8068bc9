package core

import (
	"context"
)

// InferenceClient defines the interface for model-backed classification backends
type InferenceClient interface {
	// ClassifyEmail predicts a category for a message
	ClassifyEmail(ctx context.Context, msg *Message) (*ClassificationResult, error)
}

// TraceStore defines the interface for the append-only classification audit trace
type TraceStore interface {
	// Append records one classification
	Append(ctx context.Context, entry *TraceEntry) error

	// Close releases the underlying resources
	Close() error
}

// StateStore defines the interface for the persisted processing state blob
type StateStore interface {
	// Load returns the raw state blob, or nil when none has been saved yet
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the state blob
	Save(ctx context.Context, data []byte) error
}

// MailClient defines the interface for the external mail transport
type MailClient interface {
	// FetchCandidates returns messages from a folder matching the filters
	FetchCandidates(ctx context.Context, folder string, limit int, filters FetchFilters) ([]*Message, error)

	// PerformAction applies mailbox mutations to a message
	PerformAction(ctx context.Context, messageID string, ops MailOps) error

	// ListFolders returns the folders visible in the mailbox
	ListFolders(ctx context.Context) ([]string, error)
}

// SecretStore defines the interface for the external credential store
type SecretStore interface {
	// GetSecret retrieves a stored secret for an agent/service pair
	GetSecret(ctx context.Context, agent, service string) ([]byte, error)

	// PutSecret stores a secret for an agent/service pair
	PutSecret(ctx context.Context, agent, service string, data []byte) error
}
