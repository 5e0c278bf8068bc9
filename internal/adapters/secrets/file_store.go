package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// FileStore persists secrets as JSON files under a base directory,
// one subdirectory per agent
type FileStore struct {
	dir    string
	logger *zap.Logger
}

// NewFileStore creates a file-backed secret store rooted at dir
func NewFileStore(dir string, logger *zap.Logger) *FileStore {
	return &FileStore{
		dir:    dir,
		logger: logger,
	}
}

// GetSecret retrieves a stored secret for an agent/service pair
func (s *FileStore) GetSecret(ctx context.Context, agent, service string) ([]byte, error) {
	data, err := os.ReadFile(s.secretPath(agent, service))
	if err != nil {
		return nil, fmt.Errorf("failed to read secret %s/%s: %w", agent, service, err)
	}
	return data, nil
}

// PutSecret stores a secret for an agent/service pair, creating the
// agent directory with restrictive permissions
func (s *FileStore) PutSecret(ctx context.Context, agent, service string, data []byte) error {
	path := s.secretPath(agent, service)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create secret directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write secret %s/%s: %w", agent, service, err)
	}

	s.logger.Debug("secret stored",
		zap.String("agent", agent),
		zap.String("service", service))

	return nil
}

func (s *FileStore) secretPath(agent, service string) string {
	return filepath.Join(s.dir, agent, service+".json")
}
