package factory

import (
	"context"

	"go.uber.org/zap"

	"github.com/mikey/mail-triage/internal/adapters/gmail"
	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/core"
)

// MailFactory creates mail transport clients
type MailFactory struct {
	cfg     *config.Config
	secrets core.SecretStore
	logger  *zap.Logger
}

// NewMailFactory creates a new mail factory
func NewMailFactory(cfg *config.Config, secrets core.SecretStore, logger *zap.Logger) *MailFactory {
	return &MailFactory{
		cfg:     cfg,
		secrets: secrets,
		logger:  logger,
	}
}

// CreateMailClient creates a Gmail-backed mail client
func (f *MailFactory) CreateMailClient(ctx context.Context) (core.MailClient, error) {
	return gmail.NewClient(ctx, f.cfg.GetGmail(), f.secrets, f.logger)
}
