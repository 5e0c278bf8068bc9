package trace

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mikey/mail-triage/internal/core"
	"go.uber.org/zap"
)

// MySQLTrace is a MySQL implementation of the TraceStore interface
type MySQLTrace struct {
	db         *sql.DB
	logger     *zap.Logger
	maxEntries int
	pruneFreq  time.Duration
	stopCh     chan struct{}
}

// NewMySQLTrace creates a new MySQL trace store
func NewMySQLTrace(dsn string, maxEntries int, pruneFreq time.Duration, logger *zap.Logger) (*MySQLTrace, error) {
	if pruneFreq <= 0 {
		pruneFreq = time.Hour
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	// Create table if it doesn't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS classification_trace (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			ts TIMESTAMP,
			input TEXT,
			category VARCHAR(32),
			confidence DOUBLE,
			method VARCHAR(32),
			INDEX idx_trace_ts (ts)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	store := &MySQLTrace{
		db:         db,
		logger:     logger,
		maxEntries: maxEntries,
		pruneFreq:  pruneFreq,
		stopCh:     make(chan struct{}),
	}

	// Start background pruning
	go store.startPruneTask()

	return store, nil
}

// Append stores one classification record
func (t *MySQLTrace) Append(ctx context.Context, entry *core.TraceEntry) error {
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO classification_trace (ts, input, category, confidence, method)
		VALUES (?, ?, ?, ?, ?)
	`, entry.Timestamp.UTC().Format("2006-01-02 15:04:05"), entry.Input, string(entry.Category), entry.Confidence, entry.Method)

	if err != nil {
		return fmt.Errorf("failed to insert trace entry: %w", err)
	}
	return nil
}

// Prune removes the oldest entries beyond the configured cap
func (t *MySQLTrace) Prune(ctx context.Context) error {
	if t.maxEntries <= 0 {
		return nil
	}

	result, err := t.db.ExecContext(ctx, `
		DELETE FROM classification_trace
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id FROM classification_trace
				ORDER BY id DESC
				LIMIT ?
			) keep
		)
	`, t.maxEntries)

	if err != nil {
		return fmt.Errorf("failed to prune trace entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		t.logger.Warn("Failed to get rows affected during prune", zap.Error(err))
	} else if rowsAffected > 0 {
		t.logger.Debug("Pruned old trace entries", zap.Int64("pruned_count", rowsAffected))
	}

	return nil
}

// startPruneTask starts a background task to cap the trace size
func (t *MySQLTrace) startPruneTask() {
	ticker := time.NewTicker(t.pruneFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := t.Prune(context.Background()); err != nil {
				t.logger.Error("Failed to prune trace", zap.Error(err))
			}
		case <-t.stopCh:
			return
		}
	}
}

// Close stops the background pruning task and closes the database connection
func (t *MySQLTrace) Close() error {
	close(t.stopCh)
	if err := t.db.Close(); err != nil {
		return fmt.Errorf("failed to close MySQL database: %w", err)
	}
	return nil
}
