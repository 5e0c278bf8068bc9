package trace

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/mail-triage/internal/core"
	"go.uber.org/zap"
)

// SQLiteTrace is a SQLite implementation of the TraceStore interface
type SQLiteTrace struct {
	db         *sql.DB
	logger     *zap.Logger
	maxEntries int
	pruneFreq  time.Duration
	stopCh     chan struct{}
}

// NewSQLiteTrace creates a new SQLite trace store
func NewSQLiteTrace(dbPath string, maxEntries int, pruneFreq time.Duration, logger *zap.Logger) (*SQLiteTrace, error) {
	if pruneFreq <= 0 {
		pruneFreq = time.Hour
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Create table if it doesn't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS classification_trace (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TIMESTAMP,
			input TEXT,
			category TEXT,
			confidence REAL,
			method TEXT
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	// Create index on ts for ordered pruning
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_trace_ts ON classification_trace(ts)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	store := &SQLiteTrace{
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
func (t *SQLiteTrace) Append(ctx context.Context, entry *core.TraceEntry) error {
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO classification_trace (ts, input, category, confidence, method)
		VALUES (?, ?, ?, ?, ?)
	`, entry.Timestamp.Format(time.RFC3339), entry.Input, string(entry.Category), entry.Confidence, entry.Method)

	if err != nil {
		return fmt.Errorf("failed to insert trace entry: %w", err)
	}
	return nil
}

// Prune removes the oldest entries beyond the configured cap
func (t *SQLiteTrace) Prune(ctx context.Context) error {
	if t.maxEntries <= 0 {
		return nil
	}

	result, err := t.db.ExecContext(ctx, `
		DELETE FROM classification_trace
		WHERE id NOT IN (
			SELECT id FROM classification_trace
			ORDER BY id DESC
			LIMIT ?
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
func (t *SQLiteTrace) startPruneTask() {
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
func (t *SQLiteTrace) Close() error {
	close(t.stopCh)
	if err := t.db.Close(); err != nil {
		return fmt.Errorf("failed to close SQLite database: %w", err)
	}
	return nil
}
