package tokens

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Kind identifies a shared resource guarded by a token
type Kind string

const (
	// KindMailConnection serializes access to the mail transport
	KindMailConnection Kind = "mail-connection"
	// KindInference serializes access to the inference accelerator
	KindInference Kind = "inference-accelerator"
	// KindCalendar serializes access to the calendar API
	KindCalendar Kind = "calendar-api"
	// KindGeneral is a general-purpose processing token
	KindGeneral Kind = "general"
)

// Kinds returns the fixed set of resource kinds
func Kinds() []Kind {
	return []Kind{KindMailConnection, KindInference, KindCalendar, KindGeneral}
}

// DefaultAcquireTimeout bounds Acquire when no timeout is configured
const DefaultAcquireTimeout = 5 * time.Minute

const (
	pollInterval   = time.Second
	staleThreshold = time.Hour
)

// ErrAcquireTimeout is returned when a token is not obtained within the bound
var ErrAcquireTimeout = errors.New("token acquisition timed out")

var errLockBusy = errors.New("lock held by another process")

// Manager coordinates cross-process resource tokens through file locks.
// Each process constructs its own Manager with a stable holder identity;
// the held-set makes re-acquisition of an already-held kind a no-op.
type Manager struct {
	dir    string
	holder string
	logger *zap.Logger

	poll  time.Duration
	stale time.Duration

	mu   sync.Mutex
	held map[Kind]*os.File
}

// NewManager creates a token manager rooted at the given lock directory
func NewManager(dir, holder string, logger *zap.Logger) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	return &Manager{
		dir:    dir,
		holder: holder,
		logger: logger,
		poll:   pollInterval,
		stale:  staleThreshold,
		held:   make(map[Kind]*os.File),
	}, nil
}

// Holder returns the identity recorded in locks this manager acquires
func (m *Manager) Holder() string {
	return m.holder
}

func (m *Manager) lockPath(kind Kind) string {
	return filepath.Join(m.dir, string(kind)+".lock")
}

// Acquire obtains the token for a resource kind, polling until the timeout
// elapses. It returns nil on success, ErrAcquireTimeout when the bound is
// exceeded, and the context error on cancellation. Re-acquiring a kind this
// manager already holds succeeds immediately.
func (m *Manager) Acquire(ctx context.Context, kind Kind, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultAcquireTimeout
	}

	m.mu.Lock()
	if _, ok := m.held[kind]; ok {
		m.mu.Unlock()
		m.logger.Debug("token already held",
			zap.String("kind", string(kind)),
			zap.String("holder", m.holder))
		return nil
	}
	m.mu.Unlock()

	start := time.Now()
	m.logger.Info("attempting to acquire token",
		zap.String("kind", string(kind)),
		zap.String("holder", m.holder))

	for {
		f, err := m.tryLock(kind)
		if err == nil {
			m.mu.Lock()
			m.held[kind] = f
			m.mu.Unlock()
			m.logger.Info("token acquired",
				zap.String("kind", string(kind)),
				zap.String("holder", m.holder),
				zap.Duration("waited", time.Since(start)))
			return nil
		}
		if !errors.Is(err, errLockBusy) {
			return fmt.Errorf("failed to acquire %s token: %w", kind, err)
		}

		if time.Since(start) >= timeout {
			m.logger.Warn("token acquisition timed out",
				zap.String("kind", string(kind)),
				zap.String("holder", m.holder),
				zap.Duration("waited", time.Since(start)))
			return fmt.Errorf("%s token not acquired within %s: %w", kind, timeout, ErrAcquireTimeout)
		}

		m.cleanupIfStale(kind)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.poll):
		}
	}
}

// tryLock attempts a single non-blocking exclusive lock of the kind's file
func (m *Manager) tryLock(kind Kind) (*os.File, error) {
	f, err := os.OpenFile(m.lockPath(kind), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		if err == syscall.EWOULDBLOCK || err == syscall.EAGAIN {
			return nil, errLockBusy
		}
		return nil, fmt.Errorf("flock failed: %w", err)
	}

	// Record holder identity and acquisition time for observability.
	if err := recordHolder(f, m.holder); err != nil {
		m.logger.Warn("failed to record holder in lock file",
			zap.String("kind", string(kind)), zap.Error(err))
	}
	return f, nil
}

func recordHolder(f *os.File, holder string) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	_, err := fmt.Fprintf(f, "%s|%d", holder, time.Now().Unix())
	return err
}

// cleanupIfStale removes the lock file when its recorded timestamp is older
// than the staleness threshold. Removal failure is logged, never fatal; the
// next poll cycle retries.
func (m *Manager) cleanupIfStale(kind Kind) {
	path := m.lockPath(kind)
	holder, acquiredAt, ok := readLockContent(path)
	if !ok {
		return
	}
	age := time.Since(acquiredAt)
	if age <= m.stale {
		return
	}
	m.logger.Warn("detected stale lock, attempting cleanup",
		zap.String("kind", string(kind)),
		zap.String("stale_holder", holder),
		zap.Duration("age", age))
	if err := os.Remove(path); err != nil {
		m.logger.Warn("failed to remove stale lock",
			zap.String("kind", string(kind)), zap.Error(err))
		return
	}
	m.logger.Info("removed stale lock", zap.String("kind", string(kind)))
}

// readLockContent parses "holder|unix-seconds" out of a lock file. The bool
// is false when the file is absent or its content is unparseable.
func readLockContent(path string) (string, time.Time, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", time.Time{}, false
	}
	content := strings.TrimSpace(string(data))
	parts := strings.SplitN(content, "|", 2)
	if len(parts) < 2 {
		return "", time.Time{}, false
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return "", time.Time{}, false
	}
	return parts[0], time.Unix(ts, 0), true
}

// Release gives up a held token. Releasing a kind that is not held logs a
// warning and no-ops. Errors from an invalidated handle are logged and local
// bookkeeping is cleaned up regardless.
func (m *Manager) Release(kind Kind) {
	m.mu.Lock()
	f, ok := m.held[kind]
	if !ok {
		m.mu.Unlock()
		m.logger.Warn("attempted to release token that was not acquired",
			zap.String("kind", string(kind)),
			zap.String("holder", m.holder))
		return
	}
	delete(m.held, kind)
	m.mu.Unlock()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_UN); err != nil {
		m.logger.Warn("failed to unlock token file",
			zap.String("kind", string(kind)), zap.Error(err))
	}
	if err := f.Close(); err != nil {
		m.logger.Warn("failed to close token file",
			zap.String("kind", string(kind)), zap.Error(err))
	}
	m.logger.Info("token released",
		zap.String("kind", string(kind)),
		zap.String("holder", m.holder))
}

// ReleaseAll releases every token this manager holds, for shutdown paths
func (m *Manager) ReleaseAll() {
	m.mu.Lock()
	kinds := make([]Kind, 0, len(m.held))
	for kind := range m.held {
		kinds = append(kinds, kind)
	}
	m.mu.Unlock()

	for _, kind := range kinds {
		m.Release(kind)
	}
}

// Held reports whether this manager currently holds the given kind
func (m *Manager) Held(kind Kind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[kind]
	return ok
}

// WithToken runs fn while holding the token for kind, releasing it on every
// exit path
func (m *Manager) WithToken(ctx context.Context, kind Kind, timeout time.Duration, fn func(ctx context.Context) error) error {
	if err := m.Acquire(ctx, kind, timeout); err != nil {
		return err
	}
	defer m.Release(kind)
	return fn(ctx)
}

// Status reports the observable state of every lock file. A lock file left
// behind by a clean release still names its last holder; only a held flock
// actually blocks acquisition.
func (m *Manager) Status() map[Kind]string {
	status := make(map[Kind]string, len(Kinds()))
	for _, kind := range Kinds() {
		path := m.lockPath(kind)
		if _, err := os.Stat(path); err != nil {
			status[kind] = "available"
			continue
		}
		holder, acquiredAt, ok := readLockContent(path)
		if !ok {
			status[kind] = "locked (unknown)"
			continue
		}
		status[kind] = fmt.Sprintf("locked by %s (%.0fs ago)", holder, time.Since(acquiredAt).Seconds())
	}
	return status
}
