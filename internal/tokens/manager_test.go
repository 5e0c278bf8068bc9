package tokens

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager(t *testing.T, dir, holder string) *Manager {
	t.Helper()
	m, err := NewManager(dir, holder, zap.NewNop())
	require.NoError(t, err)
	m.poll = 5 * time.Millisecond
	return m
}

func TestAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, dir, "agent-a")

	err := m.Acquire(context.Background(), KindMailConnection, time.Second)
	require.NoError(t, err)
	assert.True(t, m.Held(KindMailConnection))

	holder, acquiredAt, ok := readLockContent(m.lockPath(KindMailConnection))
	require.True(t, ok)
	assert.Equal(t, "agent-a", holder)
	assert.WithinDuration(t, time.Now(), acquiredAt, 5*time.Second)

	m.Release(KindMailConnection)
	assert.False(t, m.Held(KindMailConnection))
}

func TestAcquireReentrant(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, dir, "agent-a")

	require.NoError(t, m.Acquire(context.Background(), KindInference, time.Second))

	start := time.Now()
	err := m.Acquire(context.Background(), KindInference, time.Second)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond,
		"re-acquiring a held kind must not block")

	m.ReleaseAll()
}

func TestAcquireContentionTimesOut(t *testing.T) {
	dir := t.TempDir()
	a := newTestManager(t, dir, "agent-a")
	b := newTestManager(t, dir, "agent-b")

	require.NoError(t, a.Acquire(context.Background(), KindMailConnection, time.Second))
	defer a.Release(KindMailConnection)

	err := b.Acquire(context.Background(), KindMailConnection, 25*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAcquireTimeout))
	assert.False(t, b.Held(KindMailConnection))
}

func TestAcquireContextCancelled(t *testing.T) {
	dir := t.TempDir()
	a := newTestManager(t, dir, "agent-a")
	b := newTestManager(t, dir, "agent-b")

	require.NoError(t, a.Acquire(context.Background(), KindGeneral, time.Second))
	defer a.Release(KindGeneral)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := b.Acquire(ctx, KindGeneral, time.Minute)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestStaleLockCleanup(t *testing.T) {
	dir := t.TempDir()
	a := newTestManager(t, dir, "agent-a")
	b := newTestManager(t, dir, "agent-b")

	require.NoError(t, a.Acquire(context.Background(), KindCalendar, time.Second))

	// Backdate the recorded acquisition time past the staleness threshold.
	stale := fmt.Sprintf("agent-a|%d", time.Now().Add(-2*time.Hour).Unix())
	require.NoError(t, os.WriteFile(a.lockPath(KindCalendar), []byte(stale), 0o644))

	err := b.Acquire(context.Background(), KindCalendar, time.Second)
	require.NoError(t, err, "stale lock should be cleaned up and re-acquired")
	assert.True(t, b.Held(KindCalendar))

	// The original holder's release of its invalidated lock must not panic.
	a.Release(KindCalendar)
	assert.False(t, a.Held(KindCalendar))

	b.Release(KindCalendar)
}

func TestFreshLockNotCleaned(t *testing.T) {
	dir := t.TempDir()
	a := newTestManager(t, dir, "agent-a")
	b := newTestManager(t, dir, "agent-b")

	require.NoError(t, a.Acquire(context.Background(), KindGeneral, time.Second))
	defer a.Release(KindGeneral)

	err := b.Acquire(context.Background(), KindGeneral, 25*time.Millisecond)
	assert.True(t, errors.Is(err, ErrAcquireTimeout))

	// The live lock file must survive the contender's polling.
	_, _, ok := readLockContent(a.lockPath(KindGeneral))
	assert.True(t, ok)
	assert.True(t, a.Held(KindGeneral))
}

func TestReleaseUnheldIsNoop(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, dir, "agent-a")

	m.Release(KindMailConnection)
	assert.False(t, m.Held(KindMailConnection))
}

func TestReleaseInvalidatedHandle(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, dir, "agent-a")

	require.NoError(t, m.Acquire(context.Background(), KindGeneral, time.Second))

	// Invalidate the handle out-of-band.
	m.mu.Lock()
	f := m.held[KindGeneral]
	m.mu.Unlock()
	require.NoError(t, f.Close())

	m.Release(KindGeneral)
	assert.False(t, m.Held(KindGeneral))
}

func TestWithToken(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, dir, "agent-a")

	var ranWhileHeld bool
	err := m.WithToken(context.Background(), KindInference, time.Second, func(ctx context.Context) error {
		ranWhileHeld = m.Held(KindInference)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ranWhileHeld)
	assert.False(t, m.Held(KindInference), "token must be released after the body returns")
}

func TestWithTokenReleasesOnError(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, dir, "agent-a")

	wantErr := errors.New("body failed")
	err := m.WithToken(context.Background(), KindInference, time.Second, func(ctx context.Context) error {
		return wantErr
	})
	assert.True(t, errors.Is(err, wantErr))
	assert.False(t, m.Held(KindInference))
}

func TestWithTokenAcquireFailure(t *testing.T) {
	dir := t.TempDir()
	a := newTestManager(t, dir, "agent-a")
	b := newTestManager(t, dir, "agent-b")

	require.NoError(t, a.Acquire(context.Background(), KindGeneral, time.Second))
	defer a.Release(KindGeneral)

	bodyRan := false
	err := b.WithToken(context.Background(), KindGeneral, 25*time.Millisecond, func(ctx context.Context) error {
		bodyRan = true
		return nil
	})
	assert.True(t, errors.Is(err, ErrAcquireTimeout))
	assert.False(t, bodyRan)
}

func TestReleaseAll(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, dir, "agent-a")

	require.NoError(t, m.Acquire(context.Background(), KindMailConnection, time.Second))
	require.NoError(t, m.Acquire(context.Background(), KindInference, time.Second))

	m.ReleaseAll()
	assert.False(t, m.Held(KindMailConnection))
	assert.False(t, m.Held(KindInference))
}

func TestStatus(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, dir, "agent-a")

	status := m.Status()
	assert.Equal(t, "available", status[KindMailConnection])

	require.NoError(t, m.Acquire(context.Background(), KindMailConnection, time.Second))
	status = m.Status()
	assert.Contains(t, status[KindMailConnection], "locked by agent-a")

	m.Release(KindMailConnection)
}
