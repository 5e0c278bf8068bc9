package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	// recentKeyCapacity bounds the duplicate-suppression window
	recentKeyCapacity = 200
	// watermarkTolerance absorbs out-of-order delivery behind the watermark
	watermarkTolerance = 48 * time.Hour
)

// FetchGate tracks the incremental-fetch watermark and a bounded window of
// recently committed dedup keys. State lives in a single persisted blob;
// callers serialize access by holding the mail-connection token.
type FetchGate struct {
	store  StateStore
	logger *zap.Logger

	loaded bool
	state  WatermarkState
	recent map[string]struct{}
}

// NewFetchGate creates a fetch gate over the given state store
func NewFetchGate(store StateStore, logger *zap.Logger) *FetchGate {
	return &FetchGate{
		store:  store,
		logger: logger,
	}
}

// ensureLoaded reads the persisted state once. Unreadable or corrupted state
// resets to empty with a warning, never an error.
func (g *FetchGate) ensureLoaded(ctx context.Context) {
	if g.loaded {
		return
	}
	g.loaded = true
	g.state = WatermarkState{}
	g.recent = make(map[string]struct{})

	data, err := g.store.Load(ctx)
	if err != nil {
		g.logger.Warn("failed to load processing state, starting empty", zap.Error(err))
		return
	}
	if len(data) == 0 {
		g.logger.Debug("no processing state found, starting empty")
		return
	}

	var st WatermarkState
	if err := json.Unmarshal(data, &st); err != nil {
		g.logger.Warn("corrupted processing state, resetting to empty", zap.Error(err))
		return
	}
	g.state = st
	for _, key := range st.RecentKeys {
		g.recent[key] = struct{}{}
	}
	g.logger.Debug("loaded processing state",
		zap.Int("recent_keys", len(st.RecentKeys)),
		zap.Time("watermark", st.LatestDate))
}

// IsCandidate reports whether a message still needs processing. A message is
// rejected when its dedup key was committed within the tracked window, or
// when it is older than the watermark by more than the tolerance.
func (g *FetchGate) IsCandidate(ctx context.Context, msg *Message) bool {
	g.ensureLoaded(ctx)

	if _, seen := g.recent[msg.DedupKey]; seen {
		return false
	}
	if g.state.LatestKey != "" && msg.DedupKey == g.state.LatestKey {
		return false
	}
	if !g.state.LatestDate.IsZero() && g.state.LatestDate.Sub(msg.Date) > watermarkTolerance {
		g.logger.Debug("message predates watermark tolerance, skipping",
			zap.String("dedup_key", msg.DedupKey),
			zap.Time("message_date", msg.Date),
			zap.Time("watermark", g.state.LatestDate))
		return false
	}
	return true
}

// Commit records a processed message: the dedup key joins the recent-key
// ring (oldest evicted past capacity) and the watermark advances only when
// the message is strictly newer. The updated blob is persisted before Commit
// returns; a persistence failure leaves the message uncommitted.
func (g *FetchGate) Commit(ctx context.Context, msg *Message) error {
	g.ensureLoaded(ctx)

	if _, seen := g.recent[msg.DedupKey]; !seen {
		g.state.RecentKeys = append(g.state.RecentKeys, msg.DedupKey)
		g.recent[msg.DedupKey] = struct{}{}
		if over := len(g.state.RecentKeys) - recentKeyCapacity; over > 0 {
			for _, old := range g.state.RecentKeys[:over] {
				delete(g.recent, old)
			}
			g.state.RecentKeys = append([]string(nil), g.state.RecentKeys[over:]...)
		}
	}

	if msg.Date.After(g.state.LatestDate) {
		g.state.LatestKey = msg.DedupKey
		g.state.LatestDate = msg.Date
		g.state.LatestSubject = msg.Subject
	}
	g.state.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(&g.state)
	if err != nil {
		return fmt.Errorf("failed to encode processing state: %w", err)
	}
	if err := g.store.Save(ctx, data); err != nil {
		return fmt.Errorf("failed to persist processing state: %w", err)
	}
	return nil
}

// Watermark returns a copy of the current state
func (g *FetchGate) Watermark(ctx context.Context) WatermarkState {
	g.ensureLoaded(ctx)
	out := g.state
	out.RecentKeys = append([]string(nil), g.state.RecentKeys...)
	return out
}
