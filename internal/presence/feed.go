package presence

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bilda/backend/internal/models"
)

// Store is what the feed needs from the session store.
type Store interface {
	ListActive(ctx context.Context) ([]models.LiveSession, error)
	Reconcile(ctx context.Context, staleAfter time.Duration) (int64, error)
}

// EventSource delivers session change notifications (Redis pub/sub in
// production).
type EventSource interface {
	Subscribe(handler func(event string, data []byte)) (cancel func(), err error)
}

// Snapshot is one published feed state: a full rebuild from a single store
// read, never an incremental patch. UpdatedAt is the completion time of the
// read that produced it, so a stale value signals transient store trouble.
type Snapshot struct {
	Sessions  []models.EnrichedLiveSession `json:"sessions"`
	UpdatedAt time.Time                    `json:"updated_at"`
}

// Feed produces the current list of active sessions. Two triggers feed one
// refresh path: a fallback poll ticker and push notifications from the event
// source. Refreshes are coalesced: while one is in flight further triggers
// collapse into a single follow-up run, which bounds work under bursty
// pushes while guaranteeing the final snapshot reflects the latest completed
// read.
type Feed struct {
	store        Store
	enricher     *Enricher
	events       EventSource
	staleAfter   time.Duration
	pollInterval time.Duration
	logger       *zap.Logger

	mu        sync.Mutex
	inFlight  bool
	pending   bool
	snapshot  Snapshot
	onPublish []func(Snapshot)

	ctx       context.Context
	cancel    context.CancelFunc
	cancelSub func()
	wg        sync.WaitGroup
}

// NewFeed creates a live feed over the given store, enricher and event
// source. Call Start to begin refreshing and Stop to release the poll timer
// and subscription.
func NewFeed(store Store, enricher *Enricher, events EventSource, staleAfter, pollInterval time.Duration, logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{
		store:        store,
		enricher:     enricher,
		events:       events,
		staleAfter:   staleAfter,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// OnPublish registers a callback invoked with every published snapshot.
// Register before Start.
func (f *Feed) OnPublish(fn func(Snapshot)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onPublish = append(f.onPublish, fn)
}

// Start subscribes to change notifications, starts the fallback poll ticker
// and runs an initial refresh.
func (f *Feed) Start(ctx context.Context) error {
	f.ctx, f.cancel = context.WithCancel(ctx)

	if f.events != nil {
		cancel, err := f.events.Subscribe(func(event string, _ []byte) {
			f.logger.Debug("session change push", zap.String("event", event))
			f.Refresh()
		})
		if err != nil {
			// Push is a freshness accelerant; polling alone still converges.
			f.logger.Warn("live events subscription failed, poll only", zap.Error(err))
		} else {
			f.cancelSub = cancel
		}
	}

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		ticker := time.NewTicker(f.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-f.ctx.Done():
				return
			case <-ticker.C:
				f.Refresh()
			}
		}
	}()

	f.Refresh()
	return nil
}

// Stop releases the poll ticker and subscription. In-flight refreshes finish
// on their own; their publish becomes a no-op once the context is done.
// Cancellation happens under the same mutex as Refresh's context check and
// wg.Add, so no refresh goroutine can be added after Wait begins.
func (f *Feed) Stop() {
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	f.mu.Unlock()
	if f.cancelSub != nil {
		f.cancelSub()
		f.cancelSub = nil
	}
	f.wg.Wait()
}

// Snapshot returns the last published feed state.
func (f *Feed) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

// Refresh triggers the refresh pipeline. Poll ticks, push events and manual
// requests all land here; there is no special-cased fast path. If a refresh
// is already in flight exactly one more is queued behind it.
func (f *Feed) Refresh() {
	f.mu.Lock()
	if f.ctx != nil && f.ctx.Err() != nil {
		f.mu.Unlock()
		return
	}
	if f.inFlight {
		f.pending = true
		f.mu.Unlock()
		return
	}
	f.inFlight = true
	f.wg.Add(1)
	f.mu.Unlock()

	go func() {
		defer f.wg.Done()
		for {
			f.refresh()
			f.mu.Lock()
			if f.pending {
				f.pending = false
				f.mu.Unlock()
				continue
			}
			f.inFlight = false
			f.mu.Unlock()
			return
		}
	}()
}

// refresh runs one pipeline pass: reconcile, list, enrich, publish. Every
// stage degrades to best-available data; nothing here aborts the feed.
func (f *Feed) refresh() {
	ctx := f.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}

	if removed, err := f.store.Reconcile(ctx, f.staleAfter); err != nil {
		// Non-fatal: the read below may show not-yet-cleaned rows.
		f.logger.Warn("reconcile failed", zap.Error(err))
	} else if removed > 0 {
		f.logger.Info("reconciled stale sessions", zap.Int64("removed", removed))
	}

	sessions, err := f.store.ListActive(ctx)
	if err != nil {
		// Keep the last-known-good snapshot; retry on the next tick.
		f.logger.Warn("list active sessions failed", zap.Error(err))
		return
	}
	readAt := time.Now().UTC()

	// Enrichment operates on this single read's list, so a published snapshot
	// is always internally consistent with one store state.
	items := f.enricher.Enrich(ctx, sessions)
	snap := Snapshot{Sessions: items, UpdatedAt: readAt}

	f.mu.Lock()
	f.snapshot = snap
	subs := make([]func(Snapshot), len(f.onPublish))
	copy(subs, f.onPublish)
	f.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	for _, fn := range subs {
		fn(snap)
	}
}
