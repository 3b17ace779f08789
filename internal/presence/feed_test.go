package presence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bilda/backend/internal/models"
)

type fakeStore struct {
	mu        sync.Mutex
	sessions  []models.LiveSession
	listErr   error
	listDelay time.Duration
	listCalls int
	staleIDs  map[uuid.UUID]bool
}

func (s *fakeStore) ListActive(ctx context.Context) ([]models.LiveSession, error) {
	s.mu.Lock()
	s.listCalls++
	err := s.listErr
	delay := s.listDelay
	out := make([]models.LiveSession, len(s.sessions))
	copy(out, s.sessions)
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *fakeStore) Reconcile(ctx context.Context, staleAfter time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []models.LiveSession
	var removed int64
	for _, sess := range s.sessions {
		if s.staleIDs[sess.ID] {
			removed++
			continue
		}
		kept = append(kept, sess)
	}
	s.sessions = kept
	return removed, nil
}

func (s *fakeStore) setSessions(list []models.LiveSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = list
}

func (s *fakeStore) setListErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listErr = err
}

func (s *fakeStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

type fakeEvents struct {
	mu      sync.Mutex
	handler func(event string, data []byte)
}

func (e *fakeEvents) Subscribe(handler func(event string, data []byte)) (func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = handler
	return func() {}, nil
}

func (e *fakeEvents) emit(event string) {
	e.mu.Lock()
	h := e.handler
	e.mu.Unlock()
	if h != nil {
		h(event, nil)
	}
}

type staticProfiles struct{}

func (staticProfiles) GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return &models.Profile{UserID: userID}, nil
}

type staticProjects struct{}

func (staticProjects) GetProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return &models.Project{ID: id}, nil
}

func newTestEnricher() *Enricher {
	return NewEnricher(staticProfiles{}, staticProjects{}, nil)
}

func session(userID uuid.UUID) models.LiveSession {
	return models.LiveSession{
		ID:         uuid.New(),
		UserID:     userID,
		ProjectID:  uuid.New(),
		StartedAt:  time.Now(),
		LastSeenAt: time.Now(),
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

func TestFeedInitialRefresh(t *testing.T) {
	store := &fakeStore{sessions: []models.LiveSession{session(uuid.New())}}
	feed := NewFeed(store, newTestEnricher(), nil, time.Minute, time.Hour, nil)
	if err := feed.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer feed.Stop()

	waitFor(t, func() bool { return len(feed.Snapshot().Sessions) == 1 })
	snap := feed.Snapshot()
	if snap.UpdatedAt.IsZero() {
		t.Fatalf("snapshot UpdatedAt is zero")
	}
	if snap.Sessions[0].Profile == nil || snap.Sessions[0].Project == nil {
		t.Fatalf("snapshot not enriched: %+v", snap.Sessions[0])
	}
}

func TestFeedPushTriggersRefresh(t *testing.T) {
	store := &fakeStore{sessions: []models.LiveSession{session(uuid.New())}}
	events := &fakeEvents{}
	feed := NewFeed(store, newTestEnricher(), events, time.Minute, time.Hour, nil)
	if err := feed.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer feed.Stop()
	waitFor(t, func() bool { return len(feed.Snapshot().Sessions) == 1 })

	store.setSessions([]models.LiveSession{session(uuid.New()), session(uuid.New())})
	events.emit(EventSessionStarted)

	waitFor(t, func() bool { return len(feed.Snapshot().Sessions) == 2 })
}

func TestFeedKeepsLastKnownGoodOnListError(t *testing.T) {
	store := &fakeStore{sessions: []models.LiveSession{session(uuid.New())}}
	feed := NewFeed(store, newTestEnricher(), nil, time.Minute, time.Hour, nil)
	if err := feed.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer feed.Stop()
	waitFor(t, func() bool { return len(feed.Snapshot().Sessions) == 1 })
	before := feed.Snapshot()

	store.setListErr(errors.New("connection refused"))
	calls := store.calls()
	feed.Refresh()
	waitFor(t, func() bool { return store.calls() > calls })
	time.Sleep(20 * time.Millisecond)

	after := feed.Snapshot()
	if len(after.Sessions) != 1 {
		t.Fatalf("snapshot lost on transient error: got %d sessions", len(after.Sessions))
	}
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("UpdatedAt advanced on failed refresh: %v -> %v", before.UpdatedAt, after.UpdatedAt)
	}
}

func TestFeedReconcileRemovesStale(t *testing.T) {
	fresh := session(uuid.New())
	stale := session(uuid.New())
	store := &fakeStore{
		sessions: []models.LiveSession{fresh, stale},
		staleIDs: map[uuid.UUID]bool{stale.ID: true},
	}
	feed := NewFeed(store, newTestEnricher(), nil, time.Minute, time.Hour, nil)
	if err := feed.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer feed.Stop()

	waitFor(t, func() bool {
		snap := feed.Snapshot()
		return len(snap.Sessions) == 1 && snap.Sessions[0].ID == fresh.ID
	})

	// A second pass removes nothing; the snapshot is unchanged.
	feed.Refresh()
	time.Sleep(50 * time.Millisecond)
	if got := len(feed.Snapshot().Sessions); got != 1 {
		t.Fatalf("after second reconcile: got %d sessions, want 1", got)
	}
}

func TestFeedCoalescesBurst(t *testing.T) {
	store := &fakeStore{
		sessions:  []models.LiveSession{session(uuid.New())},
		listDelay: 30 * time.Millisecond,
	}
	feed := NewFeed(store, newTestEnricher(), nil, time.Minute, time.Hour, nil)
	if err := feed.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer feed.Stop()
	waitFor(t, func() bool { return len(feed.Snapshot().Sessions) == 1 })

	base := store.calls()
	for i := 0; i < 20; i++ {
		feed.Refresh()
	}
	waitFor(t, func() bool { return store.calls() > base })
	time.Sleep(200 * time.Millisecond)

	// One in-flight run plus at most one queued follow-up.
	if got := store.calls() - base; got > 2 {
		t.Fatalf("burst of 20 triggers caused %d refreshes, want <= 2", got)
	}
}

func TestFeedConcurrentRefreshAndStop(t *testing.T) {
	// Refresh must not add to the wait group once Stop has begun waiting.
	// Run the race many times; a violation panics with "WaitGroup misuse".
	for i := 0; i < 50; i++ {
		store := &fakeStore{sessions: []models.LiveSession{session(uuid.New())}}
		feed := NewFeed(store, newTestEnricher(), nil, time.Minute, time.Hour, nil)
		if err := feed.Start(context.Background()); err != nil {
			t.Fatalf("Start() error = %v", err)
		}

		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				feed.Refresh()
			}()
		}
		feed.Stop()
		wg.Wait()
	}
}

func TestFeedRefreshAfterStopIsNoop(t *testing.T) {
	store := &fakeStore{sessions: []models.LiveSession{session(uuid.New())}}
	feed := NewFeed(store, newTestEnricher(), nil, time.Minute, time.Hour, nil)
	if err := feed.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, func() bool { return len(feed.Snapshot().Sessions) == 1 })
	feed.Stop()

	calls := store.calls()
	feed.Refresh()
	time.Sleep(50 * time.Millisecond)
	if store.calls() != calls {
		t.Fatalf("refresh ran after Stop")
	}
}
