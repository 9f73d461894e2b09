package spawner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/pizza-rush/internal/model"
	"github.com/iliyamo/pizza-rush/internal/repository"
)

// sessionStore is a one-session in-memory store for loop tests.
type sessionStore struct {
	mu   sync.Mutex
	sess *model.Session
}

func (s *sessionStore) Create(_ context.Context, userID uint64) (model.Session, error) {
	return model.Session{}, errors.New("not used")
}

func (s *sessionStore) GetByID(_ context.Context, id uint64) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil || s.sess.ID != id {
		return model.Session{}, repository.ErrSessionNotFound
	}
	return *s.sess, nil
}

func (s *sessionStore) GetActiveByUser(_ context.Context, userID uint64) (model.Session, error) {
	return model.Session{}, repository.ErrSessionNotFound
}

func (s *sessionStore) End(_ context.Context, id uint64, status model.SessionStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil || s.sess.ID != id || s.sess.Status != model.SessionActive {
		return nil
	}
	t := at
	s.sess.Status = status
	s.sess.EndedAt = &t
	return nil
}

func (s *sessionStore) TouchActivity(_ context.Context, id uint64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess != nil && s.sess.ID == id {
		s.sess.LastActivity = at
	}
	return nil
}

func (s *sessionStore) snapshot() model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.sess
}

// countingMaker counts Generate calls and optionally fails.
type countingMaker struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *countingMaker) Generate(ctx context.Context) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return model.Order{}, m.err
	}
	return model.Order{ID: uint64(m.calls), Status: model.OrderQueued}, nil
}

func (m *countingMaker) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func activeSession(id uint64) *sessionStore {
	now := time.Now().UTC()
	return &sessionStore{sess: &model.Session{
		ID:           id,
		UserID:       1,
		Status:       model.SessionActive,
		StartedAt:    now,
		LastActivity: now,
	}}
}

func waitDone(t *testing.T, h *Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not terminate in time")
	}
}

func TestLoopStopsWhenSessionNotActive(t *testing.T) {
	store := activeSession(1)
	store.sess.Status = model.SessionEnded
	maker := &countingMaker{}

	m := NewManager(store, maker, Config{IdleTimeout: time.Hour, MinInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond})
	h := m.Start(1)
	waitDone(t, h)

	if maker.count() != 0 {
		t.Errorf("loop generated %d orders for a non-active session, want 0", maker.count())
	}
	if m.Running(1) {
		t.Error("handle must deregister after the loop exits")
	}
}

func TestLoopStopsWhenSessionMissing(t *testing.T) {
	store := &sessionStore{}
	maker := &countingMaker{}

	m := NewManager(store, maker, Config{IdleTimeout: time.Hour, MinInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond})
	h := m.Start(99)
	waitDone(t, h)

	if maker.count() != 0 {
		t.Errorf("loop generated %d orders for a missing session, want 0", maker.count())
	}
}

func TestLoopTimesOutIdleSession(t *testing.T) {
	store := activeSession(1)
	start := time.Now().UTC()
	store.sess.LastActivity = start.Add(-31 * time.Minute)
	maker := &countingMaker{}

	m := NewManager(store, maker, Config{IdleTimeout: 30 * time.Minute, MinInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond})
	h := m.Start(1)
	waitDone(t, h)

	got := store.snapshot()
	if got.Status != model.SessionTimeout {
		t.Errorf("session status = %q, want timeout", got.Status)
	}
	if got.EndedAt == nil {
		t.Fatal("timed-out session must carry ended_at")
	}
	if got.EndedAt.Before(start) || time.Since(*got.EndedAt) > time.Second {
		t.Errorf("ended_at = %v, want approximately now", got.EndedAt)
	}
	if maker.count() != 0 {
		t.Errorf("timed-out loop generated %d orders, want 0", maker.count())
	}
}

func TestLoopGeneratesAndSurvivesFailures(t *testing.T) {
	store := activeSession(1)
	maker := &countingMaker{err: errors.New("generation down")}

	m := NewManager(store, maker, Config{IdleTimeout: time.Hour, MinInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond})
	h := m.Start(1)

	// Let several iterations fail, then end the session through its
	// status field, the loop's polling cancellation mechanism.
	deadline := time.After(2 * time.Second)
	for maker.count() < 3 {
		select {
		case <-deadline:
			t.Fatal("loop stopped iterating after generation failures")
		case <-time.After(time.Millisecond):
		}
	}
	_ = store.End(context.Background(), 1, model.SessionEnded, time.Now().UTC())
	waitDone(t, h)

	if got := store.snapshot(); got.Status != model.SessionEnded {
		t.Errorf("session status = %q, want ended", got.Status)
	}
}

func TestHandleStopCancelsPromptly(t *testing.T) {
	store := activeSession(1)
	maker := &countingMaker{}

	// Long sleep interval: only explicit cancellation can end the loop
	// quickly.
	m := NewManager(store, maker, Config{IdleTimeout: time.Hour, MinInterval: time.Minute, MaxInterval: 2 * time.Minute})
	h := m.Start(1)

	time.Sleep(10 * time.Millisecond) // let the loop reach its sleep
	h.Stop()
	waitDone(t, h)

	if m.Running(1) {
		t.Error("stopped loop must deregister")
	}
}

func TestStartIsIdempotentPerSession(t *testing.T) {
	store := activeSession(1)
	maker := &countingMaker{}

	m := NewManager(store, maker, Config{IdleTimeout: time.Hour, MinInterval: time.Minute, MaxInterval: 2 * time.Minute})
	h1 := m.Start(1)
	h2 := m.Start(1)
	if h1 != h2 {
		t.Error("starting a running session must return the existing handle")
	}

	h1.Stop()
	waitDone(t, h1)

	// After termination a brand-new loop instance is required and allowed.
	h3 := m.Start(1)
	if h3 == h1 {
		t.Error("a finished handle must not be reused")
	}
	h3.Stop()
	waitDone(t, h3)
}

func TestStopAllWaitsForLoops(t *testing.T) {
	store1 := activeSession(1)
	maker := &countingMaker{}
	m := NewManager(store1, maker, Config{IdleTimeout: time.Hour, MinInterval: time.Minute, MaxInterval: 2 * time.Minute})

	m.Start(1)
	m.StopAll()

	if m.Running(1) {
		t.Error("StopAll must drain every loop")
	}
}
