// Package spawner runs one background order-generation loop per
// active play session.  Each loop re-reads its session from the store
// every iteration, times the session out after a period of
// inactivity, and otherwise produces a new order after sleeping a
// randomized interval.  Loops stop either through their session
// reaching a terminal status or through explicit cancellation of
// their handle; both are observed before and after every sleep.
package spawner

import (
	"context"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/iliyamo/pizza-rush/internal/game"
	"github.com/iliyamo/pizza-rush/internal/model"
)

// OrderMaker produces one order per call.  Satisfied by *game.Generator.
type OrderMaker interface {
	Generate(ctx context.Context) (model.Order, error)
}

// Config bounds the loop timing.  All three values come from a single
// configuration source.
type Config struct {
	IdleTimeout time.Duration // inactivity after which a session times out
	MinInterval time.Duration // lower bound of the randomized sleep
	MaxInterval time.Duration // upper bound of the randomized sleep
}

// Handle represents one running loop.  It is returned by Start and
// owned by whoever started the loop; there is no global registry.
type Handle struct {
	SessionID uint64
	cancel    context.CancelFunc
	done      chan struct{}
}

// Stop cancels the loop.  The loop observes the cancellation at its
// next suspension point, which is never further away than one sleep.
func (h *Handle) Stop() { h.cancel() }

// Done is closed once the loop has fully exited and deregistered.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Manager starts and tracks spawner loops.  Tracking exists only to
// make Start idempotent per session and to stop loops on shutdown;
// the loops themselves terminate through session state.
type Manager struct {
	sessions game.SessionStore
	maker    OrderMaker
	cfg      Config

	mu    sync.Mutex
	loops map[uint64]*Handle
}

// NewManager wires a Manager.  Zero config fields fall back to the
// documented defaults (30m idle timeout, 20-60s spawn interval).
func NewManager(sessions game.SessionStore, maker OrderMaker, cfg Config) *Manager {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 20 * time.Second
	}
	if cfg.MaxInterval < cfg.MinInterval {
		cfg.MaxInterval = cfg.MinInterval + 40*time.Second
	}
	return &Manager{
		sessions: sessions,
		maker:    maker,
		cfg:      cfg,
		loops:    map[uint64]*Handle{},
	}
}

// Start launches the loop for sessionID and returns its handle.  When
// a loop for this session is already running, the existing handle is
// returned instead of starting a second one.
func (m *Manager) Start(sessionID uint64) *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.loops[sessionID]; ok {
		return h
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{SessionID: sessionID, cancel: cancel, done: make(chan struct{})}
	m.loops[sessionID] = h
	go m.run(ctx, h)
	return h
}

// Stop cancels the loop for sessionID, if one is running.
func (m *Manager) Stop(sessionID uint64) {
	m.mu.Lock()
	h := m.loops[sessionID]
	m.mu.Unlock()
	if h != nil {
		h.Stop()
	}
}

// StopAll cancels every running loop and waits for them to exit.
// Used on server shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	handles := make([]*Handle, 0, len(m.loops))
	for _, h := range m.loops {
		handles = append(handles, h)
	}
	m.mu.Unlock()
	for _, h := range handles {
		h.Stop()
		<-h.Done()
	}
}

// Running reports whether a loop is currently registered for sessionID.
func (m *Manager) Running(sessionID uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.loops[sessionID]
	return ok
}

func (m *Manager) remove(sessionID uint64) {
	m.mu.Lock()
	delete(m.loops, sessionID)
	m.mu.Unlock()
}

// run is the loop body.  Termination is one-way: once it returns, the
// handle is deregistered and a brand-new session needs a brand-new
// loop.
func (m *Manager) run(ctx context.Context, h *Handle) {
	defer close(h.done)
	defer m.remove(h.SessionID)

	for {
		// Re-read session state every iteration; never trust a stale
		// in-memory copy.  A missing or non-active session ends the loop.
		sess, err := m.sessions.GetByID(ctx, h.SessionID)
		if err != nil || sess.Status != model.SessionActive {
			return
		}

		if idle := time.Since(sess.LastActivity); idle > m.cfg.IdleTimeout {
			now := time.Now().UTC()
			if err := m.sessions.End(ctx, h.SessionID, model.SessionTimeout, now); err != nil {
				log.Printf("spawner: timeout session %d failed: %v", h.SessionID, err)
			}
			return
		}

		if !m.sleep(ctx) {
			return
		}

		// One failed spawn must never terminate the session.
		if _, err := m.maker.Generate(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("spawner: session %d: spawn failed: %v", h.SessionID, err)
		}
	}
}

// sleep blocks for a duration uniformly chosen from the configured
// interval, returning false when the context is cancelled first.
func (m *Manager) sleep(ctx context.Context) bool {
	d := m.cfg.MinInterval
	if span := m.cfg.MaxInterval - m.cfg.MinInterval; span > 0 {
		d += rand.N(span)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
