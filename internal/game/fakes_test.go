package game

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/pizza-rush/internal/model"
	"github.com/iliyamo/pizza-rush/internal/queue"
	"github.com/iliyamo/pizza-rush/internal/repository"
)

// In-memory store fakes shared by the generator and service tests.

type fakeAddressStore struct {
	addrs []model.Address
}

func (f *fakeAddressStore) Random(context.Context) (model.Address, error) {
	if len(f.addrs) == 0 {
		return model.Address{}, repository.ErrNoAddressAvailable
	}
	return f.addrs[0], nil
}

func (f *fakeAddressStore) GetByID(_ context.Context, id uint64) (model.Address, error) {
	for _, a := range f.addrs {
		if a.ID == id {
			return a, nil
		}
	}
	return model.Address{}, repository.ErrNoAddressAvailable
}

type fakeOrderStore struct {
	mu     sync.Mutex
	nextID uint64
	orders map[uint64]*model.Order

	createErr error
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: map[uint64]*model.Order{}}
}

func (f *fakeOrderStore) add(o model.Order) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	o.ID = f.nextID
	f.orders[o.ID] = &o
	return o.ID
}

func (f *fakeOrderStore) Create(_ context.Context, o *model.Order) (uint64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	return f.add(*o), nil
}

func (f *fakeOrderStore) GetByID(_ context.Context, id uint64) (model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return model.Order{}, repository.ErrOrderNotFound
	}
	return *o, nil
}

func (f *fakeOrderStore) SetClaimed(_ context.Context, id, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok || o.Status != model.OrderQueued {
		return repository.ErrOrderNotFound
	}
	u := userID
	o.UserID = &u
	o.Status = model.OrderEnRoute
	return nil
}

func (f *fakeOrderStore) SetDelivered(_ context.Context, id uint64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok || o.Status != model.OrderEnRoute {
		return repository.ErrOrderNotFound
	}
	t := at
	o.Status = model.OrderDelivered
	o.DateDelivered = &t
	return nil
}

func (f *fakeOrderStore) SetCancelled(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok || (o.Status != model.OrderQueued && o.Status != model.OrderEnRoute) {
		return repository.ErrOrderNotFound
	}
	o.Status = model.OrderCancelled
	return nil
}

func (f *fakeOrderStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

type fakeSessionStore struct {
	mu       sync.Mutex
	nextID   uint64
	sessions map[uint64]*model.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[uint64]*model.Session{}}
}

func (f *fakeSessionStore) Create(_ context.Context, userID uint64) (model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	for _, s := range f.sessions {
		if s.UserID == userID && s.Status == model.SessionActive {
			s.Status = model.SessionEnded
			t := now
			s.EndedAt = &t
		}
	}
	f.nextID++
	s := &model.Session{
		ID:           f.nextID,
		UserID:       userID,
		Status:       model.SessionActive,
		StartedAt:    now,
		LastActivity: now,
	}
	f.sessions[s.ID] = s
	return *s, nil
}

func (f *fakeSessionStore) GetByID(_ context.Context, id uint64) (model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return model.Session{}, repository.ErrSessionNotFound
	}
	return *s, nil
}

func (f *fakeSessionStore) GetActiveByUser(_ context.Context, userID uint64) (model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.UserID == userID && s.Status == model.SessionActive {
			return *s, nil
		}
	}
	return model.Session{}, repository.ErrSessionNotFound
}

func (f *fakeSessionStore) End(_ context.Context, id uint64, status model.SessionStatus, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.Status != model.SessionActive {
		return nil // idempotent, same as the SQL status guard
	}
	t := at
	s.Status = status
	s.EndedAt = &t
	return nil
}

func (f *fakeSessionStore) TouchActivity(_ context.Context, id uint64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok && s.Status == model.SessionActive {
		s.LastActivity = at
	}
	return nil
}

func (f *fakeSessionStore) activeCount(userID uint64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sessions {
		if s.UserID == userID && s.Status == model.SessionActive {
			n++
		}
	}
	return n
}

type fakeWallet struct {
	mu       sync.Mutex
	balances map[uint64]int64
	err      error
}

func newFakeWallet() *fakeWallet { return &fakeWallet{balances: map[uint64]int64{}} }

func (f *fakeWallet) Credit(_ context.Context, userID uint64, cents int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.balances[userID] += cents
	return nil
}

type fakeGeo struct {
	lat, lon float64
	err      error
}

func (f *fakeGeo) Resolve(context.Context, string, string, string) (float64, float64, error) {
	return f.lat, f.lon, f.err
}

type fakeItems struct {
	items []string
	err   error
}

func (f *fakeItems) ItemList(context.Context, int) ([]string, error) {
	return f.items, f.err
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.OrderDeliveredEvent
}

func (f *fakePublisher) PublishOrderDelivered(_ context.Context, ev queue.OrderDeliveredEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}
