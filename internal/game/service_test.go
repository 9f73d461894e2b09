package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/pizza-rush/internal/model"
	"github.com/iliyamo/pizza-rush/internal/repository"
)

func newTestService() (*Service, *fakeOrderStore, *fakeSessionStore, *fakeWallet, *fakePublisher) {
	orders := newFakeOrderStore()
	sessions := newFakeSessionStore()
	wallet := newFakeWallet()
	pub := &fakePublisher{}
	svc := NewService(orders, sessions, &fakeAddressStore{addrs: []model.Address{testAddr}}, wallet, pub)
	return svc, orders, sessions, wallet, pub
}

func queuedOrder(orders *fakeOrderStore, tipCents int64) uint64 {
	return orders.add(model.Order{
		Status:     model.OrderQueued,
		DatePlaced: time.Now().UTC(),
		AddressID:  testAddr.ID,
		Items:      []string{"1 large pepperoni"},
		TotalCents: 2400,
		TipCents:   tipCents,
	})
}

func TestEnsureActiveSessionIdempotent(t *testing.T) {
	svc, _, sessions, _, _ := newTestService()
	ctx := context.Background()

	first, created, err := svc.EnsureActiveSession(ctx, 7)
	if err != nil || !created {
		t.Fatalf("first ensure: session=%+v created=%v err=%v", first, created, err)
	}
	second, created, err := svc.EnsureActiveSession(ctx, 7)
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if created {
		t.Error("second ensure must reuse the existing session")
	}
	if second.ID != first.ID {
		t.Errorf("second ensure returned session %d, want %d", second.ID, first.ID)
	}
	if n := sessions.activeCount(7); n != 1 {
		t.Errorf("active sessions = %d, want 1", n)
	}
}

func TestSingleActiveSessionUnderConcurrentStarts(t *testing.T) {
	svc, _, sessions, _, _ := newTestService()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := svc.EnsureActiveSession(ctx, 42); err != nil {
				t.Errorf("ensure: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := sessions.activeCount(42); n != 1 {
		t.Errorf("active sessions after concurrent starts = %d, want 1", n)
	}
}

func TestClaimCreatesSessionAndClaims(t *testing.T) {
	svc, orders, sessions, _, _ := newTestService()
	ctx := context.Background()
	id := queuedOrder(orders, 250)

	claimed, skipped, sess, created, err := svc.ClaimOrders(ctx, 9, []uint64{id})
	if err != nil {
		t.Fatalf("ClaimOrders: %v", err)
	}
	if !created {
		t.Error("claim with no active session must create one")
	}
	if len(claimed) != 1 || len(skipped) != 0 {
		t.Fatalf("claimed=%v skipped=%v, want 1 claimed", claimed, skipped)
	}

	o, _ := orders.GetByID(ctx, id)
	if o.Status != model.OrderEnRoute {
		t.Errorf("order status = %q, want en_route", o.Status)
	}
	if o.UserID == nil || *o.UserID != 9 {
		t.Errorf("order user = %v, want 9", o.UserID)
	}

	got, err := sessions.GetByID(ctx, sess.ID)
	if err != nil {
		t.Fatalf("session lookup: %v", err)
	}
	if got.Status != model.SessionActive {
		t.Errorf("session status = %q, want active", got.Status)
	}
}

func TestClaimSkipsAlreadyClaimedOrders(t *testing.T) {
	svc, orders, _, _, _ := newTestService()
	ctx := context.Background()
	id := queuedOrder(orders, 100)

	if _, _, _, _, err := svc.ClaimOrders(ctx, 1, []uint64{id}); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	claimed, skipped, _, _, err := svc.ClaimOrders(ctx, 2, []uint64{id, 999})
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if len(claimed) != 0 {
		t.Errorf("claimed = %v, want none", claimed)
	}
	if len(skipped) != 2 {
		t.Errorf("skipped = %v, want both ids", skipped)
	}

	o, _ := orders.GetByID(ctx, id)
	if o.UserID == nil || *o.UserID != 1 {
		t.Errorf("order user = %v, want the first claimer", o.UserID)
	}
}

func TestClaimBumpsSessionActivity(t *testing.T) {
	svc, orders, sessions, _, _ := newTestService()
	ctx := context.Background()

	sess, _, err := svc.EnsureActiveSession(ctx, 3)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	// Age the session so the bump is observable.
	stale := time.Now().UTC().Add(-10 * time.Minute)
	sessions.mu.Lock()
	sessions.sessions[sess.ID].LastActivity = stale
	sessions.mu.Unlock()

	id := queuedOrder(orders, 100)
	if _, _, _, _, err := svc.ClaimOrders(ctx, 3, []uint64{id}); err != nil {
		t.Fatalf("claim: %v", err)
	}

	got, _ := sessions.GetByID(ctx, sess.ID)
	if !got.LastActivity.After(stale) {
		t.Error("claim must bump session last_activity")
	}
}

func TestDeliverCreditsTipAndPublishes(t *testing.T) {
	svc, orders, _, wallet, pub := newTestService()
	ctx := context.Background()
	id := queuedOrder(orders, 317)

	if _, _, _, _, err := svc.ClaimOrders(ctx, 5, []uint64{id}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	o, _, _, err := svc.UpdateOrderStatus(ctx, 5, id, model.OrderDelivered)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if o.Status != model.OrderDelivered {
		t.Errorf("status = %q, want delivered", o.Status)
	}
	if o.DateDelivered == nil {
		t.Error("delivered order must carry a delivery timestamp")
	}
	if got := wallet.balances[5]; got != 317 {
		t.Errorf("wallet balance = %d, want exactly the tip 317", got)
	}
	if len(pub.events) != 1 {
		t.Fatalf("published events = %d, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.OrderID != id || ev.UserID != 5 || ev.TipCents != 317 {
		t.Errorf("unexpected event payload: %+v", ev)
	}
	if ev.Street != testAddr.Street {
		t.Errorf("event street = %q, want %q", ev.Street, testAddr.Street)
	}
}

func TestEnRouteTransitionReportsCreatedSession(t *testing.T) {
	svc, orders, sessions, _, _ := newTestService()
	ctx := context.Background()

	first := queuedOrder(orders, 100)
	o, sess, created, err := svc.UpdateOrderStatus(ctx, 9, first, model.OrderEnRoute)
	if err != nil {
		t.Fatalf("en_route: %v", err)
	}
	if o.Status != model.OrderEnRoute {
		t.Errorf("status = %q, want en_route", o.Status)
	}
	if !created {
		t.Error("first en_route transition with no session must report a created session")
	}
	if sess.Status != model.SessionActive {
		t.Errorf("created session status = %q, want active", sess.Status)
	}
	active, err := sessions.GetActiveByUser(ctx, 9)
	if err != nil || active.ID != sess.ID {
		t.Fatalf("active session = %+v (err %v), want id %d", active, err, sess.ID)
	}

	second := queuedOrder(orders, 100)
	_, again, created, err := svc.UpdateOrderStatus(ctx, 9, second, model.OrderEnRoute)
	if err != nil {
		t.Fatalf("second en_route: %v", err)
	}
	if created {
		t.Error("second en_route transition must reuse the session")
	}
	if again.ID != sess.ID {
		t.Errorf("second transition reported session %d, want %d", again.ID, sess.ID)
	}
}

func TestDeliverSurvivesWalletFailure(t *testing.T) {
	svc, orders, _, wallet, pub := newTestService()
	ctx := context.Background()
	id := queuedOrder(orders, 250)

	if _, _, _, _, err := svc.ClaimOrders(ctx, 4, []uint64{id}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	wallet.err = errors.New("connection reset")

	o, _, _, err := svc.UpdateOrderStatus(ctx, 4, id, model.OrderDelivered)
	if err != nil {
		t.Fatalf("deliver must not fail on a credit error: %v", err)
	}
	if o.Status != model.OrderDelivered {
		t.Errorf("status = %q, want delivered", o.Status)
	}
	stored, _ := orders.GetByID(ctx, id)
	if stored.Status != model.OrderDelivered {
		t.Errorf("stored status = %q, want delivered", stored.Status)
	}
	// The event still goes out so the stats pipeline sees the delivery.
	if len(pub.events) != 1 {
		t.Errorf("published events = %d, want 1", len(pub.events))
	}
}

func TestUpdateOrderStatusRejectsBadTransitions(t *testing.T) {
	svc, orders, _, wallet, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name  string
		setup func() uint64
		next  model.OrderStatus
	}{
		{"unknown status value", func() uint64 { return queuedOrder(orders, 100) }, "ready"},
		{"queued to delivered", func() uint64 { return queuedOrder(orders, 100) }, model.OrderDelivered},
		{"delivered to queued", func() uint64 {
			id := queuedOrder(orders, 100)
			_, _, _, _, _ = svc.ClaimOrders(ctx, 8, []uint64{id})
			_, _, _, _ = svc.UpdateOrderStatus(ctx, 8, id, model.OrderDelivered)
			return id
		}, model.OrderQueued},
		{"cancelled to en_route", func() uint64 {
			id := queuedOrder(orders, 100)
			_, _, _, _ = svc.UpdateOrderStatus(ctx, 8, id, model.OrderCancelled)
			return id
		}, model.OrderEnRoute},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := tc.setup()
			before, _ := orders.GetByID(ctx, id)
			balBefore := wallet.balances[8]

			_, _, _, err := svc.UpdateOrderStatus(ctx, 8, id, tc.next)
			if !errors.Is(err, ErrInvalidStatus) {
				t.Fatalf("err = %v, want ErrInvalidStatus", err)
			}

			after, _ := orders.GetByID(ctx, id)
			if after.Status != before.Status {
				t.Errorf("order mutated on rejected transition: %q -> %q", before.Status, after.Status)
			}
			if wallet.balances[8] != balBefore {
				t.Error("wallet mutated on rejected transition")
			}
		})
	}
}

func TestUpdateOrderStatusUnknownOrder(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	_, _, _, err := svc.UpdateOrderStatus(context.Background(), 1, 12345, model.OrderCancelled)
	if !errors.Is(err, repository.ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}
}

func TestEndActiveSession(t *testing.T) {
	svc, _, sessions, _, _ := newTestService()
	ctx := context.Background()

	sess, _, err := svc.EnsureActiveSession(ctx, 11)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	ended, err := svc.EndActiveSession(ctx, 11)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if ended.ID != sess.ID || ended.Status != model.SessionEnded || ended.EndedAt == nil {
		t.Errorf("ended session = %+v", ended)
	}
	if _, err := svc.EndActiveSession(ctx, 11); !errors.Is(err, repository.ErrSessionNotFound) {
		t.Errorf("ending with no active session: err = %v, want ErrSessionNotFound", err)
	}
	if n := sessions.activeCount(11); n != 0 {
		t.Errorf("active sessions = %d, want 0", n)
	}
}
