package model

import "testing"

func TestOrderStatusValid(t *testing.T) {
	for _, s := range []OrderStatus{OrderQueued, OrderEnRoute, OrderDelivered, OrderCancelled} {
		if !s.Valid() {
			t.Errorf("%q should be a valid status", s)
		}
	}
	for _, s := range []OrderStatus{"", "ready", "QUEUED", "done"} {
		if s.Valid() {
			t.Errorf("%q should not be a valid status", s)
		}
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	all := []OrderStatus{OrderQueued, OrderEnRoute, OrderDelivered, OrderCancelled}
	allowed := map[OrderStatus][]OrderStatus{
		OrderQueued:  {OrderEnRoute, OrderCancelled},
		OrderEnRoute: {OrderDelivered, OrderCancelled},
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, want)
			}
		}
	}

	// non-adjacent jumps must be rejected
	if OrderDelivered.CanTransitionTo(OrderQueued) {
		t.Error("delivered -> queued must not be permitted")
	}
	if OrderQueued.CanTransitionTo(OrderDelivered) {
		t.Error("queued -> delivered must not be permitted")
	}
}
