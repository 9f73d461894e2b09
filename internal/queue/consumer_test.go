package queue

import (
	"math"
	"testing"
	"time"

	"github.com/iliyamo/pizza-rush/internal/model"
)

func deliveredEvent(userID uint64) OrderDeliveredEvent {
	placed := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	return OrderDeliveredEvent{
		OrderID:     1,
		UserID:      userID,
		TipCents:    250,
		TotalCents:  2400,
		Street:      "Boulevard Ave",
		Lat:         40.86,
		Lon:         -74.07,
		PlacedAt:    placed.Format(time.RFC3339),
		DeliveredAt: placed.Add(12 * time.Minute).Format(time.RFC3339),
	}
}

func TestUpdateStats(t *testing.T) {
	ev := deliveredEvent(5)
	s := UpdateStats(model.DeliveryStats{}, ev)

	if s.UserID != 5 || s.TotalDeliveries != 1 || s.TotalTipsCents != 250 {
		t.Errorf("stats = %+v", s)
	}
	wantKM := math.Sqrt(math.Pow(pizzeriaLat-ev.Lat, 2)+math.Pow(pizzeriaLon-ev.Lon, 2)) * kmPerDegree
	if math.Abs(s.TotalDistanceKM-wantKM) > 1e-9 {
		t.Errorf("distance = %v, want %v", s.TotalDistanceKM, wantKM)
	}
	if len(s.UniqueStreets) != 1 || s.UniqueStreets[0] != "Boulevard Ave" {
		t.Errorf("streets = %v", s.UniqueStreets)
	}

	// A repeat delivery on the same street must not duplicate it.
	s = UpdateStats(s, ev)
	if s.TotalDeliveries != 2 || len(s.UniqueStreets) != 1 {
		t.Errorf("after repeat: deliveries=%d streets=%v", s.TotalDeliveries, s.UniqueStreets)
	}
}

func TestUpdateStatsSkipsUnresolvedCoords(t *testing.T) {
	ev := deliveredEvent(5)
	ev.Lat, ev.Lon = 0, 0
	s := UpdateStats(model.DeliveryStats{}, ev)
	if s.TotalDistanceKM != 0 {
		t.Errorf("distance = %v, want 0 for unresolved coordinates", s.TotalDistanceKM)
	}
}

func TestEarnedAchievements(t *testing.T) {
	ev := deliveredEvent(5)

	first := UpdateStats(model.DeliveryStats{}, ev)
	got := EarnedAchievements(first, ev, nil)
	if len(got) != 1 || got[0].Code != "first_slice" {
		t.Errorf("first delivery achievements = %+v, want first_slice", got)
	}

	// Already unlocked codes must not fire again.
	if got := EarnedAchievements(first, ev, []string{"first_slice"}); len(got) != 0 {
		t.Errorf("repeat achievements = %+v, want none", got)
	}

	// 100th delivery unlocks pizza_tycoon.
	tycoon := model.DeliveryStats{UserID: 5, TotalDeliveries: 100}
	got = EarnedAchievements(tycoon, ev, []string{"first_slice"})
	if len(got) != 1 || got[0].Code != "pizza_tycoon" {
		t.Errorf("100th delivery achievements = %+v, want pizza_tycoon", got)
	}

	// A fast delivery unlocks speed_demon.
	fast := ev
	fast.DeliveredAt = time.Date(2025, 6, 1, 18, 4, 0, 0, time.UTC).Format(time.RFC3339)
	got = EarnedAchievements(model.DeliveryStats{TotalDeliveries: 2}, fast, nil)
	if len(got) != 1 || got[0].Code != "speed_demon" {
		t.Errorf("fast delivery achievements = %+v, want speed_demon", got)
	}
}
