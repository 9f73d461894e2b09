package model

import "time"

// DeliveryStats aggregates a player's lifetime delivery record in the
// `delivery_stats` table.  It is maintained by the background consumer
// of order.delivered events, never by request handlers.
type DeliveryStats struct {
	UserID          uint64
	TotalDeliveries uint64
	TotalTipsCents  int64
	TotalDistanceKM float64
	UniqueStreets   []string
	UpdatedAt       time.Time
}

// Achievement is an unlocked badge in the `achievements` table.
type Achievement struct {
	ID         uint64
	UserID     uint64
	Code       string
	Title      string
	Descr      string
	UnlockedAt time.Time
}
