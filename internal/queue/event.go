// Package queue defines message payloads exchanged over the message broker.
package queue

// OrderDeliveredEvent is published when an order transitions to
// delivered.  It carries enough information for downstream consumers
// to update lifetime stats and unlock achievements without querying
// the primary database.
type OrderDeliveredEvent struct {
	OrderID     uint64  `json:"order_id"`
	UserID      uint64  `json:"user_id"`
	TipCents    int64   `json:"tip_cents"`
	TotalCents  int64   `json:"total_cents"`
	Street      string  `json:"street"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	VIP         bool    `json:"vip"`
	PlacedAt    string  `json:"placed_at"`
	DeliveredAt string  `json:"delivered_at"`
}
