package model

import "time"

// OrderStatus enumerates the lifecycle states of a delivery order.
// Orders start in the queue, move to en_route when a player claims
// them, and finish as either delivered or cancelled.
type OrderStatus string

const (
	OrderQueued    OrderStatus = "queued"
	OrderEnRoute   OrderStatus = "en_route"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is one of the recognized order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderQueued, OrderEnRoute, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status graph permits moving
// from s to next. Permitted edges:
//
//	queued   -> en_route | cancelled
//	en_route -> delivered | cancelled
//
// delivered and cancelled are terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderQueued:
		return next == OrderEnRoute || next == OrderCancelled
	case OrderEnRoute:
		return next == OrderDelivered || next == OrderCancelled
	}
	return false
}

// Order represents a row in the `orders` table.  An order is created
// unclaimed (UserID nil, status queued) by the spawner or the manual
// generation endpoint.  Monetary amounts are stored in cents.  Lat/Lon
// default to 0 when geocoding was unavailable for the address.
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – player who claimed the order (nil while queued).
//  Status        – current lifecycle status.
//  DatePlaced    – when the order was created.
//  DateDelivered – when the order was delivered (nil otherwise).
//  AddressID     – reference into the addresses table.
//  Items         – generated food item lines (stored as JSON).
//  TotalCents    – total order cost in cents.
//  TipCents      – tip in cents, credited on delivery.
//  Lat, Lon      – resolved coordinates, 0 meaning "unresolved".
//  IsVIP         – VIP orders carry a tripled tip.
type Order struct {
	ID            uint64
	UserID        *uint64
	Status        OrderStatus
	DatePlaced    time.Time
	DateDelivered *time.Time
	AddressID     uint64
	Items         []string
	TotalCents    int64
	TipCents      int64
	Lat           float64
	Lon           float64
	IsVIP         bool
}
