// Package game implements the gameplay core: randomized order
// generation and the claim/deliver state machine shared by the HTTP
// handlers and the background spawner.  Persistence is consumed
// through narrow store interfaces so the logic can be exercised
// against in-memory fakes.
package game

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/pizza-rush/internal/model"
	"github.com/iliyamo/pizza-rush/internal/queue"
)

// ErrInvalidStatus is returned for order status transitions outside
// the permitted edges, or for unrecognized status values.  The order
// is left unchanged.
var ErrInvalidStatus = errors.New("invalid status")

// ErrGenerationFailed is returned when the item-list generation call
// errors or yields no usable content.  No order is persisted.
var ErrGenerationFailed = errors.New("order generation failed")

// OrderStore is the slice of the order repository the game core needs.
type OrderStore interface {
	Create(ctx context.Context, o *model.Order) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Order, error)
	SetClaimed(ctx context.Context, id, userID uint64) error
	SetDelivered(ctx context.Context, id uint64, at time.Time) error
	SetCancelled(ctx context.Context, id uint64) error
}

// SessionStore is the slice of the session repository the game core
// and the spawner need.
type SessionStore interface {
	Create(ctx context.Context, userID uint64) (model.Session, error)
	GetByID(ctx context.Context, id uint64) (model.Session, error)
	GetActiveByUser(ctx context.Context, userID uint64) (model.Session, error)
	End(ctx context.Context, id uint64, status model.SessionStatus, at time.Time) error
	TouchActivity(ctx context.Context, id uint64, at time.Time) error
}

// AddressStore reads delivery addresses from reference data.
type AddressStore interface {
	Random(ctx context.Context) (model.Address, error)
	GetByID(ctx context.Context, id uint64) (model.Address, error)
}

// WalletStore credits tips to a user's balance.
type WalletStore interface {
	Credit(ctx context.Context, userID uint64, cents int64) error
}

// Geocoder resolves a street address to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, address, town, state string) (float64, float64, error)
}

// ItemSource produces a food item list for a household size.
type ItemSource interface {
	ItemList(ctx context.Context, householdSize int) ([]string, error)
}

// EventPublisher pushes domain events onto the message broker.
// Publishing is best effort; callers log and ignore failures.
type EventPublisher interface {
	PublishOrderDelivered(ctx context.Context, ev queue.OrderDeliveredEvent) error
}
