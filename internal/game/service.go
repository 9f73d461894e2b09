package game

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/pizza-rush/internal/model"
	"github.com/iliyamo/pizza-rush/internal/queue"
	"github.com/iliyamo/pizza-rush/internal/repository"
)

// Service implements the foreground gameplay operations invoked by
// request handlers: session lifecycle and order claim/status
// transitions.  It never starts or stops spawner loops itself; it
// reports when a fresh session was created so the caller can.
type Service struct {
	Orders    OrderStore
	Sessions  SessionStore
	Addresses AddressStore
	Wallet    WalletStore
	Publisher EventPublisher // optional; nil disables event publishing
}

// NewService wires a Service from its stores.
func NewService(orders OrderStore, sessions SessionStore, addresses AddressStore, wallet WalletStore, pub EventPublisher) *Service {
	return &Service{Orders: orders, Sessions: sessions, Addresses: addresses, Wallet: wallet, Publisher: pub}
}

// EnsureActiveSession returns the user's active session, creating one
// when none exists.  Creation ends any stale active session for the
// user first, so the single-active invariant holds.  The second return
// value reports whether a new session was created; only then should
// the caller start a spawner loop for it.
func (s *Service) EnsureActiveSession(ctx context.Context, userID uint64) (model.Session, bool, error) {
	sess, err := s.Sessions.GetActiveByUser(ctx, userID)
	if err == nil {
		return sess, false, nil
	}
	if !isNotFound(err) {
		return model.Session{}, false, err
	}
	sess, err = s.Sessions.Create(ctx, userID)
	if err != nil {
		return model.Session{}, false, err
	}
	return sess, true, nil
}

// EndActiveSession explicitly ends the user's active session.  Returns
// the session that was ended so the caller can stop its spawner loop.
func (s *Service) EndActiveSession(ctx context.Context, userID uint64) (model.Session, error) {
	sess, err := s.Sessions.GetActiveByUser(ctx, userID)
	if err != nil {
		return model.Session{}, err
	}
	now := time.Now().UTC()
	if err := s.Sessions.End(ctx, sess.ID, model.SessionEnded, now); err != nil {
		return model.Session{}, err
	}
	sess.Status = model.SessionEnded
	sess.EndedAt = &now
	return sess, nil
}

// ClaimOrders attaches the user to each queued order in ids, moving
// them to en_route.  A session is lazily created when the user has
// none active, and its last_activity is bumped.  Orders that are not
// claimable (unknown id or already claimed) are skipped and reported
// back; claiming is not all-or-nothing.
func (s *Service) ClaimOrders(ctx context.Context, userID uint64, ids []uint64) (claimed []uint64, skipped []uint64, sess model.Session, created bool, err error) {
	sess, created, err = s.EnsureActiveSession(ctx, userID)
	if err != nil {
		return nil, nil, model.Session{}, false, err
	}

	for _, id := range ids {
		if cerr := s.Orders.SetClaimed(ctx, id, userID); cerr != nil {
			if isNotFound(cerr) {
				skipped = append(skipped, id)
				continue
			}
			return claimed, skipped, sess, created, cerr
		}
		claimed = append(claimed, id)
	}

	if len(claimed) > 0 {
		if terr := s.Sessions.TouchActivity(ctx, sess.ID, time.Now().UTC()); terr != nil {
			log.Printf("game: bump activity for session %d failed: %v", sess.ID, terr)
		}
	}
	return claimed, skipped, sess, created, nil
}

// UpdateOrderStatus applies one transition of the order state machine.
// Unrecognized statuses and non-adjacent jumps fail with
// ErrInvalidStatus and leave the order untouched.  A transition to
// en_route claims the order for the acting user (same semantics as
// ClaimOrders with one id), so like ClaimOrders it reports the user's
// session and whether it had to be created; callers that own a spawner
// must start a loop for a created session.  A transition to delivered
// stamps the delivery time and credits the tip to the claiming user's
// wallet.
func (s *Service) UpdateOrderStatus(ctx context.Context, actingUser, orderID uint64, next model.OrderStatus) (model.Order, model.Session, bool, error) {
	var (
		sess    model.Session
		created bool
	)
	if !next.Valid() {
		return model.Order{}, sess, false, ErrInvalidStatus
	}
	order, err := s.Orders.GetByID(ctx, orderID)
	if err != nil {
		return model.Order{}, sess, false, err
	}
	if !order.Status.CanTransitionTo(next) {
		return model.Order{}, sess, false, ErrInvalidStatus
	}

	switch next {
	case model.OrderEnRoute:
		if _, _, sess, created, err = s.ClaimOrders(ctx, actingUser, []uint64{orderID}); err != nil {
			return model.Order{}, model.Session{}, false, err
		}

	case model.OrderDelivered:
		now := time.Now().UTC()
		if err := s.Orders.SetDelivered(ctx, orderID, now); err != nil {
			return model.Order{}, sess, false, err
		}
		if order.UserID != nil {
			// The order is delivered at this point; a credit failure
			// must not surface an error that contradicts the stored
			// state, so it is logged instead.
			if err := s.Wallet.Credit(ctx, *order.UserID, order.TipCents); err != nil {
				log.Printf("game: credit tip %d to user %d for order %d failed: %v",
					order.TipCents, *order.UserID, order.ID, err)
			}
			s.publishDelivered(ctx, order, now)
		}

	case model.OrderCancelled:
		if err := s.Orders.SetCancelled(ctx, orderID); err != nil {
			return model.Order{}, sess, false, err
		}
	}

	final, err := s.Orders.GetByID(ctx, orderID)
	return final, sess, created, err
}

// publishDelivered emits the order.delivered event.  Failures are
// logged and ignored; stats are a best-effort side channel.
func (s *Service) publishDelivered(ctx context.Context, order model.Order, at time.Time) {
	if s.Publisher == nil {
		return
	}
	street := ""
	if addr, err := s.Addresses.GetByID(ctx, order.AddressID); err == nil {
		street = addr.Street
	}
	ev := queue.OrderDeliveredEvent{
		OrderID:     order.ID,
		UserID:      *order.UserID,
		TipCents:    order.TipCents,
		TotalCents:  order.TotalCents,
		Street:      street,
		Lat:         order.Lat,
		Lon:         order.Lon,
		VIP:         order.IsVIP,
		PlacedAt:    order.DatePlaced.UTC().Format(time.RFC3339),
		DeliveredAt: at.UTC().Format(time.RFC3339),
	}
	if err := s.Publisher.PublishOrderDelivered(ctx, ev); err != nil {
		log.Printf("game: publish order.delivered for order %d failed: %v", order.ID, err)
	}
}

// isNotFound reports whether err is one of the repository's
// missing-record sentinels.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrOrderNotFound) ||
		errors.Is(err, repository.ErrSessionNotFound) ||
		errors.Is(err, repository.ErrNoAddressAvailable)
}
