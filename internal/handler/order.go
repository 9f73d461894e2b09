package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pizza-rush/internal/game"
	"github.com/iliyamo/pizza-rush/internal/model"
	"github.com/iliyamo/pizza-rush/internal/repository"
	"github.com/iliyamo/pizza-rush/internal/spawner"
)

// OrderHandler serves the order queue: listing, claiming, status
// updates and the manual generation trigger.  Claiming implicitly
// starts a session, so the handler also holds the spawner manager.
type OrderHandler struct {
	Svc     *game.Service
	Orders  *repository.OrderRepo
	Gen     *game.Generator
	Spawner *spawner.Manager
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(svc *game.Service, orders *repository.OrderRepo, gen *game.Generator, sp *spawner.Manager) *OrderHandler {
	if svc == nil || orders == nil || gen == nil || sp == nil {
		panic("nil dependency passed to NewOrderHandler")
	}
	return &OrderHandler{Svc: svc, Orders: orders, Gen: gen, Spawner: sp}
}

type orderResp struct {
	ID            uint64     `json:"id"`
	UserID        *uint64    `json:"user_id,omitempty"`
	Status        string     `json:"status"`
	DatePlaced    time.Time  `json:"date_placed"`
	DateDelivered *time.Time `json:"date_delivered,omitempty"`
	AddressID     uint64     `json:"address_id"`
	Items         []string   `json:"items"`
	TotalCents    int64      `json:"total_cents"`
	TipCents      int64      `json:"tip_cents"`
	Lat           float64    `json:"lat"`
	Lon           float64    `json:"lon"`
	IsVIP         bool       `json:"is_vip"`
}

func toOrderResp(o model.Order) orderResp {
	return orderResp{
		ID:            o.ID,
		UserID:        o.UserID,
		Status:        string(o.Status),
		DatePlaced:    o.DatePlaced,
		DateDelivered: o.DateDelivered,
		AddressID:     o.AddressID,
		Items:         o.Items,
		TotalCents:    o.TotalCents,
		TipCents:      o.TipCents,
		Lat:           o.Lat,
		Lon:           o.Lon,
		IsVIP:         o.IsVIP,
	}
}

func toOrderResps(orders []model.Order) []orderResp {
	out := make([]orderResp, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResp(o))
	}
	return out
}

// listLimit clamps the optional ?limit query parameter.
func listLimit(c echo.Context, def, max int) int {
	raw := c.QueryParam("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// ListQueued handles GET /v1/orders and returns orders still waiting
// to be claimed, oldest first.
func (h *OrderHandler) ListQueued(c echo.Context) error {
	orders, err := h.Orders.ListQueued(c.Request().Context(), listLimit(c, 50, 200))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": toOrderResps(orders)})
}

// ListPast handles GET /v1/orders/past and returns the caller's
// delivered and cancelled orders, newest first.
func (h *OrderHandler) ListPast(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orders, err := h.Orders.ListPastByUser(c.Request().Context(), userID, listLimit(c, 50, 200))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": toOrderResps(orders)})
}

type claimReq struct {
	OrderIDs []uint64 `json:"order_ids"`
}

// Claim handles POST /v1/orders/claim.  Orders someone else got to
// first are reported under "skipped" rather than failing the whole
// batch.  Claiming without an active session starts one.
func (h *OrderHandler) Claim(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req claimReq
	if err := c.Bind(&req); err != nil || len(req.OrderIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order_ids is required"})
	}

	claimed, skipped, sess, created, err := h.Svc.ClaimOrders(c.Request().Context(), userID, req.OrderIDs)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "claim failed"})
	}
	if created {
		h.Spawner.Start(sess.ID)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"claimed":    claimed,
		"skipped":    skipped,
		"session_id": sess.ID,
	})
}

type statusReq struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /v1/orders/:id/status and moves an order
// along the queued -> en_route -> delivered path, or cancels it.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	var req statusReq
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status is required"})
	}

	order, sess, created, err := h.Svc.UpdateOrderStatus(c.Request().Context(), userID, orderID, model.OrderStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, game.ErrInvalidStatus):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status transition"})
		case errors.Is(err, repository.ErrOrderNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		case errors.Is(err, repository.ErrSessionNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no active session"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}
	// Going en_route without an active session starts one, and a fresh
	// session needs its order loop just like an explicit session start.
	if created {
		h.Spawner.Start(sess.ID)
	}
	return c.JSON(http.StatusOK, toOrderResp(order))
}

// Generate handles POST /v1/orders/generate, a manual trigger that
// produces one order outside the spawner's schedule.  Useful for
// testing a deployment without waiting on the loop.
func (h *OrderHandler) Generate(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	order, err := h.Gen.Generate(c.Request().Context())
	if err != nil {
		if errors.Is(err, repository.ErrNoAddressAvailable) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "no addresses loaded"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "generation failed"})
	}
	return c.JSON(http.StatusCreated, toOrderResp(order))
}
