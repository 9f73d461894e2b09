package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pizza-rush/internal/repository"
)

// WalletHandler serves the player's bank balance plus the delivery
// stats and achievements the consumer accumulates.
type WalletHandler struct {
	Profiles *repository.ProfileRepo
	Stats    *repository.StatsRepo
}

func NewWalletHandler(p *repository.ProfileRepo, s *repository.StatsRepo) *WalletHandler {
	if p == nil || s == nil {
		panic("nil dependency passed to NewWalletHandler")
	}
	return &WalletHandler{Profiles: p, Stats: s}
}

// Balance handles GET /v1/wallet.  A player who has never delivered
// anything gets a zero balance, not a 404.
func (h *WalletHandler) Balance(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	p, err := h.Profiles.GetByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bank_cents": p.BankCents})
}

// DeliveryStats handles GET /v1/stats.
func (h *WalletHandler) DeliveryStats(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	s, err := h.Stats.GetByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"total_deliveries":  s.TotalDeliveries,
		"total_tips_cents":  s.TotalTipsCents,
		"total_distance_km": s.TotalDistanceKM,
		"unique_streets":    len(s.UniqueStreets),
	})
}

type achievementResp struct {
	Code       string    `json:"code"`
	Title      string    `json:"title"`
	Descr      string    `json:"description"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// Achievements handles GET /v1/achievements.
func (h *WalletHandler) Achievements(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.Stats.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]achievementResp, 0, len(list))
	for _, a := range list {
		out = append(out, achievementResp{Code: a.Code, Title: a.Title, Descr: a.Descr, UnlockedAt: a.UnlockedAt})
	}
	return c.JSON(http.StatusOK, echo.Map{"achievements": out})
}
