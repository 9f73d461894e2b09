package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pizza-rush/internal/game"
	"github.com/iliyamo/pizza-rush/internal/model"
	"github.com/iliyamo/pizza-rush/internal/repository"
	"github.com/iliyamo/pizza-rush/internal/spawner"
)

// SessionHandler exposes the play-session lifecycle.  Starting a
// session also starts its order spawner loop; the handler owns the
// spawner manager and is the only component that starts or stops
// loops.
type SessionHandler struct {
	Svc     *game.Service
	Spawner *spawner.Manager
}

// NewSessionHandler constructs a SessionHandler.  Both dependencies
// must be non-nil.
func NewSessionHandler(svc *game.Service, sp *spawner.Manager) *SessionHandler {
	if svc == nil || sp == nil {
		panic("nil dependency passed to NewSessionHandler")
	}
	return &SessionHandler{Svc: svc, Spawner: sp}
}

type sessionResp struct {
	ID           uint64     `json:"id"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	LastActivity time.Time  `json:"last_activity"`
}

func toSessionResp(s model.Session) sessionResp {
	return sessionResp{
		ID:           s.ID,
		Status:       string(s.Status),
		StartedAt:    s.StartedAt,
		EndedAt:      s.EndedAt,
		LastActivity: s.LastActivity,
	}
}

// Start handles POST /v1/session/start.  It ensures the user has an
// active session, starting a fresh spawner loop when a new session was
// created.  Calling start with a session already active returns the
// existing session with 200 instead of 201.
func (h *SessionHandler) Start(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sess, created, err := h.Svc.EnsureActiveSession(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "start session failed"})
	}
	h.Spawner.Start(sess.ID)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, toSessionResp(sess))
}

// End handles POST /v1/session/end.  The spawner loop is stopped
// explicitly so shutdown does not wait for the next status poll.
func (h *SessionHandler) End(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sess, err := h.Svc.EndActiveSession(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no active session"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "end session failed"})
	}
	h.Spawner.Stop(sess.ID)
	return c.JSON(http.StatusOK, toSessionResp(sess))
}

// Current handles GET /v1/session and returns the caller's active
// session, if any.
func (h *SessionHandler) Current(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sess, err := h.Svc.Sessions.GetActiveByUser(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no active session"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toSessionResp(sess))
}
