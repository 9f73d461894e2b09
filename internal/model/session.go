package model

import "time"

// SessionStatus enumerates the lifecycle states of a play session.
type SessionStatus string

const (
	SessionActive  SessionStatus = "active"
	SessionEnded   SessionStatus = "ended"
	SessionTimeout SessionStatus = "timeout"
)

// Session represents a row in the `sessions` table.  A session is the
// bounded period during which orders spawn for a player.  At most one
// session per user may be active at a time; the repository enforces
// this when creating a new one.  LastActivity is bumped whenever the
// player claims an order and drives the inactivity timeout.
type Session struct {
	ID           uint64
	UserID       uint64
	Status       SessionStatus
	StartedAt    time.Time
	EndedAt      *time.Time
	LastActivity time.Time
}
