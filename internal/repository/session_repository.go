package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/pizza-rush/internal/model"
)

// SessionRepo provides data access to the sessions table.  It owns the
// single-active-session-per-user invariant: Create ends any previous
// active session for the user inside the same transaction before
// inserting the new row.
type SessionRepo struct{ DB *sql.DB }

// NewSessionRepo returns a new SessionRepo bound to the provided database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

const sessionColumns = "id, user_id, status, started_at, ended_at, last_activity"

// Create starts a fresh active session for the user.  Any session that
// is still active for this user is marked ended first, so two
// concurrent starts can never leave two active rows behind.
func (r *SessionRepo) Create(ctx context.Context, userID uint64) (model.Session, error) {
	now := time.Now().UTC()

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Session{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		"UPDATE sessions SET status=?, ended_at=? WHERE user_id=? AND status=?",
		string(model.SessionEnded), now, userID, string(model.SessionActive)); err != nil {
		return model.Session{}, err
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO sessions (user_id, status, started_at, last_activity) VALUES (?,?,?,?)",
		userID, string(model.SessionActive), now, now)
	if err != nil {
		return model.Session{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Session{}, err
	}
	if err = tx.Commit(); err != nil {
		return model.Session{}, err
	}
	committed = true

	return model.Session{
		ID:           uint64(id),
		UserID:       userID,
		Status:       model.SessionActive,
		StartedAt:    now,
		LastActivity: now,
	}, nil
}

// GetByID fetches one session.  Returns ErrSessionNotFound when no row
// exists.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (model.Session, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE id=? LIMIT 1", id)
	return scanSession(row)
}

// GetActiveByUser fetches the user's active session, if any.
func (r *SessionRepo) GetActiveByUser(ctx context.Context, userID uint64) (model.Session, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE user_id=? AND status=? LIMIT 1",
		userID, string(model.SessionActive))
	return scanSession(row)
}

// End moves an active session into a terminal status (ended or
// timeout) and stamps ended_at.  Ending a session that is already in a
// terminal state is a no-op: the status guard makes the racing writers
// (spawner timeout vs. explicit end) idempotent.
func (r *SessionRepo) End(ctx context.Context, id uint64, status model.SessionStatus, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET status=?, ended_at=? WHERE id=? AND status=?",
		string(status), at.UTC(), id, string(model.SessionActive))
	return err
}

// TouchActivity bumps last_activity on an active session.
func (r *SessionRepo) TouchActivity(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET last_activity=? WHERE id=? AND status=?",
		at.UTC(), id, string(model.SessionActive))
	return err
}

func scanSession(row rowScanner) (model.Session, error) {
	var (
		s      model.Session
		status string
		ended  sql.NullTime
	)
	err := row.Scan(&s.ID, &s.UserID, &status, &s.StartedAt, &ended, &s.LastActivity)
	if err == sql.ErrNoRows {
		return model.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return model.Session{}, err
	}
	s.Status = model.SessionStatus(status)
	if ended.Valid {
		t := ended.Time
		s.EndedAt = &t
	}
	return s, nil
}
