package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/pizza-rush/internal/model"
)

// ProfileRepo provides access to the profiles table, which holds the
// per-user wallet.
type ProfileRepo struct{ DB *sql.DB }

// NewProfileRepo returns a new ProfileRepo bound to the provided database.
func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{DB: db} }

// Ensure creates an empty wallet row for the user if one does not
// exist yet.  Safe to call repeatedly.
func (r *ProfileRepo) Ensure(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO profiles (user_id, bank_cents) VALUES (?, 0)", userID)
	return err
}

// GetByUser fetches the user's wallet.  A missing row reads as a zero
// balance rather than an error.
func (r *ProfileRepo) GetByUser(ctx context.Context, userID uint64) (model.Profile, error) {
	var p model.Profile
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, bank_cents, updated_at FROM profiles WHERE user_id=? LIMIT 1",
		userID).Scan(&p.UserID, &p.BankCents, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Profile{UserID: userID}, nil
	}
	if err != nil {
		return model.Profile{}, err
	}
	return p, nil
}

// Credit adds cents to the user's balance with a single atomic
// increment, so concurrent deliveries by the same user cannot lose an
// update.
func (r *ProfileRepo) Credit(ctx context.Context, userID uint64, cents int64) error {
	if err := r.Ensure(ctx, userID); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"UPDATE profiles SET bank_cents = bank_cents + ? WHERE user_id=?", cents, userID)
	return err
}
