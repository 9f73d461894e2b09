package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/pizza-rush/internal/model"
)

// AddressRepo provides access to the addresses reference table.  Rows
// are imported once by cmd/importer and treated as immutable at
// runtime.
type AddressRepo struct{ DB *sql.DB }

// NewAddressRepo returns a new AddressRepo bound to the provided database.
func NewAddressRepo(db *sql.DB) *AddressRepo { return &AddressRepo{DB: db} }

// Random picks one address uniformly at random.  Returns
// ErrNoAddressAvailable when the table is empty.
func (r *AddressRepo) Random(ctx context.Context) (model.Address, error) {
	var a model.Address
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, house_number, street, town FROM addresses ORDER BY RAND() LIMIT 1").
		Scan(&a.ID, &a.HouseNumber, &a.Street, &a.Town)
	if err == sql.ErrNoRows {
		return model.Address{}, ErrNoAddressAvailable
	}
	if err != nil {
		return model.Address{}, err
	}
	return a, nil
}

// GetByID fetches one address.
func (r *AddressRepo) GetByID(ctx context.Context, id uint64) (model.Address, error) {
	var a model.Address
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, house_number, street, town FROM addresses WHERE id=? LIMIT 1", id).
		Scan(&a.ID, &a.HouseNumber, &a.Street, &a.Town)
	if err == sql.ErrNoRows {
		return model.Address{}, ErrNoAddressAvailable
	}
	if err != nil {
		return model.Address{}, err
	}
	return a, nil
}

// Count returns the number of imported addresses.
func (r *AddressRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM addresses").Scan(&n)
	return n, err
}

// BulkInsert loads a batch of addresses.  Used by the importer only.
func (r *AddressRepo) BulkInsert(ctx context.Context, addrs []model.Address) error {
	if len(addrs) == 0 {
		return nil
	}
	query := "INSERT INTO addresses (house_number, street, town) VALUES "
	args := make([]interface{}, 0, len(addrs)*3)
	for i, a := range addrs {
		if i > 0 {
			query += ","
		}
		query += "(?,?,?)"
		args = append(args, a.HouseNumber, a.Street, a.Town)
	}
	_, err := r.DB.ExecContext(ctx, query, args...)
	return err
}
