package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/iliyamo/pizza-rush/internal/model"
)

// OrderRepo provides data access to the orders table.  All timestamps
// are stored and compared in UTC.  Items are persisted as a JSON array
// in a TEXT column.
type OrderRepo struct{ DB *sql.DB }

// NewOrderRepo returns a new OrderRepo bound to the provided database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{DB: db} }

const orderColumns = "id, user_id, status, date_placed, date_delivered, address_id, items, total_cents, tip_cents, lat, lon, is_vip"

// Create inserts a new order and returns its id.  Callers are expected
// to pass status=queued and a nil user for freshly spawned orders.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) (uint64, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO orders (user_id, status, date_placed, address_id, items, total_cents, tip_cents, lat, lon, is_vip)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		o.UserID, string(o.Status), o.DatePlaced.UTC(), o.AddressID, string(items),
		o.TotalCents, o.TipCents, o.Lat, o.Lon, o.IsVIP)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches one order.  Returns ErrOrderNotFound when no row exists.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (model.Order, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id=? LIMIT 1", id)
	return scanOrder(row)
}

// SetClaimed moves a queued order to en_route and attaches the user.
// The status guard in the WHERE clause makes concurrent claims settle
// on a single winner; the loser sees ErrOrderNotFound.
func (r *OrderRepo) SetClaimed(ctx context.Context, id, userID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE orders SET user_id=?, status=? WHERE id=? AND status=?",
		userID, string(model.OrderEnRoute), id, string(model.OrderQueued))
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetDelivered records delivery of an en_route order.
func (r *OrderRepo) SetDelivered(ctx context.Context, id uint64, at time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE orders SET status=?, date_delivered=? WHERE id=? AND status=?",
		string(model.OrderDelivered), at.UTC(), id, string(model.OrderEnRoute))
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetCancelled cancels a queued or en_route order.
func (r *OrderRepo) SetCancelled(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE orders SET status=? WHERE id=? AND status IN (?,?)",
		string(model.OrderCancelled), id, string(model.OrderQueued), string(model.OrderEnRoute))
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ListQueued returns unclaimed orders, oldest first.
func (r *OrderRepo) ListQueued(ctx context.Context, limit int) ([]model.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE status=? ORDER BY date_placed ASC LIMIT ?",
		string(model.OrderQueued), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

// ListPastByUser returns a user's delivered and cancelled orders,
// newest first.
func (r *OrderRepo) ListPastByUser(ctx context.Context, userID uint64, limit int) ([]model.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id=? AND status IN (?,?) ORDER BY date_placed DESC LIMIT ?",
		userID, string(model.OrderDelivered), string(model.OrderCancelled), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

type rowScanner interface{ Scan(dest ...any) error }

func scanOrder(row rowScanner) (model.Order, error) {
	var (
		o         model.Order
		userID    sql.NullInt64
		status    string
		delivered sql.NullTime
		items     string
	)
	err := row.Scan(&o.ID, &userID, &status, &o.DatePlaced, &delivered, &o.AddressID,
		&items, &o.TotalCents, &o.TipCents, &o.Lat, &o.Lon, &o.IsVIP)
	if err == sql.ErrNoRows {
		return model.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	o.Status = model.OrderStatus(status)
	if userID.Valid {
		u := uint64(userID.Int64)
		o.UserID = &u
	}
	if delivered.Valid {
		t := delivered.Time
		o.DateDelivered = &t
	}
	if items != "" {
		if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
			return model.Order{}, err
		}
	}
	return o, nil
}

func collectOrders(rows *sql.Rows) ([]model.Order, error) {
	var out []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrOrderNotFound
	}
	return nil
}
