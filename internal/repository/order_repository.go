package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/refstore/referral-engine/internal/model"
)

// OrderRepo provides read access to the `orders` table. Orders are
// written by the checkout subsystem and are immutable here.
type OrderRepo struct{ DB *sql.DB }

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{DB: db} }

// GetByID fetches an order by id. Returns ErrOrderNotFound when no row
// exists.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (model.Order, error) {
	var o model.Order
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, buyer_id, total, created_at FROM orders WHERE id = ? LIMIT 1",
		id).Scan(&o.ID, &o.BuyerID, &o.Total, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, ErrOrderNotFound
	}
	return o, err
}
