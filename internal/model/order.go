package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order mirrors the `orders` table. Orders are created once at checkout
// by the storefront and are immutable for commission purposes; this
// service never writes to the table.
type Order struct {
	ID        uint64          // orders.id
	BuyerID   uint64          // orders.buyer_id
	Total     decimal.Decimal // orders.total, currency units with 2 decimal places
	CreatedAt time.Time       // orders.created_at
}
