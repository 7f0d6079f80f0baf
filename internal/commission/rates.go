// Package commission computes tiered referral commissions for orders
// and writes them to the ledger exactly once per order.
package commission

import "github.com/shopspring/decimal"

// Commission rates by referral level. These are the locked program
// terms; changing them requires a migration of already-published
// marketing material, so they are compiled in rather than configured.
var levelRates = map[int]decimal.Decimal{
	1: decimal.New(20, -2), // 20%
	2: decimal.New(5, -2),  // 5%
	3: decimal.New(1, -2),  // 1%
}

// Amount computes the commission owed on an order total at the given
// level, rounded half-up to 2 decimal places. Unknown levels yield
// zero.
func Amount(total decimal.Decimal, level int) decimal.Decimal {
	rate, ok := levelRates[level]
	if !ok {
		return decimal.Zero
	}
	return total.Mul(rate).Round(2)
}
