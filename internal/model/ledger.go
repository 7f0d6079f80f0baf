package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger entry kinds. Only referral bonuses are produced by this
// service; the kind column exists so future credit types share the
// same table.
const (
	KindReferralBonus = "referral_bonus"
)

// Ledger entry statuses. Entries are created as pending and move to
// processed and paid by the payout tooling. Rows are append-only apart
// from status transitions.
const (
	StatusPending   = "pending"
	StatusProcessed = "processed"
	StatusPaid      = "paid"
)

// LedgerEntry mirrors the `commission_ledger` table. Exactly one row
// may exist per (source_order_id, referrer_id, level) triple; the
// table enforces this with a unique key and the repository checks it
// again inside the insert transaction.
//
// Fields:
//  ID            – primary key identifier.
//  ReferrerID    – the beneficiary credited for the order.
//  Kind          – credit type, always referral_bonus here.
//  Amount        – credited amount, rounded to 2 decimal places.
//  SourceOrderID – the order that produced the credit.
//  SourceUserID  – the buyer who placed the order.
//  Level         – referral level 1..3 between buyer and beneficiary.
//  Status        – pending, processed or paid.
//  CreatedAt     – timestamp of creation.
type LedgerEntry struct {
	ID            uint64          // commission_ledger.id
	ReferrerID    uint64          // commission_ledger.referrer_id
	Kind          string          // commission_ledger.kind
	Amount        decimal.Decimal // commission_ledger.amount
	SourceOrderID uint64          // commission_ledger.source_order_id
	SourceUserID  uint64          // commission_ledger.source_user_id
	Level         int             // commission_ledger.level
	Status        string          // commission_ledger.status
	CreatedAt     time.Time       // commission_ledger.created_at
}
