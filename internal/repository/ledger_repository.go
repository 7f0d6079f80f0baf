package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/refstore/referral-engine/internal/model"
)

// LedgerRepo persists commission ledger entries. The table carries a
// unique key on (source_order_id, referrer_id, level) so re-running a
// distribution can never double-credit a referrer.
type LedgerRepo struct{ DB *sql.DB }

// NewLedgerRepo returns a new LedgerRepo bound to the given database.
func NewLedgerRepo(db *sql.DB) *LedgerRepo { return &LedgerRepo{DB: db} }

// CreateForOrder writes the given entries inside a single transaction.
// Entries whose (source_order_id, referrer_id, level) triple already
// exists are skipped; the rest are inserted. It returns the entries
// actually written. All-or-nothing: either every missing entry lands or
// none do.
func (r *LedgerRepo) CreateForOrder(ctx context.Context, entries []model.LedgerEntry) ([]model.LedgerEntry, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	written := make([]model.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		var existing uint64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM commission_ledger
			 WHERE source_order_id = ? AND referrer_id = ? AND level = ? LIMIT 1`,
			e.SourceOrderID, e.ReferrerID, e.Level).Scan(&existing)
		if err == nil {
			continue // already credited for this order and level
		}
		if err != sql.ErrNoRows {
			return nil, err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO commission_ledger
			 (referrer_id, kind, amount, source_order_id, source_user_id, level, status, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ReferrerID, e.Kind, e.Amount.StringFixed(2), e.SourceOrderID,
			e.SourceUserID, e.Level, e.Status, e.CreatedAt)
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		e.ID = uint64(id)
		written = append(written, e)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return written, nil
}

// CountStalePending counts entries still pending that were created
// before the given cutoff. The health monitor uses a seven day cutoff.
func (r *LedgerRepo) CountStalePending(ctx context.Context, cutoff time.Time) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM commission_ledger WHERE status = ? AND created_at < ?",
		model.StatusPending, cutoff).Scan(&n)
	return n, err
}

// ReferrerStats aggregates a referrer's lifetime earnings per level.
type ReferrerStats struct {
	TotalEarned   decimal.Decimal
	PendingAmount decimal.Decimal
	EntryCount    int
	ByLevel       map[int]decimal.Decimal
}

// StatsForReferrer sums a referrer's credited commissions, broken down
// by level, plus the portion still pending payout.
func (r *LedgerRepo) StatsForReferrer(ctx context.Context, referrerID uint64) (ReferrerStats, error) {
	stats := ReferrerStats{
		TotalEarned:   decimal.Zero,
		PendingAmount: decimal.Zero,
		ByLevel:       make(map[int]decimal.Decimal),
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT level, status, amount FROM commission_ledger WHERE referrer_id = ?`,
		referrerID)
	if err != nil {
		return stats, err
	}
	defer rows.Close()
	for rows.Next() {
		var level int
		var status, amount string
		if err := rows.Scan(&level, &status, &amount); err != nil {
			return stats, err
		}
		amt, err := decimal.NewFromString(amount)
		if err != nil {
			return stats, err
		}
		stats.EntryCount++
		stats.TotalEarned = stats.TotalEarned.Add(amt)
		stats.ByLevel[level] = stats.ByLevel[level].Add(amt)
		if status == model.StatusPending {
			stats.PendingAmount = stats.PendingAmount.Add(amt)
		}
	}
	return stats, rows.Err()
}
