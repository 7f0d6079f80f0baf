package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/refstore/referral-engine/internal/model"
)

// NetworkRepo persists resolved referral edges in the `referral_edges`
// table. The table is a materialized snapshot of the referral forest;
// rebuilds replace its contents wholesale rather than diffing.
type NetworkRepo struct{ DB *sql.DB }

// NewNetworkRepo returns a new NetworkRepo bound to the given database.
func NewNetworkRepo(db *sql.DB) *NetworkRepo { return &NetworkRepo{DB: db} }

// ReplaceAll deletes every stored edge and inserts the given set inside
// one transaction, so readers never observe a partially rebuilt
// snapshot. An empty slice clears the table.
func (r *NetworkRepo) ReplaceAll(ctx context.Context, edges []model.ReferralEdge) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM referral_edges"); err != nil {
		return err
	}
	if len(edges) > 0 {
		// Multi-value insert keeps the rebuild to two statements.
		var sb strings.Builder
		sb.WriteString(`INSERT INTO referral_edges
		 (user_id, referrer_id, level, path, is_active, verified_at) VALUES `)
		args := make([]any, 0, len(edges)*6)
		for i, e := range edges {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?, ?, ?, ?)")
			args = append(args, e.UserID, e.ReferrerID, e.Level, e.Path, e.IsActive, e.VerifiedAt)
		}
		if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// ListAll returns every stored edge. Downline statistics walk the
// paths of the whole snapshot rather than issuing per-level queries.
func (r *NetworkRepo) ListAll(ctx context.Context) ([]model.ReferralEdge, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT user_id, referrer_id, level, path, is_active, verified_at
		 FROM referral_edges ORDER BY level, user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.ReferralEdge, 0)
	for rows.Next() {
		var e model.ReferralEdge
		if err := rows.Scan(&e.UserID, &e.ReferrerID, &e.Level, &e.Path, &e.IsActive, &e.VerifiedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns the number of stored edges.
func (r *NetworkRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM referral_edges").Scan(&n)
	return n, err
}
