package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Operator is a back-office account allowed to call the admin API.
type Operator struct {
	ID           uint64
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// OperatorRepo provides access to the `operators` table.
type OperatorRepo struct{ DB *sql.DB }

// NewOperatorRepo returns a new OperatorRepo bound to the given database.
func NewOperatorRepo(db *sql.DB) *OperatorRepo { return &OperatorRepo{DB: db} }

// Count returns the number of operator accounts.
func (r *OperatorRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM operators").Scan(&n)
	return n, err
}

// Create inserts an operator account and returns its id.
func (r *OperatorRepo) Create(ctx context.Context, email, passwordHash, role string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO operators (email, password_hash, role) VALUES (?, ?, ?)",
		email, passwordHash, role)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches an operator by email. Returns ErrOperatorNotFound
// when no row exists.
func (r *OperatorRepo) GetByEmail(ctx context.Context, email string) (Operator, error) {
	var op Operator
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, email, password_hash, role, created_at
		 FROM operators WHERE email = ? LIMIT 1`,
		email).Scan(&op.ID, &op.Email, &op.PasswordHash, &op.Role, &op.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Operator{}, ErrOperatorNotFound
	}
	return op, err
}
