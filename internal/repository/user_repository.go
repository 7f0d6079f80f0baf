package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/refstore/referral-engine/internal/model"
)

// UserRepo provides read access to the `users` table, which is owned by
// the user directory subsystem. The only write this service performs is
// the permanent binding of an applied referral code.
type UserRepo struct{ DB *sql.DB }

// NewUserRepo returns a new UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id, telegram_chat_id, name, referral_code, referrer_id, applied_referral_code, created_at"

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	var referralCode sql.NullString
	var referrerID sql.NullInt64
	var appliedCode sql.NullString
	err := row.Scan(&u.ID, &u.TelegramChatID, &u.Name, &referralCode, &referrerID, &appliedCode, &u.CreatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.ReferralCode = referralCode.String
	if referrerID.Valid {
		id := uint64(referrerID.Int64)
		u.ReferrerID = &id
	}
	if appliedCode.Valid {
		code := appliedCode.String
		u.AppliedReferralCode = &code
	}
	return u, nil
}

// GetByID fetches a user by id. Returns ErrUserNotFound when no row exists.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// GetByReferralCode fetches the user whose public code matches the
// given code. Codes are case-insensitive; the column stores them upper
// case. Returns ErrCodeNotFound when no user owns the code.
func (r *UserRepo) GetByReferralCode(ctx context.Context, code string) (model.User, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE referral_code = ? LIMIT 1", code)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrCodeNotFound
	}
	return u, err
}

// ListAll returns every user record. It backs the batch forest resolver
// and the referral integrity probe, both of which need the whole
// directory in one pass rather than per-user queries.
func (r *UserRepo) ListAll(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SetReferralCode assigns a public code to a user who does not have one
// yet. The unique key on referral_code makes collisions an error the
// caller retries with a fresh code.
func (r *UserRepo) SetReferralCode(ctx context.Context, userID uint64, code string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET referral_code = ? WHERE id = ? AND referral_code IS NULL",
		code, userID)
	return err
}

// ApplyReferralCode permanently binds a redeemed code and the resolved
// referrer to the user. The WHERE clause guards against overwriting an
// existing binding under concurrent requests; a zero row count after a
// successful lookup means another request won the race.
func (r *UserRepo) ApplyReferralCode(ctx context.Context, userID, referrerID uint64, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET referrer_id = ?, applied_referral_code = ?
		 WHERE id = ? AND applied_referral_code IS NULL`,
		referrerID, code, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCodeAlreadyApplied
	}
	return nil
}
