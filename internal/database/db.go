package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the tables this service owns. Statements are
// idempotent so the server can run them on every start. The users and
// orders tables are owned by other subsystems; their definitions here
// exist for local development and stay compatible with the production
// schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
			telegram_chat_id BIGINT NOT NULL DEFAULT 0,
			name VARCHAR(190) NOT NULL,
			referral_code VARCHAR(16) NULL,
			referrer_id BIGINT UNSIGNED NULL,
			applied_referral_code VARCHAR(16) NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			UNIQUE KEY uniq_referral_code (referral_code),
			KEY idx_referrer (referrer_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS orders (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
			buyer_id BIGINT UNSIGNED NOT NULL,
			total DECIMAL(12,2) NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			KEY idx_buyer (buyer_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS commission_ledger (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
			referrer_id BIGINT UNSIGNED NOT NULL,
			kind VARCHAR(32) NOT NULL,
			amount DECIMAL(12,2) NOT NULL,
			source_order_id BIGINT UNSIGNED NOT NULL,
			source_user_id BIGINT UNSIGNED NOT NULL,
			level TINYINT NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			UNIQUE KEY uniq_order_referrer_level (source_order_id, referrer_id, level),
			KEY idx_referrer_status (referrer_id, status),
			KEY idx_status_created (status, created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS referral_edges (
			user_id BIGINT UNSIGNED NOT NULL,
			referrer_id BIGINT UNSIGNED NOT NULL,
			level TINYINT NOT NULL,
			path VARCHAR(190) NOT NULL,
			is_active TINYINT(1) NOT NULL DEFAULT 1,
			verified_at DATETIME NOT NULL,
			PRIMARY KEY (user_id),
			KEY idx_referrer_level (referrer_id, level)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS error_logs (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
			severity VARCHAR(16) NOT NULL,
			source VARCHAR(64) NOT NULL,
			message TEXT NOT NULL,
			context TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			KEY idx_severity_created (severity, created_at),
			KEY idx_created (created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS operators (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
			email VARCHAR(190) NOT NULL,
			password_hash VARCHAR(100) NOT NULL,
			role VARCHAR(16) NOT NULL DEFAULT 'ADMIN',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			UNIQUE KEY uniq_email (email)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
