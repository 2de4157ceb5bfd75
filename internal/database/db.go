package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection before returning.
// DATETIME columns scan into time.Time in UTC so timestamps compare
// cleanly across layers.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = pass
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, port)
	cfg.DBName = name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, err
	}

	// A small pool covers the board's traffic; connections are recycled
	// well inside MySQL's default wait_timeout.
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// itemsDDL creates the single items table. Timestamps are assigned by
// the database (CURRENT_TIMESTAMP / NOW on reserve), never by client
// clocks, so ordering by created_at is consistent across writers.
// Microsecond precision keeps the ordering stable under rapid inserts.
const itemsDDL = `CREATE TABLE IF NOT EXISTS items (
	id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
	title        VARCHAR(255) NOT NULL,
	description  TEXT NOT NULL,
	image        MEDIUMTEXT NOT NULL,
	owner        VARCHAR(190) NOT NULL,
	created_at   DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
	reserved     TINYINT(1) NOT NULL DEFAULT 0,
	reserved_by  VARCHAR(190) NULL,
	reserved_at  DATETIME(6) NULL,
	KEY idx_items_created_at (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// EnsureSchema applies the schema idempotently at startup so a fresh
// database is usable without a separate migration step.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, itemsDDL); err != nil {
		return fmt.Errorf("create items table: %w", err)
	}
	return nil
}
