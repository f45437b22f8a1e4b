// Package dbtest opens throwaway sqlite databases that mirror the postgres
// schema closely enough for repository and service tests.
package dbtest

import (
	"fmt"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/db"
)

// sqlite has no numeric(12,2) or uuid types; money and ids are stored as TEXT
// so decimal and uuid round-trip exactly.
var schema = []string{
	`CREATE TABLE assets (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		media_url TEXT NOT NULL,
		storage_object TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		status TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		order_number TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		status TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		fulfillment_status TEXT NOT NULL,
		subtotal TEXT NOT NULL,
		tax TEXT NOT NULL,
		total TEXT NOT NULL,
		currency TEXT NOT NULL,
		billing_email TEXT,
		billing_name TEXT,
		billing_address TEXT,
		stripe_session_id TEXT,
		stripe_payment_intent_id TEXT,
		internal_notes TEXT,
		created_at DATETIME,
		updated_at DATETIME,
		completed_at DATETIME
	)`,
	`CREATE TABLE order_items (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		asset_id TEXT NOT NULL,
		license_tier TEXT NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 1,
		unit_price TEXT NOT NULL,
		total_price TEXT NOT NULL,
		currency TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		created_at DATETIME
	)`,
	`CREATE TABLE licenses (
		id TEXT PRIMARY KEY,
		license_key TEXT NOT NULL UNIQUE,
		tier TEXT NOT NULL,
		user_id TEXT NOT NULL,
		order_id TEXT NOT NULL,
		asset_id TEXT NOT NULL,
		commercial_use BOOLEAN NOT NULL,
		resale_allowed BOOLEAN NOT NULL,
		modification_allowed BOOLEAN NOT NULL,
		purchase_price TEXT NOT NULL,
		currency TEXT NOT NULL,
		download_count INTEGER NOT NULL DEFAULT 0,
		max_downloads INTEGER,
		is_active BOOLEAN NOT NULL,
		expires_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE (order_id, asset_id)
	)`,
	`CREATE TABLE download_events (
		id TEXT PRIMARY KEY,
		asset_id TEXT NOT NULL,
		user_id TEXT,
		license_id TEXT,
		tier TEXT NOT NULL,
		allowed BOOLEAN NOT NULL,
		reason TEXT NOT NULL,
		ip_address TEXT NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE webhook_events (
		provider TEXT NOT NULL,
		event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		processed_at DATETIME NOT NULL,
		PRIMARY KEY (provider, event_id)
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
}

// Open returns a fresh in-memory database with the storefront schema applied.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:dbtest_%s?mode=memory&cache=shared", strings.ReplaceAll(uuid.NewString(), "-", ""))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.New(log.New(io.Discard, "", 0), gormlogger.Config{LogLevel: gormlogger.Silent}),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// one connection keeps the in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}

// Client wraps Open in the transactional client services expect.
func Client(t testing.TB) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t)
	return db.Wrap(conn), conn
}
