// Package dbtest opens isolated in-memory sqlite databases carrying the application schema.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/parcelhub-backend/pkg/db"
)

var schema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		phone TEXT,
		full_name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'approved',
		vehicle_type TEXT,
		last_login_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE zones (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		provinces TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE hubs (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		address TEXT NOT NULL,
		zone_id TEXT,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		order_number TEXT NOT NULL UNIQUE,
		tracking_number TEXT NOT NULL UNIQUE,
		customer_id TEXT NOT NULL,
		service_type TEXT NOT NULL,
		sender_name TEXT NOT NULL,
		sender_phone TEXT NOT NULL,
		sender_address TEXT NOT NULL,
		receiver_name TEXT NOT NULL,
		receiver_phone TEXT NOT NULL,
		receiver_address TEXT NOT NULL,
		declared_weight REAL NOT NULL,
		length_cm REAL NOT NULL DEFAULT 0,
		width_cm REAL NOT NULL DEFAULT 0,
		height_cm REAL NOT NULL DEFAULT 0,
		declared_value INTEGER NOT NULL DEFAULT 0,
		chargeable_weight REAL NOT NULL,
		shipping_fee INTEGER NOT NULL,
		insurance_fee INTEGER NOT NULL DEFAULT 0,
		cod_amount INTEGER NOT NULL DEFAULT 0,
		total_amount INTEGER NOT NULL,
		payment_method TEXT NOT NULL,
		payment_status TEXT NOT NULL DEFAULT 'unpaid',
		payment_reference TEXT,
		status TEXT NOT NULL,
		notes TEXT,
		warehouse_id TEXT,
		package_size TEXT,
		weight REAL,
		shipper_id TEXT,
		vehicle_type TEXT,
		estimated_pickup_at DATETIME NOT NULL,
		estimated_delivery_at DATETIME NOT NULL,
		processing_at DATETIME,
		delivered_at DATETIME,
		cancelled_at DATETIME,
		cancel_reason TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE order_items (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		description TEXT NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 1,
		weight REAL NOT NULL DEFAULT 0,
		created_at DATETIME
	)`,
	`CREATE TABLE order_status_history (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		status TEXT NOT NULL,
		notes TEXT,
		changed_by TEXT,
		actor_role TEXT,
		created_at DATETIME
	)`,
	`CREATE TABLE delivery_tracking (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL UNIQUE,
		shipper_id TEXT NOT NULL,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		status TEXT NOT NULL,
		note TEXT,
		updated_at DATETIME
	)`,
	`CREATE TABLE payment_transactions (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		reference TEXT NOT NULL UNIQUE,
		amount INTEGER NOT NULL,
		currency TEXT NOT NULL DEFAULT 'VND',
		status TEXT NOT NULL DEFAULT 'pending',
		paid_amount INTEGER,
		signature TEXT NOT NULL,
		redirect_url TEXT NOT NULL,
		expires_at DATETIME NOT NULL,
		completed_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_payment_transactions_order_pending ON payment_transactions(order_id) WHERE status = 'pending'`,
	`CREATE TABLE complaints (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		subject TEXT NOT NULL,
		description TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'open',
		resolution TEXT,
		resolved_by TEXT,
		resolved_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		order_id TEXT,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		read_at DATETIME,
		created_at DATETIME
	)`,
	`CREATE TABLE pricing_rules (
		id TEXT PRIMARY KEY,
		service_type TEXT NOT NULL UNIQUE,
		base_fee INTEGER NOT NULL,
		step_fee INTEGER NOT NULL,
		surcharge INTEGER NOT NULL DEFAULT 0,
		discount INTEGER NOT NULL DEFAULT 0,
		minimum_fare INTEGER NOT NULL DEFAULT 0,
		insurance_rate NUMERIC NOT NULL,
		insurance_threshold INTEGER NOT NULL,
		delivery_offset_hours INTEGER NOT NULL,
		active BOOLEAN NOT NULL DEFAULT 1,
		updated_by TEXT,
		created_at DATETIME,
		updated_at DATETIME
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

// Open returns a fresh database private to the calling test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v\n%s", err, stmt)
		}
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

// Client wraps Open in the transaction-capable client services expect.
func Client(t testing.TB) *db.Client {
	t.Helper()
	return db.FromGorm(Open(t))
}
