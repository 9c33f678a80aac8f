package database

import (
	"context"
	"fmt"
	"log/slog"
)

// schema is applied idempotently at startup. Vehicle availability is a flag
// column; the bookings table is the source of truth for date ranges.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'customer' CHECK (role IN ('admin', 'customer')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS vehicles (
		id UUID PRIMARY KEY,
		vehicle_name TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('car', 'bike', 'van', 'SUV')),
		registration_number TEXT NOT NULL UNIQUE,
		daily_rent_price DOUBLE PRECISION NOT NULL CHECK (daily_rent_price > 0),
		availability_status TEXT NOT NULL DEFAULT 'available'
			CHECK (availability_status IN ('available', 'booked')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id UUID PRIMARY KEY,
		customer_id UUID NOT NULL REFERENCES users(id),
		vehicle_id UUID NOT NULL REFERENCES vehicles(id),
		rent_start_date TIMESTAMPTZ NOT NULL,
		rent_end_date TIMESTAMPTZ NOT NULL,
		total_price DOUBLE PRECISION NOT NULL,
		status TEXT NOT NULL DEFAULT 'active'
			CHECK (status IN ('active', 'cancelled', 'returned')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (rent_end_date > rent_start_date)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_bookings_customer ON bookings (customer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_vehicle_status ON bookings (vehicle_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_overdue ON bookings (rent_end_date) WHERE status = 'active'`,
	`CREATE INDEX IF NOT EXISTS idx_vehicles_availability ON vehicles (availability_status)`,
}

// Migrate applies the schema. Safe to run on every startup.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := cp.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	cp.logger.Info("database schema up to date", slog.Int("statements", len(schema)))
	return nil
}
