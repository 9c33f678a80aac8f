package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/yourorg/rentwheels/internal/domain"
)

const vehicleColumns = "id, vehicle_name, type, registration_number, daily_rent_price, availability_status, created_at, updated_at"

// PostgresVehicleRepository implements domain.VehicleRepository on PostgreSQL.
type PostgresVehicleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresVehicleRepository creates a new vehicle repository.
func NewPostgresVehicleRepository(db *sql.DB, logger *slog.Logger) *PostgresVehicleRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresVehicleRepository{
		db:     db,
		logger: logger,
	}
}

func scanVehicle(row interface{ Scan(...any) error }) (*domain.Vehicle, error) {
	vehicle := &domain.Vehicle{}
	err := row.Scan(
		&vehicle.ID,
		&vehicle.Name,
		&vehicle.Type,
		&vehicle.RegistrationNumber,
		&vehicle.DailyRentPrice,
		&vehicle.AvailabilityStatus,
		&vehicle.CreatedAt,
		&vehicle.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return vehicle, nil
}

// Create inserts a vehicle. New vehicles default to available.
func (r *PostgresVehicleRepository) Create(ctx context.Context, vehicle *domain.Vehicle) error {
	if vehicle.ID == "" {
		vehicle.ID = uuid.NewString()
	}
	if vehicle.AvailabilityStatus == "" {
		vehicle.AvailabilityStatus = domain.VehicleAvailable
	}

	query := `
		INSERT INTO vehicles (id, vehicle_name, type, registration_number, daily_rent_price, availability_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		vehicle.ID,
		vehicle.Name,
		vehicle.Type,
		vehicle.RegistrationNumber,
		vehicle.DailyRentPrice,
		vehicle.AvailabilityStatus,
	).Scan(&vehicle.CreatedAt, &vehicle.UpdatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return domain.E(domain.KindConflict, "vehicle with this registration number already exists")
		}
		r.logger.Error("failed to create vehicle",
			slog.String("registration_number", vehicle.RegistrationNumber),
			slog.String("error", err.Error()),
		)
		return domain.WrapErr(domain.KindStore, "failed to create vehicle", err)
	}

	return nil
}

// GetByID retrieves a vehicle by id.
func (r *PostgresVehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	return r.getBy(ctx, "id = $1", id)
}

// GetByRegistration retrieves a vehicle by registration number.
func (r *PostgresVehicleRepository) GetByRegistration(ctx context.Context, registration string) (*domain.Vehicle, error) {
	return r.getBy(ctx, "registration_number = $1", registration)
}

func (r *PostgresVehicleRepository) getBy(ctx context.Context, where string, arg any) (*domain.Vehicle, error) {
	query := fmt.Sprintf("SELECT %s FROM vehicles WHERE %s", vehicleColumns, where)

	vehicle, err := scanVehicle(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.E(domain.KindNotFound, "vehicle not found")
		}
		return nil, domain.WrapErr(domain.KindStore, "failed to get vehicle", err)
	}

	return vehicle, nil
}

// List returns all vehicles, newest first.
func (r *PostgresVehicleRepository) List(ctx context.Context) ([]*domain.Vehicle, error) {
	return r.list(ctx, fmt.Sprintf("SELECT %s FROM vehicles ORDER BY created_at DESC", vehicleColumns))
}

// ListAvailable returns vehicles currently marked available, newest first.
func (r *PostgresVehicleRepository) ListAvailable(ctx context.Context) ([]*domain.Vehicle, error) {
	return r.list(ctx, fmt.Sprintf(
		"SELECT %s FROM vehicles WHERE availability_status = '%s' ORDER BY created_at DESC",
		vehicleColumns, domain.VehicleAvailable,
	))
}

func (r *PostgresVehicleRepository) list(ctx context.Context, query string) ([]*domain.Vehicle, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("failed to list vehicles", slog.String("error", err.Error()))
		return nil, domain.WrapErr(domain.KindStore, "failed to list vehicles", err)
	}
	defer rows.Close()

	var vehicles []*domain.Vehicle
	for rows.Next() {
		vehicle, err := scanVehicle(rows)
		if err != nil {
			return nil, domain.WrapErr(domain.KindStore, "failed to scan vehicle", err)
		}
		vehicles = append(vehicles, vehicle)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.WrapErr(domain.KindStore, "failed to list vehicles", err)
	}
	return vehicles, nil
}

// UpdateFields applies a partial update, leaving unspecified columns alone.
func (r *PostgresVehicleRepository) UpdateFields(ctx context.Context, id string, upd domain.VehicleUpdate) (*domain.Vehicle, error) {
	var fields []string
	var values []any
	idx := 1

	addField := func(column string, value any) {
		fields = append(fields, fmt.Sprintf("%s = $%d", column, idx))
		values = append(values, value)
		idx++
	}

	if upd.Name != nil {
		addField("vehicle_name", *upd.Name)
	}
	if upd.Type != nil {
		addField("type", *upd.Type)
	}
	if upd.RegistrationNumber != nil {
		addField("registration_number", *upd.RegistrationNumber)
	}
	if upd.DailyRentPrice != nil {
		addField("daily_rent_price", *upd.DailyRentPrice)
	}
	if upd.AvailabilityStatus != nil {
		addField("availability_status", *upd.AvailabilityStatus)
	}

	if len(fields) == 0 {
		return r.GetByID(ctx, id)
	}

	fields = append(fields, "updated_at = NOW()")
	values = append(values, id)

	query := fmt.Sprintf(
		"UPDATE vehicles SET %s WHERE id = $%d RETURNING %s",
		strings.Join(fields, ", "), idx, vehicleColumns,
	)

	vehicle, err := scanVehicle(r.db.QueryRowContext(ctx, query, values...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.E(domain.KindNotFound, "vehicle not found")
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return nil, domain.E(domain.KindConflict, "registration number already in use")
		}
		return nil, domain.WrapErr(domain.KindStore, "failed to update vehicle", err)
	}

	return vehicle, nil
}

// Delete removes the vehicle row.
func (r *PostgresVehicleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM vehicles WHERE id = $1", id)
	if err != nil {
		return domain.WrapErr(domain.KindStore, "failed to delete vehicle", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.WrapErr(domain.KindStore, "failed to delete vehicle", err)
	}
	if rows == 0 {
		return domain.E(domain.KindNotFound, "vehicle not found")
	}

	return nil
}

// HasActiveBookings reports whether any active booking references the vehicle.
func (r *PostgresVehicleRepository) HasActiveBookings(ctx context.Context, id string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookings WHERE vehicle_id = $1 AND status = $2",
		id, domain.BookingActive,
	).Scan(&count)
	if err != nil {
		return false, domain.WrapErr(domain.KindStore, "failed to count active bookings", err)
	}
	return count > 0, nil
}
