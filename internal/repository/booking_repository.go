package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/yourorg/rentwheels/internal/domain"
)

const bookingColumns = "id, customer_id, vehicle_id, rent_start_date, rent_end_date, total_price, status, created_at, updated_at"

// overlapPredicate treats both interval bounds as inclusive, so a booking
// ending on day N blocks another starting on day N. Deliberate policy;
// keep in sync with the availability tests.
const overlapPredicate = `
	(rent_start_date BETWEEN $2 AND $3) OR
	(rent_end_date BETWEEN $2 AND $3) OR
	($2 BETWEEN rent_start_date AND rent_end_date)
`

// PostgresBookingRepository implements domain.BookingRepository on PostgreSQL.
// The multi-entity writes (create, finalize, sweep) run inside transactions
// that lock the vehicle row, serializing concurrent writers per vehicle.
type PostgresBookingRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresBookingRepository creates a new booking repository.
func NewPostgresBookingRepository(db *sql.DB, logger *slog.Logger) *PostgresBookingRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresBookingRepository{
		db:     db,
		logger: logger,
	}
}

func scanBooking(row interface{ Scan(...any) error }) (*domain.Booking, error) {
	booking := &domain.Booking{}
	err := row.Scan(
		&booking.ID,
		&booking.CustomerID,
		&booking.VehicleID,
		&booking.RentStartDate,
		&booking.RentEndDate,
		&booking.TotalPrice,
		&booking.Status,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// CreateActive inserts the booking and flips the vehicle to booked in one
// transaction. The vehicle row is locked first, and both the availability
// flag and interval overlap are re-verified under the lock, so two
// concurrent creates for the same vehicle cannot both pass the checks.
func (r *PostgresBookingRepository) CreateActive(ctx context.Context, booking *domain.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	booking.Status = domain.BookingActive

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.WrapErr(domain.KindStore, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	var status domain.AvailabilityStatus
	err = tx.QueryRowContext(ctx,
		"SELECT availability_status FROM vehicles WHERE id = $1 FOR UPDATE",
		booking.VehicleID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.E(domain.KindNotFound, "vehicle not found")
		}
		return domain.WrapErr(domain.KindStore, "failed to lock vehicle", err)
	}

	if status != domain.VehicleAvailable {
		return domain.E(domain.KindConflict, "vehicle is not available for booking")
	}

	var overlapping int
	err = tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM bookings WHERE vehicle_id = $1 AND status = '%s' AND (%s)",
			domain.BookingActive, overlapPredicate),
		booking.VehicleID, booking.RentStartDate, booking.RentEndDate,
	).Scan(&overlapping)
	if err != nil {
		return domain.WrapErr(domain.KindStore, "failed to check overlap", err)
	}
	if overlapping > 0 {
		return domain.E(domain.KindConflict, "vehicle is already booked for the selected dates")
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO bookings (id, customer_id, vehicle_id, rent_start_date, rent_end_date, total_price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`,
		booking.ID,
		booking.CustomerID,
		booking.VehicleID,
		booking.RentStartDate,
		booking.RentEndDate,
		booking.TotalPrice,
		booking.Status,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return domain.WrapErr(domain.KindStore, "failed to insert booking", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE vehicles SET availability_status = $1, updated_at = NOW() WHERE id = $2",
		domain.VehicleBooked, booking.VehicleID,
	)
	if err != nil {
		return domain.WrapErr(domain.KindStore, "failed to mark vehicle booked", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapErr(domain.KindStore, "failed to commit booking", err)
	}

	return nil
}

// GetByID retrieves a booking by id.
func (r *PostgresBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE id = $1", bookingColumns)

	booking, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.E(domain.KindNotFound, "booking not found")
		}
		return nil, domain.WrapErr(domain.KindStore, "failed to get booking", err)
	}

	return booking, nil
}

const bookingListQuery = `
	SELECT b.id, b.customer_id, b.vehicle_id, b.rent_start_date, b.rent_end_date,
	       b.total_price, b.status, b.created_at, b.updated_at,
	       v.vehicle_name, v.registration_number, v.type,
	       u.name, u.email
	FROM bookings b
	JOIN vehicles v ON b.vehicle_id = v.id
	JOIN users u ON b.customer_id = u.id
`

// ListAll returns every booking with vehicle and customer details joined in.
func (r *PostgresBookingRepository) ListAll(ctx context.Context) ([]*domain.Booking, error) {
	return r.listJoined(ctx, bookingListQuery+" ORDER BY b.created_at DESC")
}

// ListByCustomer returns the customer's bookings with details joined in.
func (r *PostgresBookingRepository) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Booking, error) {
	return r.listJoined(ctx, bookingListQuery+" WHERE b.customer_id = $1 ORDER BY b.created_at DESC", customerID)
}

func (r *PostgresBookingRepository) listJoined(ctx context.Context, query string, args ...any) ([]*domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list bookings", slog.String("error", err.Error()))
		return nil, domain.WrapErr(domain.KindStore, "failed to list bookings", err)
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		booking := &domain.Booking{}
		err := rows.Scan(
			&booking.ID,
			&booking.CustomerID,
			&booking.VehicleID,
			&booking.RentStartDate,
			&booking.RentEndDate,
			&booking.TotalPrice,
			&booking.Status,
			&booking.CreatedAt,
			&booking.UpdatedAt,
			&booking.VehicleName,
			&booking.RegistrationNumber,
			&booking.VehicleType,
			&booking.CustomerName,
			&booking.CustomerEmail,
		)
		if err != nil {
			return nil, domain.WrapErr(domain.KindStore, "failed to scan booking", err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.WrapErr(domain.KindStore, "failed to list bookings", err)
	}
	return bookings, nil
}

// CountOverlapping counts active bookings on the vehicle overlapping
// [start, end], bounds inclusive. Cancelled and returned bookings never
// block.
func (r *PostgresBookingRepository) CountOverlapping(ctx context.Context, vehicleID string, start, end time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM bookings WHERE vehicle_id = $1 AND status = '%s' AND (%s)",
			domain.BookingActive, overlapPredicate),
		vehicleID, start, end,
	).Scan(&count)
	if err != nil {
		return 0, domain.WrapErr(domain.KindStore, "failed to count overlapping bookings", err)
	}
	return count, nil
}

// UpdateFields applies a partial update with no vehicle side effects. Status
// changes to terminal states must go through FinalizeStatus instead; this
// method still accepts a status column for completeness of the store
// contract, but the lifecycle engine never routes terminal transitions here.
func (r *PostgresBookingRepository) UpdateFields(ctx context.Context, id string, upd domain.BookingUpdate) (*domain.Booking, error) {
	var fields []string
	var values []any
	idx := 1

	addField := func(column string, value any) {
		fields = append(fields, fmt.Sprintf("%s = $%d", column, idx))
		values = append(values, value)
		idx++
	}

	if upd.RentStartDate != nil {
		addField("rent_start_date", *upd.RentStartDate)
	}
	if upd.RentEndDate != nil {
		addField("rent_end_date", *upd.RentEndDate)
	}
	if upd.Status != nil {
		addField("status", *upd.Status)
	}

	if len(fields) == 0 {
		return r.GetByID(ctx, id)
	}

	fields = append(fields, "updated_at = NOW()")
	values = append(values, id)

	query := fmt.Sprintf(
		"UPDATE bookings SET %s WHERE id = $%d RETURNING %s",
		strings.Join(fields, ", "), idx, bookingColumns,
	)

	booking, err := scanBooking(r.db.QueryRowContext(ctx, query, values...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.E(domain.KindNotFound, "booking not found")
		}
		return nil, domain.WrapErr(domain.KindStore, "failed to update booking", err)
	}

	return booking, nil
}

// FinalizeStatus moves the booking to a terminal status and frees its
// vehicle atomically. Lock order is booking row, then vehicle row; the
// sweeper acquires locks in the same order, so the two never deadlock.
func (r *PostgresBookingRepository) FinalizeStatus(ctx context.Context, id string, status domain.BookingStatus) (*domain.Booking, error) {
	if !status.Terminal() {
		return nil, domain.Ef(domain.KindValidation, "cannot finalize booking to status %q", status)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.WrapErr(domain.KindStore, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	var vehicleID string
	err = tx.QueryRowContext(ctx,
		"SELECT vehicle_id FROM bookings WHERE id = $1 FOR UPDATE", id,
	).Scan(&vehicleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.E(domain.KindNotFound, "booking not found")
		}
		return nil, domain.WrapErr(domain.KindStore, "failed to lock booking", err)
	}

	var lockedVehicleID string
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM vehicles WHERE id = $1 FOR UPDATE", vehicleID,
	).Scan(&lockedVehicleID)
	if err != nil {
		return nil, domain.WrapErr(domain.KindStore, "failed to lock vehicle", err)
	}

	query := fmt.Sprintf(
		"UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING %s",
		bookingColumns,
	)
	booking, err := scanBooking(tx.QueryRowContext(ctx, query, status, id))
	if err != nil {
		return nil, domain.WrapErr(domain.KindStore, "failed to update booking status", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE vehicles SET availability_status = $1, updated_at = NOW() WHERE id = $2",
		domain.VehicleAvailable, vehicleID,
	)
	if err != nil {
		return nil, domain.WrapErr(domain.KindStore, "failed to free vehicle", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, domain.WrapErr(domain.KindStore, "failed to commit status change", err)
	}

	return booking, nil
}

// SweepOverdue closes every active booking whose end date is before today
// and frees the affected vehicles, all in one transaction. Re-running with
// nothing overdue touches zero rows.
func (r *PostgresBookingRepository) SweepOverdue(ctx context.Context, today time.Time) (domain.SweepResult, error) {
	var result domain.SweepResult

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return result, domain.WrapErr(domain.KindStore, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		UPDATE bookings
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND rent_end_date < $3
		RETURNING vehicle_id
	`, domain.BookingReturned, domain.BookingActive, today)
	if err != nil {
		return result, domain.WrapErr(domain.KindStore, "failed to close overdue bookings", err)
	}

	var vehicleIDs []string
	for rows.Next() {
		var vehicleID string
		if err := rows.Scan(&vehicleID); err != nil {
			rows.Close()
			return result, domain.WrapErr(domain.KindStore, "failed to scan swept booking", err)
		}
		vehicleIDs = append(vehicleIDs, vehicleID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return result, domain.WrapErr(domain.KindStore, "failed to close overdue bookings", err)
	}
	rows.Close()

	result.BookingsReturned = len(vehicleIDs)

	if len(vehicleIDs) > 0 {
		res, err := tx.ExecContext(ctx, `
			UPDATE vehicles
			SET availability_status = $1, updated_at = NOW()
			WHERE id = ANY($2) AND availability_status = $3
		`, domain.VehicleAvailable, pq.Array(vehicleIDs), domain.VehicleBooked)
		if err != nil {
			return result, domain.WrapErr(domain.KindStore, "failed to free swept vehicles", err)
		}
		freed, err := res.RowsAffected()
		if err != nil {
			return result, domain.WrapErr(domain.KindStore, "failed to count freed vehicles", err)
		}
		result.VehiclesFreed = int(freed)
	}

	if err := tx.Commit(); err != nil {
		return domain.SweepResult{}, domain.WrapErr(domain.KindStore, "failed to commit sweep", err)
	}

	return result, nil
}
