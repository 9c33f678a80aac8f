package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/rentwheels/internal/catalog"
	"github.com/yourorg/rentwheels/internal/domain"
	"github.com/yourorg/rentwheels/internal/events"
	"github.com/yourorg/rentwheels/internal/observability/metrics"
)

// Identity is the authenticated caller, extracted from JWT claims by the
// middleware. The core never parses tokens itself.
type Identity struct {
	UserID string
	Role   domain.Role
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == domain.RoleAdmin
}

// CreateBookingInput carries a booking request into the lifecycle engine.
type CreateBookingInput struct {
	CustomerID    string
	VehicleID     string
	RentStartDate time.Time
	RentEndDate   time.Time
}

// BookingService is the booking lifecycle engine: the sole writer of booking
// state. It re-reads before every mutation and delegates the paired
// booking/vehicle writes to the repository's transactional operations.
type BookingService struct {
	bookings domain.BookingRepository
	vehicles domain.VehicleRepository
	users    domain.UserRepository
	hub      *events.Hub
	catalog  *catalog.VehicleCatalog
	logger   *slog.Logger
}

// NewBookingService creates the lifecycle engine. hub and catalog may be nil.
func NewBookingService(
	bookings domain.BookingRepository,
	vehicles domain.VehicleRepository,
	users domain.UserRepository,
	hub *events.Hub,
	vehicleCatalog *catalog.VehicleCatalog,
	logger *slog.Logger,
) *BookingService {
	if logger == nil {
		logger = slog.Default()
	}

	return &BookingService{
		bookings: bookings,
		vehicles: vehicles,
		users:    users,
		hub:      hub,
		catalog:  vehicleCatalog,
		logger:   logger,
	}
}

// IsVehicleAvailable reports whether no active booking on the vehicle
// overlaps [start, end]. Bounds are inclusive: a booking ending on the
// requested start date counts as overlapping.
func (s *BookingService) IsVehicleAvailable(ctx context.Context, vehicleID string, start, end time.Time) (bool, error) {
	count, err := s.bookings.CountOverlapping(ctx, vehicleID, start, end)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// Create runs the booking preconditions in order, prices the interval, and
// persists booking plus vehicle flag through the transactional store path.
// Customers always book for themselves; only admins may book on behalf of
// another customer.
func (s *BookingService) Create(ctx context.Context, caller Identity, in CreateBookingInput) (*domain.Booking, error) {
	if !caller.IsAdmin() {
		in.CustomerID = caller.UserID
	}
	if in.CustomerID == "" {
		return nil, domain.E(domain.KindUnauthorized, "user identity is required")
	}

	// Handlers validate first, but the engine re-checks: these are hard
	// invariants, not input niceties.
	if !in.RentEndDate.After(in.RentStartDate) {
		return nil, domain.E(domain.KindValidation, "rent end date must be after rent start date")
	}
	if !in.RentStartDate.After(time.Now()) {
		return nil, domain.E(domain.KindValidation, "rent start date must be in the future")
	}

	if _, err := s.users.GetByID(ctx, in.CustomerID); err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, domain.E(domain.KindNotFound, "customer not found")
		}
		return nil, err
	}

	vehicle, err := s.vehicles.GetByID(ctx, in.VehicleID)
	if err != nil {
		metrics.ObserveBooking("create", "error")
		return nil, err
	}

	if vehicle.AvailabilityStatus != domain.VehicleAvailable {
		metrics.ObserveBooking("create", "conflict")
		return nil, domain.E(domain.KindConflict, "vehicle is not available for booking")
	}

	available, err := s.IsVehicleAvailable(ctx, in.VehicleID, in.RentStartDate, in.RentEndDate)
	if err != nil {
		return nil, err
	}
	if !available {
		metrics.ObserveBooking("create", "conflict")
		return nil, domain.E(domain.KindConflict, "vehicle is already booked for the selected dates")
	}

	totalPrice := vehicle.DailyRentPrice * float64(ChargeableDays(in.RentStartDate, in.RentEndDate))

	booking := &domain.Booking{
		CustomerID:    in.CustomerID,
		VehicleID:     in.VehicleID,
		RentStartDate: in.RentStartDate,
		RentEndDate:   in.RentEndDate,
		TotalPrice:    totalPrice,
	}

	// CreateActive re-verifies vehicle state and overlap under a row lock,
	// so a concurrent create racing past the checks above loses here.
	if err := s.bookings.CreateActive(ctx, booking); err != nil {
		metrics.ObserveBooking("create", domain.KindOf(err).String())
		return nil, err
	}

	s.logger.Info("booking created",
		slog.String("booking_id", booking.ID),
		slog.String("vehicle_id", booking.VehicleID),
		slog.String("customer_id", booking.CustomerID),
		slog.Float64("total_price", booking.TotalPrice),
	)

	metrics.ObserveBooking("create", "success")
	metrics.IncrementActiveBookings()
	s.invalidateCatalog(ctx)
	s.publish(events.Event{
		Type:       events.TypeBookingCreated,
		BookingID:  booking.ID,
		VehicleID:  booking.VehicleID,
		CustomerID: booking.CustomerID,
		Status:     string(booking.Status),
	})

	return booking, nil
}

// List returns all bookings for admins and the caller's own bookings for
// customers. A customer call without a resolvable identity fails.
func (s *BookingService) List(ctx context.Context, caller Identity) ([]*domain.Booking, error) {
	if caller.IsAdmin() {
		return s.bookings.ListAll(ctx)
	}
	if caller.UserID == "" {
		return nil, domain.E(domain.KindUnauthorized, "user identity is required for customer access")
	}
	return s.bookings.ListByCustomer(ctx, caller.UserID)
}

// Get returns one booking; customers may only read their own.
func (s *BookingService) Get(ctx context.Context, caller Identity, id string) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && booking.CustomerID != caller.UserID {
		return nil, domain.E(domain.KindForbidden, "you can only view your own bookings")
	}
	return booking, nil
}

// Update applies a partial update or a lifecycle transition. Transition
// rules, checked in order: ownership, terminal-state guard, customer cancel
// only before the start date, returned only by admin. Terminal transitions
// free the vehicle atomically with the booking write.
func (s *BookingService) Update(ctx context.Context, caller Identity, id string, upd domain.BookingUpdate) (*domain.Booking, error) {
	existing, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !caller.IsAdmin() && existing.CustomerID != caller.UserID {
		return nil, domain.E(domain.KindForbidden, "you can only update your own bookings")
	}

	// Terminal states absorb: no further writes of any kind. Re-submitting
	// the current status must not reach FinalizeStatus, which would free the
	// vehicle again even if another active booking now holds it.
	if existing.Status.Terminal() {
		return nil, domain.Ef(domain.KindConflict, "booking is already %s", existing.Status)
	}

	if upd.Status != nil {
		next := *upd.Status
		if !domain.ValidBookingStatus(next) {
			return nil, domain.Ef(domain.KindValidation, "unknown booking status %q", next)
		}

		if next == domain.BookingCancelled && !caller.IsAdmin() {
			if !time.Now().Before(existing.RentStartDate) {
				return nil, domain.E(domain.KindForbidden, "cannot cancel booking after rent start date")
			}
		}
		if next == domain.BookingReturned && !caller.IsAdmin() {
			return nil, domain.E(domain.KindForbidden, "only admin can mark booking as returned")
		}

		if next.Terminal() {
			if upd.RentStartDate != nil || upd.RentEndDate != nil {
				return nil, domain.E(domain.KindValidation, "cannot change dates while closing a booking")
			}
			return s.finalize(ctx, existing, next)
		}
	}

	if err := s.validateDateUpdate(existing, upd); err != nil {
		return nil, err
	}

	updated, err := s.bookings.UpdateFields(ctx, id, upd)
	if err != nil {
		return nil, err
	}

	metrics.ObserveBooking("update", "success")
	return updated, nil
}

func (s *BookingService) validateDateUpdate(existing *domain.Booking, upd domain.BookingUpdate) error {
	if upd.RentStartDate == nil && upd.RentEndDate == nil {
		return nil
	}

	start := existing.RentStartDate
	end := existing.RentEndDate
	if upd.RentStartDate != nil {
		start = *upd.RentStartDate
	}
	if upd.RentEndDate != nil {
		end = *upd.RentEndDate
	}

	if !end.After(start) {
		return domain.E(domain.KindValidation, "rent end date must be after rent start date")
	}
	return nil
}

func (s *BookingService) finalize(ctx context.Context, existing *domain.Booking, status domain.BookingStatus) (*domain.Booking, error) {
	booking, err := s.bookings.FinalizeStatus(ctx, existing.ID, status)
	if err != nil {
		metrics.ObserveBooking(string(status), "error")
		return nil, err
	}

	s.logger.Info("booking closed",
		slog.String("booking_id", booking.ID),
		slog.String("vehicle_id", booking.VehicleID),
		slog.String("status", string(status)),
	)

	metrics.ObserveBooking(string(status), "success")
	if existing.Status == domain.BookingActive {
		metrics.DecrementActiveBookings()
	}
	s.invalidateCatalog(ctx)

	eventType := events.TypeBookingCancelled
	if status == domain.BookingReturned {
		eventType = events.TypeBookingReturned
	}
	s.publish(events.Event{
		Type:       eventType,
		BookingID:  booking.ID,
		VehicleID:  booking.VehicleID,
		CustomerID: booking.CustomerID,
		Status:     string(status),
	})

	return booking, nil
}

// ProcessOverdue runs one sweep pass: every active booking whose end date
// has passed is returned and its vehicle freed. Idempotent; a pass with
// nothing overdue changes no state.
func (s *BookingService) ProcessOverdue(ctx context.Context) (domain.SweepResult, error) {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	result, err := s.bookings.SweepOverdue(ctx, today)
	if err != nil {
		return result, err
	}

	if result.BookingsReturned > 0 {
		s.logger.Info("overdue bookings processed",
			slog.Int("bookings_returned", result.BookingsReturned),
			slog.Int("vehicles_freed", result.VehiclesFreed),
		)
		s.invalidateCatalog(ctx)
		s.publish(events.Event{
			Type:             events.TypeSweepCompleted,
			BookingsReturned: result.BookingsReturned,
			VehiclesFreed:    result.VehiclesFreed,
		})
	}

	return result, nil
}

func (s *BookingService) publish(ev events.Event) {
	if s.hub != nil {
		s.hub.Publish(ev)
	}
}

func (s *BookingService) invalidateCatalog(ctx context.Context) {
	if s.catalog != nil {
		s.catalog.Invalidate(ctx)
	}
}
