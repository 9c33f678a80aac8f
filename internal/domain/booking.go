package domain

import (
	"context"
	"time"
)

// BookingStatus is the booking lifecycle state. Cancelled and returned are
// terminal; only active bookings block vehicle availability.
type BookingStatus string

const (
	BookingActive    BookingStatus = "active"
	BookingCancelled BookingStatus = "cancelled"
	BookingReturned  BookingStatus = "returned"
)

// Terminal reports whether the status accepts no further transitions.
func (s BookingStatus) Terminal() bool {
	return s == BookingCancelled || s == BookingReturned
}

// ValidBookingStatus reports whether s is a known status.
func ValidBookingStatus(s BookingStatus) bool {
	switch s {
	case BookingActive, BookingCancelled, BookingReturned:
		return true
	}
	return false
}

// Booking reserves one vehicle for one customer over a date interval.
// TotalPrice is computed at creation and never changes afterwards.
type Booking struct {
	ID            string
	CustomerID    string
	VehicleID     string
	RentStartDate time.Time // date precision
	RentEndDate   time.Time
	TotalPrice    float64
	Status        BookingStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Joined fields populated by list queries; zero-valued elsewhere.
	VehicleName        string
	RegistrationNumber string
	VehicleType        VehicleType
	CustomerName       string
	CustomerEmail      string
}

// BookingUpdate is a partial update of mutable booking fields. TotalPrice is
// deliberately absent: it is immutable after creation.
type BookingUpdate struct {
	RentStartDate *time.Time
	RentEndDate   *time.Time
	Status        *BookingStatus
}

// SweepResult reports what one overdue sweep pass changed.
type SweepResult struct {
	BookingsReturned int
	VehiclesFreed    int
}

// BookingRepository defines data access for bookings. CreateActive,
// FinalizeStatus and SweepOverdue are transactional: they update the booking
// and the vehicle availability flag atomically, holding a row lock on the
// vehicle so concurrent writers on the same vehicle serialize.
type BookingRepository interface {
	// CreateActive inserts the booking with status=active and flips the
	// vehicle to booked, re-verifying vehicle state and overlap under lock.
	CreateActive(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	ListAll(ctx context.Context) ([]*Booking, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*Booking, error)
	// CountOverlapping counts active bookings on the vehicle whose interval
	// overlaps [start, end], bounds inclusive.
	CountOverlapping(ctx context.Context, vehicleID string, start, end time.Time) (int, error)
	// UpdateFields applies a partial non-status update with no vehicle side
	// effects.
	UpdateFields(ctx context.Context, id string, upd BookingUpdate) (*Booking, error)
	// FinalizeStatus moves the booking to a terminal status and frees the
	// vehicle in the same transaction.
	FinalizeStatus(ctx context.Context, id string, status BookingStatus) (*Booking, error)
	// SweepOverdue returns every active booking with rent_end_date before
	// today and frees the affected vehicles, all in one transaction.
	SweepOverdue(ctx context.Context, today time.Time) (SweepResult, error)
}
