package domain

import (
	"context"
	"time"
)

// VehicleType enumerates the rentable vehicle categories.
type VehicleType string

const (
	VehicleCar  VehicleType = "car"
	VehicleBike VehicleType = "bike"
	VehicleVan  VehicleType = "van"
	VehicleSUV  VehicleType = "SUV"
)

// ValidVehicleType reports whether t is a known vehicle type.
func ValidVehicleType(t VehicleType) bool {
	switch t {
	case VehicleCar, VehicleBike, VehicleVan, VehicleSUV:
		return true
	}
	return false
}

// AvailabilityStatus is the derived vehicle flag kept in sync with the
// existence of an active booking on the vehicle.
type AvailabilityStatus string

const (
	VehicleAvailable AvailabilityStatus = "available"
	VehicleBooked    AvailabilityStatus = "booked"
)

// Vehicle is a rentable unit of the fleet.
type Vehicle struct {
	ID                 string
	Name               string
	Type               VehicleType
	RegistrationNumber string // unique
	DailyRentPrice     float64
	AvailabilityStatus AvailabilityStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// VehicleUpdate is a partial update; nil fields are left untouched.
type VehicleUpdate struct {
	Name               *string
	Type               *VehicleType
	RegistrationNumber *string
	DailyRentPrice     *float64
	AvailabilityStatus *AvailabilityStatus
}

// VehicleRepository defines data access for vehicles.
type VehicleRepository interface {
	Create(ctx context.Context, vehicle *Vehicle) error
	GetByID(ctx context.Context, id string) (*Vehicle, error)
	GetByRegistration(ctx context.Context, registration string) (*Vehicle, error)
	List(ctx context.Context) ([]*Vehicle, error)
	ListAvailable(ctx context.Context) ([]*Vehicle, error)
	UpdateFields(ctx context.Context, id string, upd VehicleUpdate) (*Vehicle, error)
	Delete(ctx context.Context, id string) error
	HasActiveBookings(ctx context.Context, id string) (bool, error)
}
