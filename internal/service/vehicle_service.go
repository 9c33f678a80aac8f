package service

import (
	"context"
	"log/slog"

	"github.com/yourorg/rentwheels/internal/catalog"
	"github.com/yourorg/rentwheels/internal/domain"
)

// VehicleService handles fleet management and public catalog reads.
type VehicleService struct {
	vehicles domain.VehicleRepository
	catalog  *catalog.VehicleCatalog
	logger   *slog.Logger
}

// NewVehicleService creates a new vehicle service. catalog may be nil.
func NewVehicleService(vehicles domain.VehicleRepository, vehicleCatalog *catalog.VehicleCatalog, logger *slog.Logger) *VehicleService {
	if logger == nil {
		logger = slog.Default()
	}

	return &VehicleService{
		vehicles: vehicles,
		catalog:  vehicleCatalog,
		logger:   logger,
	}
}

// Create registers a new vehicle in the fleet. Admin only.
func (s *VehicleService) Create(ctx context.Context, caller Identity, vehicle *domain.Vehicle) (*domain.Vehicle, error) {
	if !caller.IsAdmin() {
		return nil, domain.E(domain.KindForbidden, "only admin can manage vehicles")
	}

	if !domain.ValidVehicleType(vehicle.Type) {
		return nil, domain.Ef(domain.KindValidation, "unknown vehicle type %q", vehicle.Type)
	}
	if vehicle.DailyRentPrice <= 0 {
		return nil, domain.E(domain.KindValidation, "daily rent price must be positive")
	}

	if existing, err := s.vehicles.GetByRegistration(ctx, vehicle.RegistrationNumber); err == nil && existing != nil {
		return nil, domain.E(domain.KindConflict, "vehicle with this registration number already exists")
	}

	if err := s.vehicles.Create(ctx, vehicle); err != nil {
		return nil, err
	}

	s.logger.Info("vehicle created",
		slog.String("vehicle_id", vehicle.ID),
		slog.String("registration_number", vehicle.RegistrationNumber),
	)

	s.invalidateCatalog(ctx)
	return vehicle, nil
}

// List returns the whole fleet.
func (s *VehicleService) List(ctx context.Context) ([]*domain.Vehicle, error) {
	return s.vehicles.List(ctx)
}

// Get returns one vehicle by id.
func (s *VehicleService) Get(ctx context.Context, id string) (*domain.Vehicle, error) {
	return s.vehicles.GetByID(ctx, id)
}

// ListAvailable returns vehicles currently available for booking, served
// from the catalog cache when warm.
func (s *VehicleService) ListAvailable(ctx context.Context) ([]*domain.Vehicle, error) {
	if s.catalog != nil {
		if vehicles, ok := s.catalog.GetAvailable(ctx); ok {
			return vehicles, nil
		}
	}

	vehicles, err := s.vehicles.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}

	if s.catalog != nil {
		s.catalog.SetAvailable(ctx, vehicles)
	}
	return vehicles, nil
}

// Update applies a partial update. Admin only; a registration number change
// is checked for uniqueness first.
func (s *VehicleService) Update(ctx context.Context, caller Identity, id string, upd domain.VehicleUpdate) (*domain.Vehicle, error) {
	if !caller.IsAdmin() {
		return nil, domain.E(domain.KindForbidden, "only admin can manage vehicles")
	}

	existing, err := s.vehicles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Type != nil && !domain.ValidVehicleType(*upd.Type) {
		return nil, domain.Ef(domain.KindValidation, "unknown vehicle type %q", *upd.Type)
	}
	if upd.DailyRentPrice != nil && *upd.DailyRentPrice <= 0 {
		return nil, domain.E(domain.KindValidation, "daily rent price must be positive")
	}

	if upd.RegistrationNumber != nil && *upd.RegistrationNumber != existing.RegistrationNumber {
		if other, err := s.vehicles.GetByRegistration(ctx, *upd.RegistrationNumber); err == nil && other != nil {
			return nil, domain.E(domain.KindConflict, "registration number already in use")
		}
	}

	vehicle, err := s.vehicles.UpdateFields(ctx, id, upd)
	if err != nil {
		return nil, err
	}

	s.invalidateCatalog(ctx)
	return vehicle, nil
}

// Delete removes a vehicle from the fleet. Admin only, and blocked while
// the vehicle has an active booking.
func (s *VehicleService) Delete(ctx context.Context, caller Identity, id string) error {
	if !caller.IsAdmin() {
		return domain.E(domain.KindForbidden, "only admin can manage vehicles")
	}

	if _, err := s.vehicles.GetByID(ctx, id); err != nil {
		return err
	}

	hasActive, err := s.vehicles.HasActiveBookings(ctx, id)
	if err != nil {
		return err
	}
	if hasActive {
		return domain.E(domain.KindConflict, "cannot delete vehicle with active bookings")
	}

	if err := s.vehicles.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("vehicle deleted", slog.String("vehicle_id", id))
	s.invalidateCatalog(ctx)
	return nil
}

func (s *VehicleService) invalidateCatalog(ctx context.Context) {
	if s.catalog != nil {
		s.catalog.Invalidate(ctx)
	}
}
