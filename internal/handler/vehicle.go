package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/rentwheels/internal/domain"
	"github.com/yourorg/rentwheels/internal/service"
)

// VehicleHandler handles fleet endpoints. Reads are public; writes are
// admin-only, enforced in the service.
type VehicleHandler struct {
	vehicleService *service.VehicleService
	logger         *slog.Logger
}

// NewVehicleHandler creates a new vehicle handler
func NewVehicleHandler(vehicleService *service.VehicleService, logger *slog.Logger) *VehicleHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &VehicleHandler{
		vehicleService: vehicleService,
		logger:         logger,
	}
}

// CreateVehicleRequest represents a new fleet vehicle
type CreateVehicleRequest struct {
	VehicleName        string  `json:"vehicleName" validate:"required,min=2,max=100"`
	Type               string  `json:"type" validate:"required,oneof=car bike van SUV"`
	RegistrationNumber string  `json:"registrationNumber" validate:"required,min=4,max=20"`
	DailyRentPrice     float64 `json:"dailyRentPrice" validate:"required,gt=0"`
}

// Create handles POST /api/v1/vehicles
func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateVehicleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := checkRequest(req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	vehicle, err := h.vehicleService.Create(r.Context(), identityFrom(r), &domain.Vehicle{
		Name:               req.VehicleName,
		Type:               domain.VehicleType(req.Type),
		RegistrationNumber: req.RegistrationNumber,
		DailyRentPrice:     req.DailyRentPrice,
		AvailabilityStatus: domain.VehicleAvailable,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, "vehicle created successfully", toVehicleResponse(vehicle))
}

// List handles GET /api/v1/vehicles
func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.vehicleService.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, "vehicles retrieved successfully", toVehicleResponses(vehicles))
}

// ListAvailable handles GET /api/v1/vehicles/available
func (h *VehicleHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.vehicleService.ListAvailable(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, "available vehicles retrieved successfully", toVehicleResponses(vehicles))
}

// Get handles GET /api/v1/vehicles/{id}
func (h *VehicleHandler) Get(w http.ResponseWriter, r *http.Request) {
	vehicle, err := h.vehicleService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, "vehicle retrieved successfully", toVehicleResponse(vehicle))
}

// UpdateVehicleRequest represents a partial vehicle update
type UpdateVehicleRequest struct {
	VehicleName        *string  `json:"vehicleName" validate:"omitempty,min=2,max=100"`
	Type               *string  `json:"type" validate:"omitempty,oneof=car bike van SUV"`
	RegistrationNumber *string  `json:"registrationNumber" validate:"omitempty,min=4,max=20"`
	DailyRentPrice     *float64 `json:"dailyRentPrice" validate:"omitempty,gt=0"`
	AvailabilityStatus *string  `json:"availabilityStatus" validate:"omitempty,oneof=available booked"`
}

// Update handles PUT /api/v1/vehicles/{id}
func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateVehicleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := checkRequest(req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	upd := domain.VehicleUpdate{
		Name:               req.VehicleName,
		RegistrationNumber: req.RegistrationNumber,
		DailyRentPrice:     req.DailyRentPrice,
	}
	if req.Type != nil {
		t := domain.VehicleType(*req.Type)
		upd.Type = &t
	}
	if req.AvailabilityStatus != nil {
		s := domain.AvailabilityStatus(*req.AvailabilityStatus)
		upd.AvailabilityStatus = &s
	}

	vehicle, err := h.vehicleService.Update(r.Context(), identityFrom(r), r.PathValue("id"), upd)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, "vehicle updated successfully", toVehicleResponse(vehicle))
}

// Delete handles DELETE /api/v1/vehicles/{id}
func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.vehicleService.Delete(r.Context(), identityFrom(r), r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, "vehicle deleted successfully", nil)
}
