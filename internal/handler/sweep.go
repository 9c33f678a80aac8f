package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/rentwheels/internal/security"
	"github.com/yourorg/rentwheels/internal/service"
)

// SweepHandler exposes the overdue sweep as an admin operation, so overdue
// bookings can be processed on demand between scheduled passes.
type SweepHandler struct {
	bookingService *service.BookingService
	authz          *security.AuthorizationService
	logger         *slog.Logger
}

// NewSweepHandler creates a new sweep handler
func NewSweepHandler(bookingService *service.BookingService, authz *security.AuthorizationService, logger *slog.Logger) *SweepHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &SweepHandler{
		bookingService: bookingService,
		authz:          authz,
		logger:         logger,
	}
}

// SweepResponse reports what the pass changed.
type SweepResponse struct {
	BookingsReturned int `json:"bookingsReturned"`
	VehiclesFreed    int `json:"vehiclesFreed"`
}

// ServeHTTP handles POST /api/v1/admin/sweep
func (h *SweepHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	caller := identityFrom(r)
	if !h.authz.HasPermission(caller.Role, security.PermRunSweep) {
		writeJSON(w, http.StatusForbidden, "only admin can run the sweep", nil)
		return
	}

	result, err := h.bookingService.ProcessOverdue(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, "sweep completed successfully", SweepResponse{
		BookingsReturned: result.BookingsReturned,
		VehiclesFreed:    result.VehiclesFreed,
	})
}
