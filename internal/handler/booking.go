package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/rentwheels/internal/domain"
	"github.com/yourorg/rentwheels/internal/service"
)

// BookingHandler handles booking lifecycle endpoints.
type BookingHandler struct {
	bookingService *service.BookingService
	logger         *slog.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookingService *service.BookingService, logger *slog.Logger) *BookingHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &BookingHandler{
		bookingService: bookingService,
		logger:         logger,
	}
}

// CreateBookingRequest represents a booking request. CustomerID is honored
// only for admin callers; customers always book for themselves.
type CreateBookingRequest struct {
	CustomerID    string `json:"customerId" validate:"omitempty,uuid4"`
	VehicleID     string `json:"vehicleId" validate:"required,uuid4"`
	RentStartDate string `json:"rentStartDate" validate:"required"`
	RentEndDate   string `json:"rentEndDate" validate:"required"`
}

// Create handles POST /api/v1/bookings
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := checkRequest(req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	start, err := parseDate(req.RentStartDate)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	end, err := parseDate(req.RentEndDate)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	booking, err := h.bookingService.Create(r.Context(), identityFrom(r), service.CreateBookingInput{
		CustomerID:    req.CustomerID,
		VehicleID:     req.VehicleID,
		RentStartDate: start,
		RentEndDate:   end,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, "booking created successfully", toBookingResponse(booking))
}

// List handles GET /api/v1/bookings
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookingService.List(r.Context(), identityFrom(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, "bookings retrieved successfully", toBookingResponses(bookings))
}

// Get handles GET /api/v1/bookings/{id}
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	booking, err := h.bookingService.Get(r.Context(), identityFrom(r), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, "booking retrieved successfully", toBookingResponse(booking))
}

// UpdateBookingRequest represents a partial booking update: new dates, a
// cancellation, or a return.
type UpdateBookingRequest struct {
	RentStartDate *string `json:"rentStartDate"`
	RentEndDate   *string `json:"rentEndDate"`
	Status        *string `json:"status" validate:"omitempty,oneof=active cancelled returned"`
}

// Update handles PUT /api/v1/bookings/{id}
func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateBookingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := checkRequest(req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	var upd domain.BookingUpdate
	if req.RentStartDate != nil {
		start, err := parseDate(*req.RentStartDate)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		upd.RentStartDate = &start
	}
	if req.RentEndDate != nil {
		end, err := parseDate(*req.RentEndDate)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		upd.RentEndDate = &end
	}
	if req.Status != nil {
		status := domain.BookingStatus(*req.Status)
		upd.Status = &status
	}

	booking, err := h.bookingService.Update(r.Context(), identityFrom(r), r.PathValue("id"), upd)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, "booking updated successfully", toBookingResponse(booking))
}

// QuoteRequest asks for the price of a hypothetical booking.
type QuoteRequest struct {
	VehicleID     string `json:"vehicleId" validate:"required,uuid4"`
	RentStartDate string `json:"rentStartDate" validate:"required"`
	RentEndDate   string `json:"rentEndDate" validate:"required"`
}

// QuoteResponse carries a computed rental price.
type QuoteResponse struct {
	VehicleID  string  `json:"vehicleId"`
	Days       int     `json:"days"`
	TotalPrice float64 `json:"totalPrice"`
}

// Quote handles POST /api/v1/bookings/quote
func (h *BookingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := checkRequest(req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	start, err := parseDate(req.RentStartDate)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	end, err := parseDate(req.RentEndDate)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if !end.After(start) {
		writeError(w, h.logger, domain.E(domain.KindValidation, "rent end date must be after rent start date"))
		return
	}

	total, err := h.bookingService.Quote(r.Context(), req.VehicleID, start, end)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, "quote computed successfully", QuoteResponse{
		VehicleID:  req.VehicleID,
		Days:       service.ChargeableDays(start, end),
		TotalPrice: total,
	})
}
