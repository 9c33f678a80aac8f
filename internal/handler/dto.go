package handler

import (
	"time"

	"github.com/yourorg/rentwheels/internal/domain"
)

// UserResponse is the wire shape of an account. The password hash never
// appears here.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toUserResponses(users []*domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

// VehicleResponse is the wire shape of a vehicle.
type VehicleResponse struct {
	ID                 string    `json:"id"`
	VehicleName        string    `json:"vehicleName"`
	Type               string    `json:"type"`
	RegistrationNumber string    `json:"registrationNumber"`
	DailyRentPrice     float64   `json:"dailyRentPrice"`
	AvailabilityStatus string    `json:"availabilityStatus"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func toVehicleResponse(v *domain.Vehicle) VehicleResponse {
	return VehicleResponse{
		ID:                 v.ID,
		VehicleName:        v.Name,
		Type:               string(v.Type),
		RegistrationNumber: v.RegistrationNumber,
		DailyRentPrice:     v.DailyRentPrice,
		AvailabilityStatus: string(v.AvailabilityStatus),
		CreatedAt:          v.CreatedAt,
		UpdatedAt:          v.UpdatedAt,
	}
}

func toVehicleResponses(vehicles []*domain.Vehicle) []VehicleResponse {
	out := make([]VehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, toVehicleResponse(v))
	}
	return out
}

// BookingResponse is the wire shape of a booking, including the joined
// vehicle and customer details list queries carry.
type BookingResponse struct {
	ID            string    `json:"id"`
	CustomerID    string    `json:"customerId"`
	VehicleID     string    `json:"vehicleId"`
	RentStartDate time.Time `json:"rentStartDate"`
	RentEndDate   time.Time `json:"rentEndDate"`
	TotalPrice    float64   `json:"totalPrice"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	VehicleName        string `json:"vehicleName,omitempty"`
	RegistrationNumber string `json:"registrationNumber,omitempty"`
	VehicleType        string `json:"vehicleType,omitempty"`
	CustomerName       string `json:"customerName,omitempty"`
	CustomerEmail      string `json:"customerEmail,omitempty"`
}

func toBookingResponse(b *domain.Booking) BookingResponse {
	return BookingResponse{
		ID:                 b.ID,
		CustomerID:         b.CustomerID,
		VehicleID:          b.VehicleID,
		RentStartDate:      b.RentStartDate,
		RentEndDate:        b.RentEndDate,
		TotalPrice:         b.TotalPrice,
		Status:             string(b.Status),
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
		VehicleName:        b.VehicleName,
		RegistrationNumber: b.RegistrationNumber,
		VehicleType:        string(b.VehicleType),
		CustomerName:       b.CustomerName,
		CustomerEmail:      b.CustomerEmail,
	}
}

func toBookingResponses(bookings []*domain.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	return out
}
