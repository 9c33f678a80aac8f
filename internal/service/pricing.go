package service

import (
	"context"
	"math"
	"time"
)

// ChargeableDays returns the number of days billed for a rental interval:
// the ceiling of the absolute difference in days, never less than one, so a
// sub-day interval still bills a full day.
func ChargeableDays(start, end time.Time) int {
	diff := end.Sub(start)
	if diff < 0 {
		diff = -diff
	}

	days := int(math.Ceil(diff.Hours() / 24))
	if days < 1 {
		days = 1
	}
	return days
}

// Quote computes the total price for renting a vehicle over an interval:
// daily rate times chargeable days. Pure function of store reads; fails
// NotFound when the vehicle id does not resolve.
func (s *BookingService) Quote(ctx context.Context, vehicleID string, start, end time.Time) (float64, error) {
	vehicle, err := s.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return 0, err
	}

	return vehicle.DailyRentPrice * float64(ChargeableDays(start, end)), nil
}
