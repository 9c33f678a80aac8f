package service

import (
	"context"
	"testing"
	"time"

	"github.com/yourorg/rentwheels/internal/domain"
)

func futureDate(days int) time.Time {
	return time.Now().AddDate(0, 0, days).Truncate(time.Hour)
}

func TestCreateBookingFlipsVehicleAndPrices(t *testing.T) {
	store := newMemStore()
	customer := store.addUser("Jane", "jane@example.com", domain.RoleCustomer)
	vehicle := store.addVehicle("Corolla", "KA-01-1234", 50)
	svc := newBookingService(store)

	start := futureDate(2)
	booking, err := svc.Create(context.Background(), Identity{UserID: customer.ID, Role: domain.RoleCustomer}, CreateBookingInput{
		VehicleID:     vehicle.ID,
		RentStartDate: start,
		RentEndDate:   start.AddDate(0, 0, 3),
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}

	if booking.Status != domain.BookingActive {
		t.Fatalf("expected active booking, got %s", booking.Status)
	}
	if booking.TotalPrice != 150 {
		t.Fatalf("expected total price 150 for 3 days at 50, got %v", booking.TotalPrice)
	}
	if booking.CustomerID != customer.ID {
		t.Fatalf("expected booking for %s, got %s", customer.ID, booking.CustomerID)
	}

	v, _ := memVehicles{store}.GetByID(context.Background(), vehicle.ID)
	if v.AvailabilityStatus != domain.VehicleBooked {
		t.Fatalf("expected vehicle booked after create, got %s", v.AvailabilityStatus)
	}
}

func TestCreateBookingSubDayIntervalBillsOneDay(t *testing.T) {
	store := newMemStore()
	customer := store.addUser("Jane", "jane@example.com", domain.RoleCustomer)
	vehicle := store.addVehicle("Corolla", "KA-01-1234", 80)
	svc := newBookingService(store)

	start := futureDate(2)
	booking, err := svc.Create(context.Background(), Identity{UserID: customer.ID, Role: domain.RoleCustomer}, CreateBookingInput{
		VehicleID:     vehicle.ID,
		RentStartDate: start,
		RentEndDate:   start.Add(6 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if booking.TotalPrice != 80 {
		t.Fatalf("expected one-day minimum price 80, got %v", booking.TotalPrice)
	}
}

func TestCreateBookingInclusiveBoundaryOverlap(t *testing.T) {
	store := newMemStore()
	customer := store.addUser("Jane", "jane@example.com", domain.RoleCustomer)
	other := store.addUser("Bob", "bob@example.com", domain.RoleCustomer)
	vehicle := store.addVehicle("Corolla", "KA-01-1234", 50)
	store.addBooking(other.ID, vehicle.ID, futureDate(5), futureDate(10), domain.BookingActive)
	// The flag blocks before overlap is even consulted; clear it so the
	// boundary check itself is exercised.
	store.vehicles[vehicle.ID].AvailabilityStatus = domain.VehicleAvailable
	svc := newBookingService(store)

	caller := Identity{UserID: customer.ID, Role: domain.RoleCustomer}

	// A booking starting exactly on the existing end date conflicts.
	_, err := svc.Create(context.Background(), caller, CreateBookingInput{
		VehicleID:     vehicle.ID,
		RentStartDate: futureDate(10),
		RentEndDate:   futureDate(15),
	})
	if !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("expected conflict for touching intervals, got %v", err)
	}

	// One day later is free.
	if _, err := svc.Create(context.Background(), caller, CreateBookingInput{
		VehicleID:     vehicle.ID,
		RentStartDate: futureDate(11),
		RentEndDate:   futureDate(15),
	}); err != nil {
		t.Fatalf("expected disjoint interval to book, got %v", err)
	}
}

func TestCreateBookingIgnoresTerminalOverlap(t *testing.T) {
	store := newMemStore()
	customer := store.addUser("Jane", "jane@example.com", domain.RoleCustomer)
	vehicle := store.addVehicle("Corolla", "KA-01-1234", 50)
	store.addBooking(customer.ID, vehicle.ID, futureDate(5), futureDate(10), domain.BookingCancelled)
	svc := newBookingService(store)

	if _, err := svc.Create(context.Background(), Identity{UserID: customer.ID, Role: domain.RoleCustomer}, CreateBookingInput{
		VehicleID:     vehicle.ID,
		RentStartDate: futureDate(6),
		RentEndDate:   futureDate(8),
	}); err != nil {
		t.Fatalf("cancelled booking must not block the dates: %v", err)
	}
}

func TestCreateBookingVehicleFlagConflict(t *testing.T) {
	store := newMemStore()
	customer := store.addUser("Jane", "jane@example.com", domain.RoleCustomer)
	vehicle := store.addVehicle("Corolla", "KA-01-1234", 50)
	store.vehicles[vehicle.ID].AvailabilityStatus = domain.VehicleBooked
	svc := newBookingService(store)

	_, err := svc.Create(context.Background(), Identity{UserID: customer.ID, Role: domain.RoleCustomer}, CreateBookingInput{
		VehicleID:     vehicle.ID,
		RentStartDate: futureDate(2),
		RentEndDate:   futureDate(4),
	})
	if !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("expected conflict for booked vehicle, got %v", err)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	store := newMemStore()
	customer := store.addUser("Jane", "jane@example.com", domain.RoleCustomer)
	vehicle := store.addVehicle("Corolla", "KA-01-1234", 50)
	svc := newBookingService(store)
	caller := Identity{UserID: customer.ID, Role: domain.RoleCustomer}

	// End before start.
	_, err := svc.Create(context.Background(), caller, CreateBookingInput{
		VehicleID:     vehicle.ID,
		RentStartDate: futureDate(5),
		RentEndDate:   futureDate(3),
	})
	if !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for inverted dates, got %v", err)
	}

	// Start in the past.
	_, err = svc.Create(context.Background(), caller, CreateBookingInput{
		VehicleID:     vehicle.ID,
		RentStartDate: time.Now().AddDate(0, 0, -1),
		RentEndDate:   futureDate(3),
	})
	if !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for past start, got %v", err)
	}

	// No identity at all.
	_, err = svc.Create(context.Background(), Identity{}, CreateBookingInput{
		VehicleID:     vehicle.ID,
		RentStartDate: futureDate(2),
		RentEndDate:   futureDate(4),
	})
	if !domain.IsKind(err, domain.KindUnauthorized) {
		t.Fatalf("expected unauthorized without identity, got %v", err)
	}
}

func TestCustomerAlwaysBooksForSelf(t *testing.T) {
	store := newMemStore()
	customer := store.addUser("Jane", "jane@example.com", domain.RoleCustomer)
	other := store.addUser("Bob", "bob@example.com", domain.RoleCustomer)
	vehicle := store.addVehicle("Corolla", "KA-01-1234", 50)
	svc := newBookingService(store)

	booking, err := svc.Create(context.Background(), Identity{UserID: customer.ID, Role: domain.RoleCustomer}, CreateBookingInput{
		CustomerID:    other.ID, // ignored for customers
		VehicleID:     vehicle.ID,
		RentStartDate: futureDate(2),
		RentEndDate:   futureDate(4),
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if booking.CustomerID != customer.ID {
		t.Fatalf("customer must book for themselves, got customer %s", booking.CustomerID)
	}
}

func TestAdminBooksOnBehalfOfCustomer(t *testing.T) {
	store := newMemStore()
	admin := store.addUser("Admin", "admin@example.com", domain.RoleAdmin)
	customer := store.addUser("Jane", "jane@example.com", domain.RoleCustomer)
	vehicle := store.addVehicle("Corolla", "KA-01-1234", 50)
	svc := newBookingService(store)

	booking, err := svc.Create(context.Background(), Identity{UserID: admin.ID, Role: domain.RoleAdmin}, CreateBookingInput{
		CustomerID:    customer.ID,
		VehicleID:     vehicle.ID,
		RentStartDate: futureDate(2),
		RentEndDate:   futureDate(4),
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if booking.CustomerID != customer.ID {
		t.Fatalf("expected booking for %s, got %s", customer.ID, booking.CustomerID)
	}
}

func TestListScopedByRole(t *testing.T) {
	store := newMemStore()
	jane := store.addUser("Jane", "jane@example.com", domain.RoleCustomer)
	bob := store.addUser("Bob", "bob@example.com", domain.RoleCustomer)
	v1 := store.addVehicle("Corolla", "KA-01-1234", 50)
	v2 := store.addVehicle("Swift", "KA-02-5678", 40)
	store.addBooking(jane.ID, v1.ID, futureDate(2), futureDate(4), domain.BookingActive)
	store.addBooking(bob.ID, v2.ID, futureDate(2), futureDate(4), domain.BookingActive)
	svc := newBookingService(store)

	all, err := svc.List(context.Background(), Identity{UserID: "admin", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected admin to see 2 bookings, got %d", len(all))
	}

	own, err := svc.List(context.Background(), Identity{UserID: jane.ID, Role: domain.RoleCustomer})
	if err != nil {
		t.Fatalf("customer list: %v", err)
	}
	if len(own) != 1 || own[0].CustomerID != jane.ID {
		t.Fatalf("expected customer to see only their booking, got %d", len(own))
	}

	if _, err := svc.List(context.Background(), Identity{Role: domain.RoleCustomer}); !domain.IsKind(err, domain.KindUnauthorized) {
		t.Fatalf("expected unauthorized for empty identity, got %v", err)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	store := newMemStore()
	jane := store.addUser("Jane", "jane@example.com", domain.RoleCustomer)
	bob := store.addUser("Bob", "bob@example.com", domain.RoleCustomer)
	vehicle := store.addVehicle("Corolla", "KA-01-1234", 50)
	booking := store.addBooking(jane.ID, vehicle.ID, futureDate(2), futureDate(4), domain.BookingActive)
	svc := newBookingService(store)

	if _, err := svc.Get(context.Background(), Identity{UserID: bob.ID, Role: domain.RoleCustomer}, booking.ID); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}
	if _, err := svc.Get(context.Background(), Identity{UserID: jane.ID, Role: domain.RoleCustomer}, booking.ID); err != nil {
		t.Fatalf("owner read failed: %v", err)
	}
	if _, err := svc.Get(context.Background(), Identity{UserID: "root", Role: domain.RoleAdmin}, booking.ID); err != nil {
		t.Fatalf("admin read failed: %v", err)
	}
}

func TestCustomerCancelBeforeStart(t *testing.T) {
	store := newMemStore()
	jane := store.addUser("Jane", "jane@example.com", domain.RoleCustomer)
	vehicle := store.addVehicle("Corolla", "KA-01-1234", 50)
	booking := store.addBooking(jane.ID, vehicle.ID, futureDate(2), futureDate(4), domain.BookingActive)
	svc := newBookingService(store)

	cancelled := domain.BookingCancelled
	updated, err := svc.Update(context.Background(), Identity{UserID: jane.ID, Role: domain.RoleCustomer}, booking.ID, domain.BookingUpdate{Status: &cancelled})
	if err != nil {
		t.Fatalf("cancel before start: %v", err)
	}
	if updated.Status != domain.BookingCancelled {
		t.Fatalf("expected cancelled, got %s", updated.Status)
	}

	v, _ := memVehicles{store}.GetByID(context.Background(), vehicle.ID)
	if v.AvailabilityStatus != domain.VehicleAvailable {
		t.Fatalf("expected vehicle freed after cancel, got %s", v.AvailabilityStatus)
	}
}

func TestCustomerCannotCancelAfterStart(t *testing.T) {
	store := newMemStore()
	jane := store.addUser("Jane", "jane@example.com", domain.RoleCustomer)
	vehicle := store.addVehicle("Corolla", "KA-01-1234", 50)
	booking := store.addBooking(jane.ID, vehicle.ID, time.Now().AddDate(0, 0, -1), futureDate(2), domain.BookingActive)
	svc := newBookingService(store)

	cancelled := domain.BookingCancelled
	_, err := svc.Update(context.Background(), Identity{UserID: jane.ID, Role: domain.RoleCustomer}, booking.ID, domain.BookingUpdate{Status: &cancelled})
	if !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("expected forbidden after rent start, got %v", err)
	}
}

func TestAdminCancelAfterStart(t *testing.T) {
	store := newMemStore()
	jane := store.addUser("Jane", "jane@example.com", domain.RoleCustomer)
	vehicle := store.addVehicle("Corolla", "KA-01-1234", 50)
	booking := store.addBooking(jane.ID, vehicle.ID, time.Now().AddDate(0, 0, -1), futureDate(2), domain.BookingActive)
	svc := newBookingService(store)

	cancelled := domain.BookingCancelled
	if _, err := svc.Update(context.Background(), Identity{UserID: "root", Role: domain.RoleAdmin}, booking.ID, domain.BookingUpdate{Status: &cancelled}); err != nil {
		t.Fatalf("admin cancel after start: %v", err)
	}
}

func TestReturnedIsAdminOnly(t *testing.T) {
	store := newMemStore()
	jane := store.addUser("Jane", "jane@example.com", domain.RoleCustomer)
	vehicle := store.addVehicle("Corolla", "KA-01-1234", 50)
	booking := store.addBooking(jane.ID, vehicle.ID, futureDate(2), futureDate(4), domain.BookingActive)
	svc := newBookingService(store)

	returned := domain.BookingReturned
	_, err := svc.Update(context.Background(), Identity{UserID: jane.ID, Role: domain.RoleCustomer}, booking.ID, domain.BookingUpdate{Status: &returned})
	if !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("expected forbidden for customer return, got %v", err)
	}

	updated, err := svc.Update(context.Background(), Identity{UserID: "root", Role: domain.RoleAdmin}, booking.ID, domain.BookingUpdate{Status: &returned})
	if err != nil {
		t.Fatalf("admin return: %v", err)
	}
	if updated.Status != domain.BookingReturned {
		t.Fatalf("expected returned, got %s", updated.Status)
	}

	v, _ := memVehicles{store}.GetByID(context.Background(), vehicle.ID)
	if v.AvailabilityStatus != domain.VehicleAvailable {
		t.Fatalf("expected vehicle freed after return, got %s", v.AvailabilityStatus)
	}
}

func TestTerminalBookingRejectsFurtherTransitions(t *testing.T) {
	store := newMemStore()
	jane := store.addUser("Jane", "jane@example.com", domain.RoleCustomer)
	vehicle := store.addVehicle("Corolla", "KA-01-1234", 50)
	booking := store.addBooking(jane.ID, vehicle.ID, futureDate(2), futureDate(4), domain.BookingCancelled)
	svc := newBookingService(store)

	returned := domain.BookingReturned
	_, err := svc.Update(context.Background(), Identity{UserID: "root", Role: domain.RoleAdmin}, booking.ID, domain.BookingUpdate{Status: &returned})
	if !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("expected conflict on terminal booking, got %v", err)
	}
}

func TestRepeatedReturnDoesNotFreeVehicleAgain(t *testing.T) {
	store := newMemStore()
	jane := store.addUser("Jane", "jane@example.com", domain.RoleCustomer)
	bob := store.addUser("Bob", "bob@example.com", domain.RoleCustomer)
	vehicle := store.addVehicle("Corolla", "KA-01-1234", 50)
	first := store.addBooking(jane.ID, vehicle.ID, futureDate(2), futureDate(4), domain.BookingActive)
	svc := newBookingService(store)

	admin := Identity{UserID: "root", Role: domain.RoleAdmin}
	returned := domain.BookingReturned
	if _, err := svc.Update(context.Background(), admin, first.ID, domain.BookingUpdate{Status: &returned}); err != nil {
		t.Fatalf("first return: %v", err)
	}

	// The freed vehicle is booked again by another customer.
	if _, err := svc.Create(context.Background(), Identity{UserID: bob.ID, Role: domain.RoleCustomer}, CreateBookingInput{
		VehicleID:     vehicle.ID,
		RentStartDate: futureDate(6),
		RentEndDate:   futureDate(8),
	}); err != nil {
		t.Fatalf("second booking: %v", err)
	}

	// Re-submitting the same status on the closed booking must not reach the
	// store and free the vehicle out from under the new active booking.
	_, err := svc.Update(context.Background(), admin, first.ID, domain.BookingUpdate{Status: &returned})
	if !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("expected conflict on repeated return, got %v", err)
	}

	v, _ := memVehicles{store}.GetByID(context.Background(), vehicle.ID)
	if v.AvailabilityStatus != domain.VehicleBooked {
		t.Fatalf("vehicle must stay booked for the new active booking, got %s", v.AvailabilityStatus)
	}
}

func TestTerminalBookingRejectsDateUpdate(t *testing.T) {
	store := newMemStore()
	jane := store.addUser("Jane", "jane@example.com", domain.RoleCustomer)
	vehicle := store.addVehicle("Corolla", "KA-01-1234", 50)
	booking := store.addBooking(jane.ID, vehicle.ID, futureDate(2), futureDate(4), domain.BookingCancelled)
	svc := newBookingService(store)

	newEnd := futureDate(6)
	_, err := svc.Update(context.Background(), Identity{UserID: jane.ID, Role: domain.RoleCustomer}, booking.ID, domain.BookingUpdate{RentEndDate: &newEnd})
	if !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("expected conflict for date update on closed booking, got %v", err)
	}

	got, _ := memBookings{store}.GetByID(context.Background(), booking.ID)
	if !got.RentEndDate.Equal(booking.RentEndDate) {
		t.Fatalf("closed booking dates must be untouched")
	}
}

func TestTerminalTransitionRejectsDateChange(t *testing.T) {
	store := newMemStore()
	jane := store.addUser("Jane", "jane@example.com", domain.RoleCustomer)
	vehicle := store.addVehicle("Corolla", "KA-01-1234", 50)
	booking := store.addBooking(jane.ID, vehicle.ID, futureDate(2), futureDate(4), domain.BookingActive)
	svc := newBookingService(store)

	cancelled := domain.BookingCancelled
	newEnd := futureDate(6)
	_, err := svc.Update(context.Background(), Identity{UserID: jane.ID, Role: domain.RoleCustomer}, booking.ID, domain.BookingUpdate{
		Status:      &cancelled,
		RentEndDate: &newEnd,
	})
	if !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for dates on a closing update, got %v", err)
	}
}

func TestUpdateDatesValidated(t *testing.T) {
	store := newMemStore()
	jane := store.addUser("Jane", "jane@example.com", domain.RoleCustomer)
	vehicle := store.addVehicle("Corolla", "KA-01-1234", 50)
	booking := store.addBooking(jane.ID, vehicle.ID, futureDate(2), futureDate(4), domain.BookingActive)
	svc := newBookingService(store)

	badEnd := futureDate(1)
	_, err := svc.Update(context.Background(), Identity{UserID: jane.ID, Role: domain.RoleCustomer}, booking.ID, domain.BookingUpdate{RentEndDate: &badEnd})
	if !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for end before start, got %v", err)
	}

	goodEnd := futureDate(6)
	updated, err := svc.Update(context.Background(), Identity{UserID: jane.ID, Role: domain.RoleCustomer}, booking.ID, domain.BookingUpdate{RentEndDate: &goodEnd})
	if err != nil {
		t.Fatalf("date update: %v", err)
	}
	if !updated.RentEndDate.Equal(goodEnd) {
		t.Fatalf("expected end %v, got %v", goodEnd, updated.RentEndDate)
	}
}

func TestProcessOverdueReturnsAndFrees(t *testing.T) {
	store := newMemStore()
	jane := store.addUser("Jane", "jane@example.com", domain.RoleCustomer)
	v1 := store.addVehicle("Corolla", "KA-01-1234", 50)
	v2 := store.addVehicle("Swift", "KA-02-5678", 40)
	store.addBooking(jane.ID, v1.ID, time.Now().AddDate(0, 0, -10), time.Now().AddDate(0, 0, -5), domain.BookingActive)
	store.addBooking(jane.ID, v2.ID, futureDate(2), futureDate(4), domain.BookingActive)
	svc := newBookingService(store)

	result, err := svc.ProcessOverdue(context.Background())
	if err != nil {
		t.Fatalf("process overdue: %v", err)
	}
	if result.BookingsReturned != 1 || result.VehiclesFreed != 1 {
		t.Fatalf("expected 1 returned / 1 freed, got %+v", result)
	}

	overdueVehicle, _ := memVehicles{store}.GetByID(context.Background(), v1.ID)
	if overdueVehicle.AvailabilityStatus != domain.VehicleAvailable {
		t.Fatalf("expected overdue vehicle freed, got %s", overdueVehicle.AvailabilityStatus)
	}
	current, _ := memVehicles{store}.GetByID(context.Background(), v2.ID)
	if current.AvailabilityStatus != domain.VehicleBooked {
		t.Fatalf("current booking must keep its vehicle booked")
	}

	// Idempotent: a second pass changes nothing.
	again, err := svc.ProcessOverdue(context.Background())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if again.BookingsReturned != 0 || again.VehiclesFreed != 0 {
		t.Fatalf("expected no-op second sweep, got %+v", again)
	}
}
