package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yourorg/rentwheels/internal/domain"
)

// memStore is an in-memory stand-in for the Postgres repositories, keeping
// the same semantics the transactional store enforces: inclusive overlap
// bounds, availability flips paired with booking writes, and terminal-only
// finalize.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*domain.User
	vehicles map[string]*domain.Vehicle
	bookings map[string]*domain.Booking
	seq      int
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*domain.User{},
		vehicles: map[string]*domain.Vehicle{},
		bookings: map[string]*domain.Booking{},
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) addUser(name, email string, role domain.Role) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &domain.User{
		ID:           s.nextID("user"),
		Name:         name,
		Email:        email,
		PasswordHash: "x",
		Role:         role,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	s.users[u.ID] = u
	return u
}

func (s *memStore) addVehicle(name, registration string, price float64) *domain.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := &domain.Vehicle{
		ID:                 s.nextID("vehicle"),
		Name:               name,
		Type:               domain.VehicleCar,
		RegistrationNumber: registration,
		DailyRentPrice:     price,
		AvailabilityStatus: domain.VehicleAvailable,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
	s.vehicles[v.ID] = v
	return v
}

func (s *memStore) addBooking(customerID, vehicleID string, start, end time.Time, status domain.BookingStatus) *domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := &domain.Booking{
		ID:            s.nextID("booking"),
		CustomerID:    customerID,
		VehicleID:     vehicleID,
		RentStartDate: start,
		RentEndDate:   end,
		Status:        status,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	s.bookings[b.ID] = b
	if status == domain.BookingActive {
		if v, ok := s.vehicles[vehicleID]; ok {
			v.AvailabilityStatus = domain.VehicleBooked
		}
	}
	return b
}

// overlaps uses the same inclusive bounds as the SQL predicate.
func overlaps(b *domain.Booking, start, end time.Time) bool {
	return !b.RentStartDate.After(end) && !b.RentEndDate.Before(start)
}

// memUsers implements domain.UserRepository.
type memUsers struct{ *memStore }

func (m memUsers) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return domain.E(domain.KindConflict, "user already exists with this email")
		}
	}
	if user.ID == "" {
		user.ID = m.nextID("user")
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = user
	return nil
}

func (m memUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "user not found")
	}
	cp := *u
	return &cp, nil
}

func (m memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.E(domain.KindNotFound, "user not found")
}

func (m memUsers) List(ctx context.Context) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (m memUsers) UpdateFields(ctx context.Context, id string, upd domain.UserUpdate) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "user not found")
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

func (m memUsers) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.E(domain.KindNotFound, "user not found")
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now()
	return nil
}

func (m memUsers) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return domain.E(domain.KindNotFound, "user not found")
	}
	delete(m.users, id)
	return nil
}

func (m memUsers) HasActiveBookings(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.CustomerID == id && b.Status == domain.BookingActive {
			return true, nil
		}
	}
	return false, nil
}

// memVehicles implements domain.VehicleRepository.
type memVehicles struct{ *memStore }

func (m memVehicles) Create(ctx context.Context, vehicle *domain.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vehicles {
		if v.RegistrationNumber == vehicle.RegistrationNumber {
			return domain.E(domain.KindConflict, "vehicle with this registration number already exists")
		}
	}
	if vehicle.ID == "" {
		vehicle.ID = m.nextID("vehicle")
	}
	if vehicle.AvailabilityStatus == "" {
		vehicle.AvailabilityStatus = domain.VehicleAvailable
	}
	vehicle.CreatedAt = time.Now()
	vehicle.UpdatedAt = vehicle.CreatedAt
	m.vehicles[vehicle.ID] = vehicle
	return nil
}

func (m memVehicles) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vehicles[id]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "vehicle not found")
	}
	cp := *v
	return &cp, nil
}

func (m memVehicles) GetByRegistration(ctx context.Context, registration string) (*domain.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vehicles {
		if v.RegistrationNumber == registration {
			cp := *v
			return &cp, nil
		}
	}
	return nil, domain.E(domain.KindNotFound, "vehicle not found")
}

func (m memVehicles) List(ctx context.Context) ([]*domain.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Vehicle, 0, len(m.vehicles))
	for _, v := range m.vehicles {
		cp := *v
		out = append(out, &cp)
	}
	return out, nil
}

func (m memVehicles) ListAvailable(ctx context.Context) ([]*domain.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Vehicle
	for _, v := range m.vehicles {
		if v.AvailabilityStatus == domain.VehicleAvailable {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m memVehicles) UpdateFields(ctx context.Context, id string, upd domain.VehicleUpdate) (*domain.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vehicles[id]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "vehicle not found")
	}
	if upd.Name != nil {
		v.Name = *upd.Name
	}
	if upd.Type != nil {
		v.Type = *upd.Type
	}
	if upd.RegistrationNumber != nil {
		v.RegistrationNumber = *upd.RegistrationNumber
	}
	if upd.DailyRentPrice != nil {
		v.DailyRentPrice = *upd.DailyRentPrice
	}
	if upd.AvailabilityStatus != nil {
		v.AvailabilityStatus = *upd.AvailabilityStatus
	}
	v.UpdatedAt = time.Now()
	cp := *v
	return &cp, nil
}

func (m memVehicles) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vehicles[id]; !ok {
		return domain.E(domain.KindNotFound, "vehicle not found")
	}
	delete(m.vehicles, id)
	return nil
}

func (m memVehicles) HasActiveBookings(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.VehicleID == id && b.Status == domain.BookingActive {
			return true, nil
		}
	}
	return false, nil
}

// memBookings implements domain.BookingRepository.
type memBookings struct{ *memStore }

func (m memBookings) CreateActive(ctx context.Context, booking *domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.vehicles[booking.VehicleID]
	if !ok {
		return domain.E(domain.KindNotFound, "vehicle not found")
	}
	if v.AvailabilityStatus != domain.VehicleAvailable {
		return domain.E(domain.KindConflict, "vehicle is not available for booking")
	}
	for _, b := range m.bookings {
		if b.VehicleID == booking.VehicleID && b.Status == domain.BookingActive &&
			overlaps(b, booking.RentStartDate, booking.RentEndDate) {
			return domain.E(domain.KindConflict, "vehicle is already booked for the selected dates")
		}
	}

	if booking.ID == "" {
		booking.ID = m.nextID("booking")
	}
	booking.Status = domain.BookingActive
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt
	m.bookings[booking.ID] = booking
	v.AvailabilityStatus = domain.VehicleBooked
	return nil
}

func (m memBookings) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "booking not found")
	}
	cp := *b
	return &cp, nil
}

func (m memBookings) ListAll(ctx context.Context) ([]*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Booking, 0, len(m.bookings))
	for _, b := range m.bookings {
		cp := *b
		out = append(out, &cp)
	}
	return out, nil
}

func (m memBookings) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Booking
	for _, b := range m.bookings {
		if b.CustomerID == customerID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m memBookings) CountOverlapping(ctx context.Context, vehicleID string, start, end time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, b := range m.bookings {
		if b.VehicleID == vehicleID && b.Status == domain.BookingActive && overlaps(b, start, end) {
			count++
		}
	}
	return count, nil
}

func (m memBookings) UpdateFields(ctx context.Context, id string, upd domain.BookingUpdate) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "booking not found")
	}
	if upd.RentStartDate != nil {
		b.RentStartDate = *upd.RentStartDate
	}
	if upd.RentEndDate != nil {
		b.RentEndDate = *upd.RentEndDate
	}
	if upd.Status != nil {
		b.Status = *upd.Status
	}
	b.UpdatedAt = time.Now()
	cp := *b
	return &cp, nil
}

func (m memBookings) FinalizeStatus(ctx context.Context, id string, status domain.BookingStatus) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !status.Terminal() {
		return nil, domain.Ef(domain.KindValidation, "status %q is not terminal", status)
	}
	b, ok := m.bookings[id]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "booking not found")
	}
	b.Status = status
	b.UpdatedAt = time.Now()
	if v, ok := m.vehicles[b.VehicleID]; ok {
		v.AvailabilityStatus = domain.VehicleAvailable
	}
	cp := *b
	return &cp, nil
}

func (m memBookings) SweepOverdue(ctx context.Context, today time.Time) (domain.SweepResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result domain.SweepResult
	freed := map[string]bool{}
	for _, b := range m.bookings {
		if b.Status == domain.BookingActive && b.RentEndDate.Before(today) {
			b.Status = domain.BookingReturned
			b.UpdatedAt = time.Now()
			result.BookingsReturned++
			freed[b.VehicleID] = true
		}
	}
	for id := range freed {
		if v, ok := m.vehicles[id]; ok && v.AvailabilityStatus == domain.VehicleBooked {
			v.AvailabilityStatus = domain.VehicleAvailable
			result.VehiclesFreed++
		}
	}
	return result, nil
}

// newBookingService wires a BookingService over the shared memStore with no
// hub or catalog.
func newBookingService(s *memStore) *BookingService {
	return NewBookingService(memBookings{s}, memVehicles{s}, memUsers{s}, nil, nil, nil)
}
