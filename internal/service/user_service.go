package service

import (
	"context"
	"log/slog"

	"github.com/yourorg/rentwheels/internal/domain"
)

// UserService handles account reads, profile updates and guarded deletion.
type UserService struct {
	users  domain.UserRepository
	logger *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(users domain.UserRepository, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}

	return &UserService{
		users:  users,
		logger: logger,
	}
}

// List returns all users. Admin only; enforced here so every entry point
// shares the check.
func (s *UserService) List(ctx context.Context, caller Identity) ([]*domain.User, error) {
	if !caller.IsAdmin() {
		return nil, domain.E(domain.KindForbidden, "only admin can list users")
	}
	return s.users.List(ctx)
}

// Get returns one user; customers may only read their own profile.
func (s *UserService) Get(ctx context.Context, caller Identity, id string) (*domain.User, error) {
	if !caller.IsAdmin() && caller.UserID != id {
		return nil, domain.E(domain.KindForbidden, "you can only view your own profile")
	}
	return s.users.GetByID(ctx, id)
}

// Update applies a partial profile update. Customers may only update their
// own profile and may not change their role.
func (s *UserService) Update(ctx context.Context, caller Identity, id string, upd domain.UserUpdate) (*domain.User, error) {
	existing, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !caller.IsAdmin() && caller.UserID != id {
		return nil, domain.E(domain.KindForbidden, "you can only update your own profile")
	}
	if !caller.IsAdmin() && upd.Role != nil && *upd.Role != existing.Role {
		return nil, domain.E(domain.KindForbidden, "you cannot change your role")
	}
	if upd.Role != nil && !domain.ValidRole(*upd.Role) {
		return nil, domain.Ef(domain.KindValidation, "unknown role %q", *upd.Role)
	}

	return s.users.UpdateFields(ctx, id, upd)
}

// Delete removes an account. Admin only, and blocked while the user still
// owns an active booking.
func (s *UserService) Delete(ctx context.Context, caller Identity, id string) error {
	if !caller.IsAdmin() {
		return domain.E(domain.KindForbidden, "only admin can delete users")
	}

	if _, err := s.users.GetByID(ctx, id); err != nil {
		return err
	}

	hasActive, err := s.users.HasActiveBookings(ctx, id)
	if err != nil {
		return err
	}
	if hasActive {
		return domain.E(domain.KindConflict, "cannot delete user with active bookings")
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("user deleted", slog.String("user_id", id))
	return nil
}
