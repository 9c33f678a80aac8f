package security

import (
	"fmt"
	"log/slog"

	"github.com/yourorg/rentwheels/internal/domain"
)

// Permission represents an action permission
type Permission string

const (
	PermCreateBooking   Permission = "create_booking"
	PermViewOwnBookings Permission = "view_own_bookings"
	PermViewAllBookings Permission = "view_all_bookings"
	PermManageVehicles  Permission = "manage_vehicles"
	PermManageUsers     Permission = "manage_users"
	PermRunSweep        Permission = "run_sweep"
	PermSubscribeEvents Permission = "subscribe_events"
)

// RolePermissions maps roles to their permissions. Customers act only on
// their own bookings; fleet and account management is admin territory.
var RolePermissions = map[domain.Role][]Permission{
	domain.RoleAdmin: {
		PermCreateBooking,
		PermViewOwnBookings,
		PermViewAllBookings,
		PermManageVehicles,
		PermManageUsers,
		PermRunSweep,
		PermSubscribeEvents,
	},
	domain.RoleCustomer: {
		PermCreateBooking,
		PermViewOwnBookings,
	},
}

// AuthorizationService handles role permission checks
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{
		logger: logger,
	}
}

// HasPermission checks if a role has a specific permission
func (as *AuthorizationService) HasPermission(role domain.Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}
	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// ValidatePermission validates that a role has a specific permission
func (as *AuthorizationService) ValidatePermission(role domain.Role, permission Permission) error {
	if !as.HasPermission(role, permission) {
		as.logger.Warn("permission denied",
			slog.String("role", string(role)),
			slog.String("permission", string(permission)),
		)
		return fmt.Errorf("permission denied: %s role cannot %s", role, permission)
	}
	return nil
}

// GetRolePermissions returns all permissions for a role
func (as *AuthorizationService) GetRolePermissions(role domain.Role) []Permission {
	return RolePermissions[role]
}
