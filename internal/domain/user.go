package domain

import (
	"context"
	"time"
)

// Role controls what a caller may do. There are exactly two roles.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	return r == RoleAdmin || r == RoleCustomer
}

// User represents a registered account. PasswordHash never leaves the
// store/service boundary; handlers serialize users through DTOs without it.
type User struct {
	ID           string
	Name         string
	Email        string // stored lowercase, unique
	PasswordHash string
	Phone        string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserUpdate is a partial update; nil fields are left untouched.
type UserUpdate struct {
	Name  *string
	Email *string
	Phone *string
	Role  *Role
}

// UserRepository defines data access for users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	UpdateFields(ctx context.Context, id string, upd UserUpdate) (*User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	Delete(ctx context.Context, id string) error
	HasActiveBookings(ctx context.Context, id string) (bool, error)
}
