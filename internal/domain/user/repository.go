package user

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned when a user lookup finds nothing.
var ErrUserNotFound = errors.New("user not found")

// Repository defines the persistence contract for users.
type Repository interface {
	// UpsertByEmail returns the existing user for the email or creates one.
	UpsertByEmail(ctx context.Context, email string) (*User, error)

	// GetByID retrieves a user by local ID. Returns nil without error when absent.
	GetByID(ctx context.Context, id uint) (*User, error)

	// GetBySID retrieves a user by public identifier.
	GetBySID(ctx context.Context, sid string) (*User, error)

	// GetByProviderCustomerID maps a provider customer reference to a user.
	// Returns nil without error when absent.
	GetByProviderCustomerID(ctx context.Context, customerID string) (*User, error)

	// Update persists aggregate changes (provider customer link).
	Update(ctx context.Context, u *User) error
}
