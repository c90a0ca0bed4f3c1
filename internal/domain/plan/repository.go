package plan

import (
	"context"
	"errors"
)

// ErrPlanNotFound is returned when a plan code or price reference is unknown.
var ErrPlanNotFound = errors.New("plan not found")

// Repository defines the persistence contract for the plan catalog.
type Repository interface {
	// GetByCode retrieves a plan by its code (p99, p199, ...).
	GetByCode(ctx context.Context, code string) (*Plan, error)

	// GetByProviderPrice maps a provider price reference to its plan.
	GetByProviderPrice(ctx context.Context, providerPrice string) (*Plan, error)

	// ListActive returns the purchasable catalog.
	ListActive(ctx context.Context) ([]*Plan, error)

	// Save inserts or updates a catalog entry (used by seeding).
	Save(ctx context.Context, p *Plan) error
}
