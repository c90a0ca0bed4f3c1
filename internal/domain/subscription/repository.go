package subscription

import (
	"context"
	"time"
)

// UpsertParams describes a provider-driven insert-or-merge keyed by the
// provider subscription ID. Nil period pointers and empty strings mean the
// event did not carry the field.
type UpsertParams struct {
	UserID        uint
	ProviderSubID string
	PlanCode      string
	Status        Status
	CustomerID    string
	PriceID       string
	PeriodStart   *time.Time
	PeriodEnd     *time.Time
}

// Repository defines the persistence contract for subscriptions.
type Repository interface {
	// Upsert inserts or merges the row keyed by ProviderSubID, inside one
	// transaction that first demotes every other active subscription of the
	// owner to replaced. The single-active-per-owner invariant holds by
	// construction of this sequencing.
	Upsert(ctx context.Context, p UpsertParams) (*Subscription, error)

	// GetByProviderSubID retrieves a subscription by its provider key.
	// Returns nil without error when absent.
	GetByProviderSubID(ctx context.Context, providerSubID string) (*Subscription, error)

	// GetActiveByUserID returns the owner's active subscription with the
	// latest period end, or nil when there is none.
	GetActiveByUserID(ctx context.Context, userID uint) (*Subscription, error)

	// ListByUserID returns all subscription rows for the owner, newest first.
	ListByUserID(ctx context.Context, userID uint) ([]*Subscription, error)
}
