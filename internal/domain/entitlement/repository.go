package entitlement

import (
	"context"
	"time"
)

// ConsumeResult reports the outcome of an atomic quota decrement.
type ConsumeResult struct {
	EntitlementSID string
	PlanCode       string
	RemainingAfter int
}

// Repository defines the persistence contract for the entitlement ledger.
// Implementations own the locking discipline: ConsumeOne must run the whole
// select-decrement-write sequence inside one transaction with a row-level
// lock on the single candidate entitlement.
type Repository interface {
	// Create inserts a new entitlement. Insert-or-no-op on the unique
	// checkout session ID: a duplicate returns ErrDuplicateEntitlement and
	// leaves the existing row untouched.
	Create(ctx context.Context, e *Entitlement) error

	// Update persists aggregate state changes.
	Update(ctx context.Context, e *Entitlement) error

	// GetBySID retrieves an entitlement by its public identifier.
	GetBySID(ctx context.Context, sid string) (*Entitlement, error)

	// GetByCheckoutSessionID retrieves an entitlement by its idempotency key.
	GetByCheckoutSessionID(ctx context.Context, sessionID string) (*Entitlement, error)

	// GetActiveByUserID returns the usable entitlement with the earliest
	// expiry for the user, after lazily expiring rows whose validity window
	// has lapsed. Returns nil without error when the user has none.
	GetActiveByUserID(ctx context.Context, userID uint) (*Entitlement, error)

	// ConsumeOne atomically decrements one unit of quota from the user's
	// best usable entitlement. Returns ErrNoCapacity when nothing is
	// consumable.
	ConsumeOne(ctx context.Context, userID uint) (*ConsumeResult, error)

	// Refund returns one unit of quota to the entitlement when it is still
	// inside its validity window.
	Refund(ctx context.Context, sid string) error

	// MarkReplaced transitions the entitlement to replaced after an upgrade
	// purchase was confirmed.
	MarkReplaced(ctx context.Context, sid string) error

	// ExpireDue marks every non-terminal entitlement whose validity window
	// lapsed before now as expired. Returns the number of rows swept.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}
