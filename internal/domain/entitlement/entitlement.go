package entitlement

import (
	"fmt"
	"time"

	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/id"
)

// Entitlement represents a purchased, time-boxed quota grant. It is the
// aggregate root of the entitlement ledger: all quota mutation flows through
// its behavior methods, and the repository persists it atomically.
type Entitlement struct {
	id                uint
	sid               string
	userID            uint
	planCode          string
	quotaTotal        int
	remaining         int
	validUntil        time.Time
	status            Status
	checkoutSessionID string
	paymentIntentID   string
	customerID        string
	priceID           string
	createdAt         time.Time
	updatedAt         time.Time
	version           int
}

// NewEntitlement creates a freshly purchased entitlement with full quota.
// checkoutSessionID is the idempotency key: the repository enforces its
// uniqueness so duplicate deliveries of the same purchase event can never
// create a second grant.
func NewEntitlement(
	userID uint,
	planCode string,
	quotaTotal int,
	validUntil time.Time,
	checkoutSessionID string,
) (*Entitlement, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if planCode == "" {
		return nil, fmt.Errorf("plan code is required")
	}
	if quotaTotal <= 0 {
		return nil, fmt.Errorf("quota total must be positive")
	}
	if checkoutSessionID == "" {
		return nil, fmt.Errorf("checkout session ID is required")
	}

	now := time.Now().UTC()
	if !validUntil.After(now) {
		return nil, fmt.Errorf("valid until must be in the future")
	}

	return &Entitlement{
		sid:               id.MustGenerateWithPrefix(id.PrefixEntitlement, id.DefaultLength),
		userID:            userID,
		planCode:          planCode,
		quotaTotal:        quotaTotal,
		remaining:         quotaTotal,
		validUntil:        validUntil,
		status:            StatusActive,
		checkoutSessionID: checkoutSessionID,
		createdAt:         now,
		updatedAt:         now,
		version:           1,
	}, nil
}

// ReconstructParams carries persisted state back into the aggregate.
type ReconstructParams struct {
	ID                uint
	SID               string
	UserID            uint
	PlanCode          string
	QuotaTotal        int
	Remaining         int
	ValidUntil        time.Time
	Status            Status
	CheckoutSessionID string
	PaymentIntentID   string
	CustomerID        string
	PriceID           string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Version           int
}

// Reconstruct rebuilds an entitlement from persistence.
func Reconstruct(p ReconstructParams) (*Entitlement, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("entitlement ID cannot be zero")
	}
	if p.UserID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if p.PlanCode == "" {
		return nil, fmt.Errorf("plan code is required")
	}
	if !p.Status.IsValid() {
		return nil, fmt.Errorf("invalid entitlement status: %s", p.Status)
	}
	if p.QuotaTotal <= 0 {
		return nil, fmt.Errorf("quota total must be positive")
	}
	if p.Remaining < 0 || p.Remaining > p.QuotaTotal {
		return nil, fmt.Errorf("remaining %d outside [0, %d]", p.Remaining, p.QuotaTotal)
	}

	return &Entitlement{
		id:                p.ID,
		sid:               p.SID,
		userID:            p.UserID,
		planCode:          p.PlanCode,
		quotaTotal:        p.QuotaTotal,
		remaining:         p.Remaining,
		validUntil:        p.ValidUntil,
		status:            p.Status,
		checkoutSessionID: p.CheckoutSessionID,
		paymentIntentID:   p.PaymentIntentID,
		customerID:        p.CustomerID,
		priceID:           p.PriceID,
		createdAt:         p.CreatedAt,
		updatedAt:         p.UpdatedAt,
		version:           p.Version,
	}, nil
}

func (e *Entitlement) ID() uint                  { return e.id }
func (e *Entitlement) SID() string               { return e.sid }
func (e *Entitlement) UserID() uint              { return e.userID }
func (e *Entitlement) PlanCode() string          { return e.planCode }
func (e *Entitlement) QuotaTotal() int           { return e.quotaTotal }
func (e *Entitlement) Remaining() int            { return e.remaining }
func (e *Entitlement) ValidUntil() time.Time     { return e.validUntil }
func (e *Entitlement) Status() Status            { return e.status }
func (e *Entitlement) CheckoutSessionID() string { return e.checkoutSessionID }
func (e *Entitlement) PaymentIntentID() string   { return e.paymentIntentID }
func (e *Entitlement) CustomerID() string        { return e.customerID }
func (e *Entitlement) PriceID() string           { return e.priceID }
func (e *Entitlement) CreatedAt() time.Time      { return e.createdAt }
func (e *Entitlement) UpdatedAt() time.Time      { return e.updatedAt }
func (e *Entitlement) Version() int              { return e.version }

// SetID sets the entitlement ID (only for persistence layer use)
func (e *Entitlement) SetID(newID uint) error {
	if e.id != 0 {
		return fmt.Errorf("entitlement ID is already set")
	}
	if newID == 0 {
		return fmt.Errorf("entitlement ID cannot be zero")
	}
	e.id = newID
	return nil
}

// SetCorrelation attaches the remaining provider references after creation.
func (e *Entitlement) SetCorrelation(paymentIntentID, customerID, priceID string) {
	e.paymentIntentID = paymentIntentID
	e.customerID = customerID
	e.priceID = priceID
	e.touch()
}

// EffectiveStatus re-derives the status from remaining and validUntil at the
// given instant. The stored status of a replaced entitlement is preserved;
// everything else is recomputed, so a stale stored value can never grant
// access past expiry or exhaustion.
func (e *Entitlement) EffectiveStatus(now time.Time) Status {
	if e.status == StatusReplaced {
		return StatusReplaced
	}
	if !now.Before(e.validUntil) {
		return StatusExpired
	}
	if e.remaining <= 0 {
		return StatusQuotaExhausted
	}
	return StatusActive
}

// IsUsable reports whether a consume may target this entitlement right now.
// Expiry is evaluated first, then quota.
func (e *Entitlement) IsUsable(now time.Time) bool {
	return e.EffectiveStatus(now) == StatusActive
}

// Consume decrements remaining by one. Callers must hold the row lock for
// the whole read-decrement-write sequence; the aggregate only guards the
// arithmetic invariants.
func (e *Entitlement) Consume(now time.Time) error {
	switch e.EffectiveStatus(now) {
	case StatusExpired:
		return ErrEntitlementExpired
	case StatusReplaced:
		return ErrEntitlementReplaced
	case StatusQuotaExhausted:
		return ErrNoCapacity
	}

	e.remaining--
	if e.remaining <= 0 {
		e.remaining = 0
		e.status = StatusQuotaExhausted
	} else {
		e.status = StatusActive
	}
	e.touch()
	return nil
}

// Refund returns one unit of quota, reactivating the entitlement when it is
// still inside its validity window. Refunding an expired or replaced
// entitlement is a no-op: the window already lapsed and there is nothing to
// reactivate.
func (e *Entitlement) Refund(now time.Time) bool {
	if e.status == StatusReplaced || !now.Before(e.validUntil) {
		return false
	}
	if e.remaining >= e.quotaTotal {
		return false
	}
	e.remaining++
	e.status = StatusActive
	e.touch()
	return true
}

// Replace marks the entitlement as superseded by an upgrade purchase.
func (e *Entitlement) Replace() error {
	if e.status == StatusReplaced {
		return nil
	}
	e.status = StatusReplaced
	e.touch()
	return nil
}

// Expire marks the entitlement expired during a lazy sweep.
func (e *Entitlement) Expire() error {
	if e.status == StatusReplaced {
		return ErrEntitlementReplaced
	}
	if e.status == StatusExpired {
		return nil
	}
	e.status = StatusExpired
	e.touch()
	return nil
}

// UpgradeCredit computes the prorated credit in cents for an upgrade away
// from this entitlement: floor(remaining / quotaTotal * originalPrice),
// capped at the destination price. Integer floor favors the provider; the
// result is never negative and never exceeds destinationPriceCents.
func (e *Entitlement) UpgradeCredit(originalPriceCents, destinationPriceCents int64) int64 {
	if e.quotaTotal <= 0 || e.remaining <= 0 || originalPriceCents <= 0 {
		return 0
	}
	credit := int64(e.remaining) * originalPriceCents / int64(e.quotaTotal)
	if credit > destinationPriceCents {
		credit = destinationPriceCents
	}
	if credit < 0 {
		credit = 0
	}
	return credit
}

func (e *Entitlement) touch() {
	e.updatedAt = time.Now().UTC()
	e.version++
}
