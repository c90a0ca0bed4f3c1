package subscription

import (
	"fmt"
	"time"
)

// Subscription represents the recurring-billing status record for an owner.
// It is distinct from one-time entitlement grants: it tracks the provider's
// subscription lifecycle and the current billing period used for
// period-window quota accounting.
type Subscription struct {
	id                 uint
	userID             uint
	planCode           string
	status             Status
	providerSubID      string
	customerID         string
	priceID            string
	currentPeriodStart *time.Time
	currentPeriodEnd   *time.Time
	canceledAt         *time.Time
	createdAt          time.Time
	updatedAt          time.Time
	version            int
}

// NewSubscription creates a subscription record from a provider event.
// Period dates may be nil when the triggering event did not carry them; a
// later payment-succeeded event fills them in.
func NewSubscription(
	userID uint,
	planCode string,
	status Status,
	providerSubID string,
	periodStart, periodEnd *time.Time,
) (*Subscription, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if providerSubID == "" {
		return nil, fmt.Errorf("provider subscription ID is required")
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid subscription status: %s", status)
	}
	if periodStart != nil && periodEnd != nil && periodEnd.Before(*periodStart) {
		return nil, fmt.Errorf("period end must not be before period start")
	}

	now := time.Now().UTC()
	return &Subscription{
		userID:             userID,
		planCode:           planCode,
		status:             status,
		providerSubID:      providerSubID,
		currentPeriodStart: periodStart,
		currentPeriodEnd:   periodEnd,
		createdAt:          now,
		updatedAt:          now,
		version:            1,
	}, nil
}

// ReconstructParams carries persisted state back into the aggregate.
type ReconstructParams struct {
	ID                 uint
	UserID             uint
	PlanCode           string
	Status             Status
	ProviderSubID      string
	CustomerID         string
	PriceID            string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CanceledAt         *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Version            int
}

// Reconstruct rebuilds a subscription from persistence.
func Reconstruct(p ReconstructParams) (*Subscription, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("subscription ID cannot be zero")
	}
	if p.UserID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if p.ProviderSubID == "" {
		return nil, fmt.Errorf("provider subscription ID is required")
	}
	if !p.Status.IsValid() {
		return nil, fmt.Errorf("invalid subscription status: %s", p.Status)
	}

	return &Subscription{
		id:                 p.ID,
		userID:             p.UserID,
		planCode:           p.PlanCode,
		status:             p.Status,
		providerSubID:      p.ProviderSubID,
		customerID:         p.CustomerID,
		priceID:            p.PriceID,
		currentPeriodStart: p.CurrentPeriodStart,
		currentPeriodEnd:   p.CurrentPeriodEnd,
		canceledAt:         p.CanceledAt,
		createdAt:          p.CreatedAt,
		updatedAt:          p.UpdatedAt,
		version:            p.Version,
	}, nil
}

func (s *Subscription) ID() uint                        { return s.id }
func (s *Subscription) UserID() uint                    { return s.userID }
func (s *Subscription) PlanCode() string                { return s.planCode }
func (s *Subscription) Status() Status                  { return s.status }
func (s *Subscription) ProviderSubID() string           { return s.providerSubID }
func (s *Subscription) CustomerID() string              { return s.customerID }
func (s *Subscription) PriceID() string                 { return s.priceID }
func (s *Subscription) CurrentPeriodStart() *time.Time  { return s.currentPeriodStart }
func (s *Subscription) CurrentPeriodEnd() *time.Time    { return s.currentPeriodEnd }
func (s *Subscription) CanceledAt() *time.Time          { return s.canceledAt }
func (s *Subscription) CreatedAt() time.Time            { return s.createdAt }
func (s *Subscription) UpdatedAt() time.Time            { return s.updatedAt }
func (s *Subscription) Version() int                    { return s.version }

// SetID sets the subscription ID (only for persistence layer use)
func (s *Subscription) SetID(newID uint) error {
	if s.id != 0 {
		return fmt.Errorf("subscription ID is already set")
	}
	if newID == 0 {
		return fmt.Errorf("subscription ID cannot be zero")
	}
	s.id = newID
	return nil
}

// MergeParams holds the fields a provider event may update. Zero values
// mean "not present in this event" and leave the stored value untouched,
// so a partial-information event can never destroy known good state.
type MergeParams struct {
	PlanCode    string
	Status      Status
	CustomerID  string
	PriceID     string
	PeriodStart *time.Time
	PeriodEnd   *time.Time
}

// Merge applies only the non-zero fields of the update. Re-processing an
// old event after a newer one was already applied is safe: fields absent
// from the stale event stay as they are, and status is re-derived by
// readers rather than trusted blindly.
func (s *Subscription) Merge(p MergeParams) error {
	if p.Status != "" && !p.Status.IsValid() {
		return fmt.Errorf("invalid subscription status: %s", p.Status)
	}
	if p.PeriodStart != nil && p.PeriodEnd != nil && p.PeriodEnd.Before(*p.PeriodStart) {
		return fmt.Errorf("period end must not be before period start")
	}

	if p.PlanCode != "" {
		s.planCode = p.PlanCode
	}
	if p.Status != "" {
		s.status = p.Status
		if p.Status == StatusCanceled && s.canceledAt == nil {
			now := time.Now().UTC()
			s.canceledAt = &now
		}
	}
	if p.CustomerID != "" {
		s.customerID = p.CustomerID
	}
	if p.PriceID != "" {
		s.priceID = p.PriceID
	}
	if p.PeriodStart != nil {
		s.currentPeriodStart = p.PeriodStart
	}
	if p.PeriodEnd != nil {
		s.currentPeriodEnd = p.PeriodEnd
	}

	s.touch()
	return nil
}

// MarkReplaced demotes the subscription because another one became active
// for the same owner.
func (s *Subscription) MarkReplaced() {
	if s.status == StatusReplaced {
		return
	}
	s.status = StatusReplaced
	s.touch()
}

// IsActive reports whether the subscription grants premium access at the
// given instant: provider status active and the billing period not lapsed.
func (s *Subscription) IsActive(now time.Time) bool {
	if s.status != StatusActive {
		return false
	}
	if s.currentPeriodEnd != nil && !now.Before(*s.currentPeriodEnd) {
		return false
	}
	return true
}

func (s *Subscription) touch() {
	s.updatedAt = time.Now().UTC()
	s.version++
}
