package plan

import (
	"fmt"
	"time"
)

// Plan is a catalog entry for a purchasable tier. The provider price ID maps
// a billing-event price reference back to a local plan code, which makes the
// catalog the third-ranked source in plan resolution (after price and
// product metadata).
type Plan struct {
	id             uint
	code           string
	name           string
	quotaTotal     int
	priceCents     int64
	currency       string
	providerPrice  string
	validityMonths int
	features       []string
	active         bool
	createdAt      time.Time
	updatedAt      time.Time
}

// NewPlan creates a catalog entry.
func NewPlan(code, name string, quotaTotal int, priceCents int64, currency, providerPrice string, validityMonths int) (*Plan, error) {
	if code == "" {
		return nil, fmt.Errorf("plan code is required")
	}
	if quotaTotal <= 0 {
		return nil, fmt.Errorf("quota total must be positive")
	}
	if priceCents < 0 {
		return nil, fmt.Errorf("price cannot be negative")
	}
	if validityMonths <= 0 {
		validityMonths = 12
	}

	now := time.Now().UTC()
	return &Plan{
		code:           code,
		name:           name,
		quotaTotal:     quotaTotal,
		priceCents:     priceCents,
		currency:       currency,
		providerPrice:  providerPrice,
		validityMonths: validityMonths,
		active:         true,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// Reconstruct rebuilds a plan from persistence.
func Reconstruct(
	id uint,
	code, name string,
	quotaTotal int,
	priceCents int64,
	currency, providerPrice string,
	validityMonths int,
	features []string,
	active bool,
	createdAt, updatedAt time.Time,
) (*Plan, error) {
	if id == 0 {
		return nil, fmt.Errorf("plan ID cannot be zero")
	}
	if code == "" {
		return nil, fmt.Errorf("plan code is required")
	}

	return &Plan{
		id:             id,
		code:           code,
		name:           name,
		quotaTotal:     quotaTotal,
		priceCents:     priceCents,
		currency:       currency,
		providerPrice:  providerPrice,
		validityMonths: validityMonths,
		features:       features,
		active:         active,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}, nil
}

func (p *Plan) ID() uint              { return p.id }
func (p *Plan) Code() string          { return p.code }
func (p *Plan) Name() string          { return p.name }
func (p *Plan) QuotaTotal() int       { return p.quotaTotal }
func (p *Plan) PriceCents() int64     { return p.priceCents }
func (p *Plan) Currency() string      { return p.currency }
func (p *Plan) ProviderPrice() string { return p.providerPrice }
func (p *Plan) ValidityMonths() int   { return p.validityMonths }
func (p *Plan) Features() []string    { return p.features }
func (p *Plan) IsActive() bool        { return p.active }
func (p *Plan) CreatedAt() time.Time  { return p.createdAt }
func (p *Plan) UpdatedAt() time.Time  { return p.updatedAt }

// SetFeatures replaces the marketing feature list shown in the catalog.
func (p *Plan) SetFeatures(features []string) {
	p.features = features
	p.updatedAt = time.Now().UTC()
}

// SetID sets the plan ID (only for persistence layer use)
func (p *Plan) SetID(id uint) error {
	if p.id != 0 {
		return fmt.Errorf("plan ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("plan ID cannot be zero")
	}
	p.id = id
	return nil
}

// ValidUntilFrom computes the expiry of an entitlement purchased now.
func (p *Plan) ValidUntilFrom(now time.Time) time.Time {
	return now.AddDate(0, p.validityMonths, 0)
}
