package gateway

import (
	"context"
	"time"
)

// CheckoutSession is the provider-side view of a checkout, fetched when a
// webhook payload did not carry enough data or when closing the purchase
// loop after redirect.
type CheckoutSession struct {
	ID              string
	PaymentStatus   string
	AmountTotal     int64
	CustomerID      string
	CustomerEmail   string
	PaymentIntentID string
	SubscriptionID  string
	PriceID         string
	Metadata        map[string]string
}

// ProviderSubscription is the provider-side view of a recurring subscription.
type ProviderSubscription struct {
	ID          string
	Status      string
	CustomerID  string
	PriceID     string
	PlanHint    string
	PeriodStart *time.Time
	PeriodEnd   *time.Time
}

// CheckoutParams describes a new checkout to open against the provider.
type CheckoutParams struct {
	PriceID       string
	CustomerID    string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	CouponID      string
	Metadata      map[string]string
}

// CreatedCheckout is the provider handle for a newly opened checkout.
type CreatedCheckout struct {
	SessionID string
	URL       string
}

// Gateway is the capability surface this system needs from the billing
// provider. Implementations must honor ctx deadlines; resolution fallbacks
// depend on these calls being bounded.
type Gateway interface {
	RetrieveCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	RetrieveSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error)
	RetrieveCustomerEmail(ctx context.Context, customerID string) (string, error)

	EnsureCustomer(ctx context.Context, email string) (string, error)
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CreatedCheckout, error)

	// CreateOneShotCoupon issues a single-use, time-boxed discount used to
	// carry upgrade credit into the destination checkout.
	CreateOneShotCoupon(ctx context.Context, amountOffCents int64, currency string, redeemBy time.Time) (string, error)

	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}
