package events

import "time"

// Kind classifies a normalized provider notification.
type Kind string

const (
	KindCheckoutCompleted    Kind = "checkout_completed"
	KindInvoicePaid          Kind = "invoice_paid"
	KindInvoicePaymentFailed Kind = "invoice_payment_failed"
	KindSubscriptionUpdated  Kind = "subscription_updated"
	KindSubscriptionDeleted  Kind = "subscription_deleted"

	// KindUnrecognized marks provider event types this system does not act
	// on. They are acknowledged without action so new provider event types
	// never break the webhook surface.
	KindUnrecognized Kind = "unrecognized"
)

// Event is the canonical form every inbound notification is reduced to
// before reconciliation. Hint fields may be empty; the resolver owns the
// fallback order for filling the gaps.
type Event struct {
	Kind       Kind
	ProviderID string // provider event id, for log correlation only
	TypeRaw    string // provider event type string as delivered

	SubjectID string // checkout session id or provider subscription id
	StatusRaw string // provider-side status, mapped later, never trusted blindly

	PeriodStart *time.Time
	PeriodEnd   *time.Time
	AmountTotal int64

	OwnerEmail string // owner hint from the payload
	CustomerID string // provider customer reference
	PriceID    string // provider price reference
	PlanHint   string // plan code from metadata, stale-prone fallback

	CheckoutSessionID string
	PaymentIntentID   string
	SubscriptionID    string

	Metadata map[string]string
}

// IsSubscriptionKeyed reports whether the event reconciles against the
// subscription upsert path rather than one-time entitlement creation.
func (e *Event) IsSubscriptionKeyed() bool {
	switch e.Kind {
	case KindInvoicePaid, KindInvoicePaymentFailed, KindSubscriptionUpdated, KindSubscriptionDeleted:
		return true
	}
	return false
}
