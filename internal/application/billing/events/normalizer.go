package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/webhook"
)

// ErrInvalidSignature is returned when the delivery cannot be authenticated.
// The transport boundary must reject the delivery without any side effect.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Normalizer verifies a provider delivery and reduces it to a canonical
// Event. It is a pure transform over the payload: no network calls, no
// store access.
type Normalizer struct {
	secret string
}

func NewNormalizer(webhookSecret string) *Normalizer {
	return &Normalizer{secret: webhookSecret}
}

// Normalize authenticates the raw payload against the signature header and
// produces the canonical event. Verification fails closed: any mismatch,
// stale timestamp or malformed header yields ErrInvalidSignature.
func (n *Normalizer) Normalize(payload []byte, signatureHeader string) (*Event, error) {
	providerEvent, err := webhook.ConstructEvent(payload, signatureHeader, n.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	ev := &Event{
		ProviderID: providerEvent.ID,
		TypeRaw:    providerEvent.Type,
	}

	switch providerEvent.Type {
	case "checkout.session.completed":
		return n.fromCheckoutSession(ev, providerEvent.Data.Raw)
	case "invoice.paid", "invoice.payment_succeeded":
		ev.Kind = KindInvoicePaid
		return n.fromInvoice(ev, providerEvent.Data.Raw)
	case "invoice.payment_failed":
		ev.Kind = KindInvoicePaymentFailed
		return n.fromInvoice(ev, providerEvent.Data.Raw)
	case "customer.subscription.created", "customer.subscription.updated":
		ev.Kind = KindSubscriptionUpdated
		return n.fromSubscription(ev, providerEvent.Data.Raw)
	case "customer.subscription.deleted":
		ev.Kind = KindSubscriptionDeleted
		return n.fromSubscription(ev, providerEvent.Data.Raw)
	default:
		ev.Kind = KindUnrecognized
		return ev, nil
	}
}

func (n *Normalizer) fromCheckoutSession(ev *Event, raw json.RawMessage) (*Event, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session payload: %w", err)
	}

	ev.Kind = KindCheckoutCompleted
	ev.SubjectID = session.ID
	ev.CheckoutSessionID = session.ID
	ev.StatusRaw = string(session.PaymentStatus)
	ev.AmountTotal = session.AmountTotal
	ev.Metadata = session.Metadata
	ev.PlanHint = session.Metadata["plan_code"]

	if session.CustomerDetails != nil {
		ev.OwnerEmail = session.CustomerDetails.Email
	}
	if ev.OwnerEmail == "" {
		ev.OwnerEmail = session.CustomerEmail
	}
	if session.Customer != nil {
		ev.CustomerID = session.Customer.ID
	}
	if session.PaymentIntent != nil {
		ev.PaymentIntentID = session.PaymentIntent.ID
	}
	if session.Subscription != nil {
		ev.SubscriptionID = session.Subscription.ID
	}

	return ev, nil
}

func (n *Normalizer) fromInvoice(ev *Event, raw json.RawMessage) (*Event, error) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(raw, &invoice); err != nil {
		return nil, fmt.Errorf("failed to decode invoice payload: %w", err)
	}

	ev.StatusRaw = string(invoice.Status)
	ev.AmountTotal = invoice.AmountPaid
	ev.OwnerEmail = invoice.CustomerEmail
	if invoice.Customer != nil {
		ev.CustomerID = invoice.Customer.ID
	}
	if invoice.Subscription != nil {
		ev.SubjectID = invoice.Subscription.ID
		ev.SubscriptionID = invoice.Subscription.ID
	}

	// Billing period and price live on the invoice lines. Payment events
	// always carry them; their presence is what lets the reconciler do a
	// full rather than plan-only update.
	if invoice.Lines != nil && len(invoice.Lines.Data) > 0 {
		line := invoice.Lines.Data[0]
		if line.Period != nil {
			ev.PeriodStart = unixTime(line.Period.Start)
			ev.PeriodEnd = unixTime(line.Period.End)
		}
		if line.Price != nil {
			ev.PriceID = line.Price.ID
			if ev.PlanHint == "" {
				ev.PlanHint = line.Price.Metadata["plan_code"]
			}
		}
	}

	return ev, nil
}

func (n *Normalizer) fromSubscription(ev *Event, raw json.RawMessage) (*Event, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("failed to decode subscription payload: %w", err)
	}

	ev.SubjectID = sub.ID
	ev.SubscriptionID = sub.ID
	ev.StatusRaw = string(sub.Status)
	ev.Metadata = sub.Metadata
	ev.PlanHint = sub.Metadata["plan_code"]
	ev.PeriodStart = unixTime(sub.CurrentPeriodStart)
	ev.PeriodEnd = unixTime(sub.CurrentPeriodEnd)

	if sub.Customer != nil {
		ev.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		price := sub.Items.Data[0].Price
		ev.PriceID = price.ID
		if ev.PlanHint == "" {
			ev.PlanHint = price.Metadata["plan_code"]
		}
	}

	return ev, nil
}

func unixTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
