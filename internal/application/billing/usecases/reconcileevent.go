package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/gamezxlan/ley-en-mano-backend/internal/application/billing/events"
	"github.com/gamezxlan/ley-en-mano-backend/internal/application/billing/resolver"
	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/entitlement"
	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/subscription"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/biztime"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
)

// Reconcile outcomes. Every recognized-or-ignored outcome is acknowledged to
// the provider; only signature failures and transient resolution failures
// reject the delivery.
const (
	OutcomeCreated    = "created"
	OutcomeDuplicate  = "duplicate"
	OutcomeUpserted   = "upserted"
	OutcomeIgnored    = "ignored"
	OutcomeUnresolved = "unresolved"
)

type ReconcileEventCommand struct {
	Payload   []byte
	Signature string
}

type ReconcileEventResult struct {
	Kind    events.Kind
	Outcome string
}

// ReconcileEventUseCase drives Normalizer -> Resolver -> ledger writes for
// one inbound delivery. Delivery order and count are not guaranteed, so
// every write path below is idempotent or a commutative merge.
type ReconcileEventUseCase struct {
	normalizer       *events.Normalizer
	resolver         *resolver.Resolver
	entitlementRepo  entitlement.Repository
	subscriptionRepo subscription.Repository
	logger           logger.Interface
}

func NewReconcileEventUseCase(
	normalizer *events.Normalizer,
	res *resolver.Resolver,
	entitlementRepo entitlement.Repository,
	subscriptionRepo subscription.Repository,
	logger logger.Interface,
) *ReconcileEventUseCase {
	return &ReconcileEventUseCase{
		normalizer:       normalizer,
		resolver:         res,
		entitlementRepo:  entitlementRepo,
		subscriptionRepo: subscriptionRepo,
		logger:           logger,
	}
}

func (uc *ReconcileEventUseCase) Execute(ctx context.Context, cmd ReconcileEventCommand) (*ReconcileEventResult, error) {
	ev, err := uc.normalizer.Normalize(cmd.Payload, cmd.Signature)
	if err != nil {
		return nil, err
	}

	switch ev.Kind {
	case events.KindCheckoutCompleted:
		return uc.reconcileCheckout(ctx, ev)
	case events.KindInvoicePaid, events.KindInvoicePaymentFailed,
		events.KindSubscriptionUpdated, events.KindSubscriptionDeleted:
		return uc.reconcileSubscription(ctx, ev)
	default:
		uc.logger.Debugw("ignoring unrecognized provider event",
			"provider_event", ev.ProviderID, "type", ev.TypeRaw)
		return &ReconcileEventResult{Kind: ev.Kind, Outcome: OutcomeIgnored}, nil
	}
}

func (uc *ReconcileEventUseCase) reconcileCheckout(ctx context.Context, ev *events.Event) (*ReconcileEventResult, error) {
	if ev.StatusRaw != "paid" {
		uc.logger.Infow("ignoring unpaid checkout completion",
			"checkout_session", ev.CheckoutSessionID, "payment_status", ev.StatusRaw)
		return &ReconcileEventResult{Kind: ev.Kind, Outcome: OutcomeIgnored}, nil
	}

	owner, err := uc.resolver.ResolveOwner(ctx, ev)
	if err != nil {
		return uc.resolutionOutcome(ev, err)
	}

	// Subscription-mode checkouts reconcile through the invoice and
	// subscription events, which carry the period data. The owner link above
	// is still worth keeping.
	if ev.SubscriptionID != "" {
		return &ReconcileEventResult{Kind: ev.Kind, Outcome: OutcomeIgnored}, nil
	}

	p, err := uc.resolver.ResolvePlan(ctx, ev)
	if err != nil {
		return uc.resolutionOutcome(ev, err)
	}

	now := biztime.NowUTC()
	ent, err := entitlement.NewEntitlement(
		owner.ID(), p.Code(), p.QuotaTotal(), p.ValidUntilFrom(now), ev.CheckoutSessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to build entitlement: %w", err)
	}
	ent.SetCorrelation(ev.PaymentIntentID, ev.CustomerID, p.ProviderPrice())

	if err := uc.entitlementRepo.Create(ctx, ent); err != nil {
		if errors.Is(err, entitlement.ErrDuplicateEntitlement) {
			uc.logger.Infow("duplicate checkout delivery, entitlement already exists",
				"checkout_session", ev.CheckoutSessionID)
			return &ReconcileEventResult{Kind: ev.Kind, Outcome: OutcomeDuplicate}, nil
		}
		return nil, err
	}

	// An upgrade purchase supersedes the original entitlement. Replaced is
	// distinct from expired so the audit trail shows the upgrade was
	// voluntary.
	if fromSID := ev.Metadata["upgrade_from"]; fromSID != "" {
		if err := uc.entitlementRepo.MarkReplaced(ctx, fromSID); err != nil {
			uc.logger.Warnw("failed to mark upgraded entitlement replaced",
				"entitlement_sid", fromSID, "error", err)
		}
	}

	uc.logger.Infow("entitlement reconciled from checkout",
		"entitlement_sid", ent.SID(), "user_sid", owner.SID(), "plan_code", p.Code())
	return &ReconcileEventResult{Kind: ev.Kind, Outcome: OutcomeCreated}, nil
}

func (uc *ReconcileEventUseCase) reconcileSubscription(ctx context.Context, ev *events.Event) (*ReconcileEventResult, error) {
	if ev.SubscriptionID == "" {
		uc.logger.Infow("subscription event without subscription reference",
			"provider_event", ev.ProviderID, "type", ev.TypeRaw)
		return &ReconcileEventResult{Kind: ev.Kind, Outcome: OutcomeIgnored}, nil
	}

	owner, err := uc.resolver.ResolveOwner(ctx, ev)
	if err != nil {
		return uc.resolutionOutcome(ev, err)
	}

	status := subscription.FromProviderStatus(ev.StatusRaw)
	planCode := ""

	switch ev.Kind {
	case events.KindInvoicePaid:
		status = subscription.StatusActive
	case events.KindInvoicePaymentFailed:
		// Declined payment demotes the subscription without touching any
		// quota already granted.
		status = subscription.StatusPastDue
	case events.KindSubscriptionDeleted:
		status = subscription.StatusCanceled
	}

	// Cancellation and decline events act on status alone; only the events
	// that can change the plan need the catalog resolved.
	if ev.Kind == events.KindInvoicePaid || ev.Kind == events.KindSubscriptionUpdated {
		p, err := uc.resolver.ResolvePlan(ctx, ev)
		if err != nil {
			return uc.resolutionOutcome(ev, err)
		}
		planCode = p.Code()
	}

	sub, err := uc.subscriptionRepo.Upsert(ctx, subscription.UpsertParams{
		UserID:        owner.ID(),
		ProviderSubID: ev.SubscriptionID,
		PlanCode:      planCode,
		Status:        status,
		CustomerID:    ev.CustomerID,
		PriceID:       ev.PriceID,
		PeriodStart:   ev.PeriodStart,
		PeriodEnd:     ev.PeriodEnd,
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Infow("subscription reconciled",
		"provider_sub_id", ev.SubscriptionID, "user_sid", owner.SID(),
		"status", sub.Status(), "kind", ev.Kind)
	return &ReconcileEventResult{Kind: ev.Kind, Outcome: OutcomeUpserted}, nil
}

// resolutionOutcome translates resolver failures into the acknowledgement
// policy: transient failures reject the delivery so the provider re-delivers;
// permanent gaps are acknowledged as no-ops and logged for manual review.
func (uc *ReconcileEventUseCase) resolutionOutcome(ev *events.Event, err error) (*ReconcileEventResult, error) {
	if errors.Is(err, resolver.ErrResolutionUnavailable) {
		return nil, err
	}
	if errors.Is(err, resolver.ErrResolutionNotFound) {
		uc.logger.Warnw("acknowledging unresolvable event as no-op",
			"provider_event", ev.ProviderID, "type", ev.TypeRaw, "error", err)
		return &ReconcileEventResult{Kind: ev.Kind, Outcome: OutcomeUnresolved}, nil
	}
	return nil, err
}
