package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gamezxlan/ley-en-mano-backend/internal/application/billing/events"
	"github.com/gamezxlan/ley-en-mano-backend/internal/application/billing/gateway"
	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/plan"
	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/user"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
)

var (
	// ErrResolutionUnavailable marks a transient failure reaching the
	// provider. The delivery should be rejected so the provider re-delivers.
	ErrResolutionUnavailable = errors.New("resolution unavailable")

	// ErrResolutionNotFound marks a permanent gap for this event instance.
	// The delivery is acknowledged as a no-op and logged for manual review.
	ErrResolutionNotFound = errors.New("resolution not found")
)

// Resolver maps event hints to an internal owner and a catalog plan. The
// fallback order is a fixed contract: embedded payload hints first, then the
// local price table, then a bounded fetch from the provider.
type Resolver struct {
	userRepo user.Repository
	planRepo plan.Repository
	gateway  gateway.Gateway
	timeout  time.Duration
	logger   logger.Interface
}

func NewResolver(
	userRepo user.Repository,
	planRepo plan.Repository,
	gw gateway.Gateway,
	timeout time.Duration,
	logger logger.Interface,
) *Resolver {
	return &Resolver{
		userRepo: userRepo,
		planRepo: planRepo,
		gateway:  gw,
		timeout:  timeout,
		logger:   logger,
	}
}

// ResolveOwner finds or creates the internal user that an event belongs to.
// Order: payload email, known customer link, provider customer fetch. A new
// user created here is immediately linked to the provider customer so later
// events short-circuit on the local lookup.
func (r *Resolver) ResolveOwner(ctx context.Context, ev *events.Event) (*user.User, error) {
	if ev.OwnerEmail != "" {
		u, err := r.userRepo.UpsertByEmail(ctx, ev.OwnerEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert owner by email: %w", err)
		}
		if ev.CustomerID != "" && u.ProviderCustomerID() == "" {
			u.LinkProviderCustomer(ev.CustomerID)
			if err := r.userRepo.Update(ctx, u); err != nil {
				r.logger.Warnw("failed to link provider customer", "user_sid", u.SID(), "error", err)
			}
		}
		return u, nil
	}

	if ev.CustomerID == "" {
		return nil, fmt.Errorf("%w: event carries no owner hint", ErrResolutionNotFound)
	}

	u, err := r.userRepo.GetByProviderCustomerID(ctx, ev.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up owner by customer: %w", err)
	}
	if u != nil {
		return u, nil
	}

	email, err := r.fetchCustomerEmail(ctx, ev.CustomerID)
	if err != nil {
		return nil, err
	}
	if email == "" {
		return nil, fmt.Errorf("%w: provider customer %s has no email", ErrResolutionNotFound, ev.CustomerID)
	}

	u, err = r.userRepo.UpsertByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert owner after fetch: %w", err)
	}
	u.LinkProviderCustomer(ev.CustomerID)
	if err := r.userRepo.Update(ctx, u); err != nil {
		r.logger.Warnw("failed to link provider customer", "user_sid", u.SID(), "error", err)
	}
	return u, nil
}

// ResolvePlan maps an event to a catalog plan. The price reference is the
// primary key into the catalog; metadata plan codes are a fallback only,
// since metadata goes stale when a subscription changes plan. As a last
// resort the subject is re-fetched from the provider to recover the price.
func (r *Resolver) ResolvePlan(ctx context.Context, ev *events.Event) (*plan.Plan, error) {
	if ev.PriceID != "" {
		p, err := r.planRepo.GetByProviderPrice(ctx, ev.PriceID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, plan.ErrPlanNotFound) {
			return nil, fmt.Errorf("failed to map price to plan: %w", err)
		}
	}

	if ev.PlanHint != "" {
		p, err := r.planRepo.GetByCode(ctx, ev.PlanHint)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, plan.ErrPlanNotFound) {
			return nil, fmt.Errorf("failed to map plan hint: %w", err)
		}
		r.logger.Warnw("stale plan hint on event", "plan_hint", ev.PlanHint, "provider_event", ev.ProviderID)
	}

	priceID, err := r.fetchPriceID(ctx, ev)
	if err != nil {
		return nil, err
	}
	if priceID == "" {
		return nil, fmt.Errorf("%w: no price reference for event %s", ErrResolutionNotFound, ev.ProviderID)
	}

	p, err := r.planRepo.GetByProviderPrice(ctx, priceID)
	if err != nil {
		if errors.Is(err, plan.ErrPlanNotFound) {
			return nil, fmt.Errorf("%w: price %s not in catalog", ErrResolutionNotFound, priceID)
		}
		return nil, fmt.Errorf("failed to map fetched price to plan: %w", err)
	}
	return p, nil
}

func (r *Resolver) fetchCustomerEmail(ctx context.Context, customerID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	email, err := r.gateway.RetrieveCustomerEmail(ctx, customerID)
	if err != nil {
		return "", fmt.Errorf("%w: customer fetch failed: %v", ErrResolutionUnavailable, err)
	}
	return email, nil
}

func (r *Resolver) fetchPriceID(ctx context.Context, ev *events.Event) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	switch {
	case ev.SubscriptionID != "":
		sub, err := r.gateway.RetrieveSubscription(ctx, ev.SubscriptionID)
		if err != nil {
			return "", fmt.Errorf("%w: subscription fetch failed: %v", ErrResolutionUnavailable, err)
		}
		return sub.PriceID, nil
	case ev.CheckoutSessionID != "":
		session, err := r.gateway.RetrieveCheckoutSession(ctx, ev.CheckoutSessionID)
		if err != nil {
			return "", fmt.Errorf("%w: checkout fetch failed: %v", ErrResolutionUnavailable, err)
		}
		return session.PriceID, nil
	}
	return "", nil
}
