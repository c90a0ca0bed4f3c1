package usecases

import (
	"context"
	"fmt"

	"github.com/gamezxlan/ley-en-mano-backend/internal/application/billing/gateway"
	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/plan"
	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/user"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
)

type CreateCheckoutCommand struct {
	PlanCode   string
	Email      string
	VisitorID  string
	SuccessURL string
	CancelURL  string
}

type CreateCheckoutResult struct {
	SessionID   string
	CheckoutURL string
}

// CreateCheckoutUseCase opens a provider checkout for a catalog plan. The
// plan code and visitor are stamped into the session metadata so the webhook
// can reconcile even if the provider-side objects lose their hints.
type CreateCheckoutUseCase struct {
	planRepo plan.Repository
	userRepo user.Repository
	gateway  gateway.Gateway
	logger   logger.Interface
}

func NewCreateCheckoutUseCase(
	planRepo plan.Repository,
	userRepo user.Repository,
	gw gateway.Gateway,
	logger logger.Interface,
) *CreateCheckoutUseCase {
	return &CreateCheckoutUseCase{
		planRepo: planRepo,
		userRepo: userRepo,
		gateway:  gw,
		logger:   logger,
	}
}

func (uc *CreateCheckoutUseCase) Execute(ctx context.Context, cmd CreateCheckoutCommand) (*CreateCheckoutResult, error) {
	p, err := uc.planRepo.GetByCode(ctx, cmd.PlanCode)
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		return nil, plan.ErrPlanNotFound
	}

	params := gateway.CheckoutParams{
		PriceID:    p.ProviderPrice(),
		SuccessURL: cmd.SuccessURL,
		CancelURL:  cmd.CancelURL,
		Metadata: map[string]string{
			"plan_code":  p.Code(),
			"visitor_id": cmd.VisitorID,
		},
	}

	// A known email gets a stable provider customer so purchases and portal
	// access line up on one customer record. Anonymous buyers let the
	// provider collect the email at checkout.
	if cmd.Email != "" {
		owner, err := uc.userRepo.UpsertByEmail(ctx, cmd.Email)
		if err != nil {
			return nil, err
		}
		if owner.ProviderCustomerID() == "" {
			customerID, err := uc.gateway.EnsureCustomer(ctx, owner.Email())
			if err != nil {
				return nil, fmt.Errorf("failed to ensure provider customer: %w", err)
			}
			owner.LinkProviderCustomer(customerID)
			if err := uc.userRepo.Update(ctx, owner); err != nil {
				uc.logger.Warnw("failed to persist provider customer link",
					"user_sid", owner.SID(), "error", err)
			}
		}
		params.CustomerID = owner.ProviderCustomerID()
		params.Metadata["user_sid"] = owner.SID()
	}

	created, err := uc.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	uc.logger.Infow("checkout session opened",
		"session_id", created.SessionID, "plan_code", p.Code(), "visitor_id", cmd.VisitorID)
	return &CreateCheckoutResult{
		SessionID:   created.SessionID,
		CheckoutURL: created.URL,
	}, nil
}
