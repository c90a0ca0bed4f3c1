package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gamezxlan/ley-en-mano-backend/internal/application/billing/gateway"
	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/entitlement"
	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/plan"
	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/user"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
)

// ErrNothingToUpgrade is returned when the owner has no usable entitlement
// or is already on the requested plan.
var ErrNothingToUpgrade = errors.New("nothing to upgrade")

type UpgradeCheckoutCommand struct {
	UserID       uint
	DestPlanCode string
	SuccessURL   string
	CancelURL    string
}

type UpgradeCheckoutResult struct {
	SessionID   string
	CheckoutURL string
	CreditCents int64
}

// UpgradeCheckoutUseCase opens a destination checkout carrying the unused
// value of the current entitlement as a one-shot coupon. The original
// entitlement is only marked replaced once the destination purchase
// confirms through the webhook, so an abandoned upgrade costs nothing.
type UpgradeCheckoutUseCase struct {
	entitlementRepo  entitlement.Repository
	planRepo         plan.Repository
	userRepo         user.Repository
	gateway          gateway.Gateway
	couponTTL        time.Duration
	currency         string
	logger           logger.Interface
}

func NewUpgradeCheckoutUseCase(
	entitlementRepo entitlement.Repository,
	planRepo plan.Repository,
	userRepo user.Repository,
	gw gateway.Gateway,
	couponTTL time.Duration,
	currency string,
	logger logger.Interface,
) *UpgradeCheckoutUseCase {
	return &UpgradeCheckoutUseCase{
		entitlementRepo: entitlementRepo,
		planRepo:        planRepo,
		userRepo:        userRepo,
		gateway:         gw,
		couponTTL:       couponTTL,
		currency:        currency,
		logger:          logger,
	}
}

func (uc *UpgradeCheckoutUseCase) Execute(ctx context.Context, cmd UpgradeCheckoutCommand) (*UpgradeCheckoutResult, error) {
	current, err := uc.entitlementRepo.GetActiveByUserID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNothingToUpgrade
	}
	if current.PlanCode() == cmd.DestPlanCode {
		return nil, ErrNothingToUpgrade
	}

	destPlan, err := uc.planRepo.GetByCode(ctx, cmd.DestPlanCode)
	if err != nil {
		return nil, err
	}
	currentPlan, err := uc.planRepo.GetByCode(ctx, current.PlanCode())
	if err != nil {
		return nil, err
	}

	owner, err := uc.userRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, user.ErrUserNotFound
	}

	credit := current.UpgradeCredit(currentPlan.PriceCents(), destPlan.PriceCents())
	// A coupon covering the whole destination price would produce a
	// zero-amount checkout the provider rejects.
	if credit >= destPlan.PriceCents() {
		return nil, ErrNothingToUpgrade
	}

	params := gateway.CheckoutParams{
		PriceID:       destPlan.ProviderPrice(),
		CustomerID:    owner.ProviderCustomerID(),
		CustomerEmail: owner.Email(),
		SuccessURL:    cmd.SuccessURL,
		CancelURL:     cmd.CancelURL,
		Metadata: map[string]string{
			"plan_code":    destPlan.Code(),
			"user_sid":     owner.SID(),
			"upgrade_from": current.SID(),
		},
	}

	if credit > 0 {
		redeemBy := time.Now().UTC().Add(uc.couponTTL)
		couponID, err := uc.gateway.CreateOneShotCoupon(ctx, credit, uc.currency, redeemBy)
		if err != nil {
			return nil, fmt.Errorf("failed to create upgrade coupon: %w", err)
		}
		params.CouponID = couponID
	}

	created, err := uc.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create upgrade checkout: %w", err)
	}

	uc.logger.Infow("upgrade checkout opened",
		"user_sid", owner.SID(), "from_plan", current.PlanCode(), "to_plan", destPlan.Code(),
		"credit_cents", credit)
	return &UpgradeCheckoutResult{
		SessionID:   created.SessionID,
		CheckoutURL: created.URL,
		CreditCents: credit,
	}, nil
}
