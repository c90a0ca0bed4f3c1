package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/gamezxlan/ley-en-mano-backend/internal/application/billing/gateway"
	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/entitlement"
	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/user"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
)

// ErrCheckoutNotPaid is returned when the redirected session is not in a
// paid state yet; the caller should let the user retry shortly.
var ErrCheckoutNotPaid = errors.New("checkout not paid")

// SessionIssuer mints login sessions for a verified purchase. Satisfied by
// the session store.
type SessionIssuer interface {
	Create(ctx context.Context, userID uint, ip, userAgent string) (string, error)
}

type CompleteCheckoutCommand struct {
	CheckoutSessionID string
	IP                string
	UserAgent         string
}

type CompleteCheckoutResult struct {
	SessionToken   string
	UserSID        string
	EntitlementSID string
	PlanCode       string
}

// CompleteCheckoutUseCase closes the purchase loop after the provider
// redirect: it verifies the checkout against the provider (never trusting
// the redirect URL alone) and signs the buyer in. The entitlement itself is
// created by the webhook path; this usecase only reads it.
type CompleteCheckoutUseCase struct {
	gateway         gateway.Gateway
	userRepo        user.Repository
	entitlementRepo entitlement.Repository
	sessions        SessionIssuer
	logger          logger.Interface
}

func NewCompleteCheckoutUseCase(
	gw gateway.Gateway,
	userRepo user.Repository,
	entitlementRepo entitlement.Repository,
	sessions SessionIssuer,
	logger logger.Interface,
) *CompleteCheckoutUseCase {
	return &CompleteCheckoutUseCase{
		gateway:         gw,
		userRepo:        userRepo,
		entitlementRepo: entitlementRepo,
		sessions:        sessions,
		logger:          logger,
	}
}

func (uc *CompleteCheckoutUseCase) Execute(ctx context.Context, cmd CompleteCheckoutCommand) (*CompleteCheckoutResult, error) {
	session, err := uc.gateway.RetrieveCheckoutSession(ctx, cmd.CheckoutSessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify checkout session: %w", err)
	}
	if session.PaymentStatus != "paid" {
		return nil, ErrCheckoutNotPaid
	}

	email := session.CustomerEmail
	if email == "" {
		return nil, fmt.Errorf("checkout session %s carries no customer email", cmd.CheckoutSessionID)
	}

	owner, err := uc.userRepo.UpsertByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if session.CustomerID != "" && owner.ProviderCustomerID() == "" {
		owner.LinkProviderCustomer(session.CustomerID)
		if err := uc.userRepo.Update(ctx, owner); err != nil {
			uc.logger.Warnw("failed to link provider customer", "user_sid", owner.SID(), "error", err)
		}
	}

	token, err := uc.sessions.Create(ctx, owner.ID(), cmd.IP, cmd.UserAgent)
	if err != nil {
		return nil, err
	}

	result := &CompleteCheckoutResult{
		SessionToken: token,
		UserSID:      owner.SID(),
	}

	// The webhook usually lands before the redirect, but the two race. A
	// missing entitlement here is not an error; the client polls status.
	ent, err := uc.entitlementRepo.GetByCheckoutSessionID(ctx, cmd.CheckoutSessionID)
	if err != nil && !errors.Is(err, entitlement.ErrEntitlementNotFound) {
		return nil, err
	}
	if ent != nil {
		result.EntitlementSID = ent.SID()
		result.PlanCode = ent.PlanCode()
	}

	uc.logger.Infow("checkout completed, user signed in",
		"user_sid", owner.SID(), "checkout_session", cmd.CheckoutSessionID)
	return result, nil
}
