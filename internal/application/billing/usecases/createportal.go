package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/gamezxlan/ley-en-mano-backend/internal/application/billing/gateway"
	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/user"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
)

// ErrNoBillingProfile is returned when the user never went through a
// checkout and has no provider customer to open a portal for.
var ErrNoBillingProfile = errors.New("no billing profile")

type CreatePortalCommand struct {
	UserID    uint
	ReturnURL string
}

type CreatePortalResult struct {
	PortalURL string
}

// CreatePortalUseCase opens the provider's self-service billing portal.
type CreatePortalUseCase struct {
	userRepo user.Repository
	gateway  gateway.Gateway
	logger   logger.Interface
}

func NewCreatePortalUseCase(userRepo user.Repository, gw gateway.Gateway, logger logger.Interface) *CreatePortalUseCase {
	return &CreatePortalUseCase{userRepo: userRepo, gateway: gw, logger: logger}
}

func (uc *CreatePortalUseCase) Execute(ctx context.Context, cmd CreatePortalCommand) (*CreatePortalResult, error) {
	owner, err := uc.userRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, user.ErrUserNotFound
	}
	if owner.ProviderCustomerID() == "" {
		return nil, ErrNoBillingProfile
	}

	url, err := uc.gateway.CreatePortalSession(ctx, owner.ProviderCustomerID(), cmd.ReturnURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create portal session: %w", err)
	}

	uc.logger.Infow("billing portal opened", "user_sid", owner.SID())
	return &CreatePortalResult{PortalURL: url}, nil
}
