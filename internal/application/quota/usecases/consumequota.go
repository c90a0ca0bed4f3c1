package usecases

import (
	"context"
	"errors"

	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/entitlement"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
)

type ConsumeQuotaCommand struct {
	UserID uint
}

// ConsumeQuotaResult reports the outcome of an atomic decrement. Exhausted
// capacity is a business outcome, not an error.
type ConsumeQuotaResult struct {
	Consumed       bool
	EntitlementSID string
	PlanCode       string
	RemainingAfter int
}

type ConsumeQuotaUseCase struct {
	entitlementRepo entitlement.Repository
	logger          logger.Interface
}

func NewConsumeQuotaUseCase(entitlementRepo entitlement.Repository, logger logger.Interface) *ConsumeQuotaUseCase {
	return &ConsumeQuotaUseCase{entitlementRepo: entitlementRepo, logger: logger}
}

func (uc *ConsumeQuotaUseCase) Execute(ctx context.Context, cmd ConsumeQuotaCommand) (*ConsumeQuotaResult, error) {
	result, err := uc.entitlementRepo.ConsumeOne(ctx, cmd.UserID)
	if err != nil {
		if errors.Is(err, entitlement.ErrNoCapacity) {
			return &ConsumeQuotaResult{Consumed: false}, nil
		}
		return nil, err
	}

	return &ConsumeQuotaResult{
		Consumed:       true,
		EntitlementSID: result.EntitlementSID,
		PlanCode:       result.PlanCode,
		RemainingAfter: result.RemainingAfter,
	}, nil
}
