package usecases

import (
	"context"
	"errors"

	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/entitlement"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
)

type RefundQuotaCommand struct {
	EntitlementSID string
}

// RefundQuotaUseCase returns one pre-committed unit after a downstream
// failure. Quota is committed before the slow generation call and refunded
// on failure; refunds that land outside the validity window are dropped.
type RefundQuotaUseCase struct {
	entitlementRepo entitlement.Repository
	logger          logger.Interface
}

func NewRefundQuotaUseCase(entitlementRepo entitlement.Repository, logger logger.Interface) *RefundQuotaUseCase {
	return &RefundQuotaUseCase{entitlementRepo: entitlementRepo, logger: logger}
}

func (uc *RefundQuotaUseCase) Execute(ctx context.Context, cmd RefundQuotaCommand) error {
	if err := uc.entitlementRepo.Refund(ctx, cmd.EntitlementSID); err != nil {
		if errors.Is(err, entitlement.ErrEntitlementNotFound) {
			uc.logger.Warnw("refund target missing", "entitlement_sid", cmd.EntitlementSID)
			return nil
		}
		return err
	}
	return nil
}
