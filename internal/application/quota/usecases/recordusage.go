package usecases

import (
	"context"

	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/usage"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
)

type RecordUsageCommand struct {
	VisitorID      string
	UserID         *uint
	Profile        usage.Profile
	PlanCode       string
	ModelUsed      string
	Endpoint       string
	Allowed        bool
	Reason         string
	EntitlementSID string
	IPHash         string
}

// RecordUsageUseCase appends one immutable usage fact. Guest and free tier
// limits are enforced by counting these rows, so every allowed or denied
// outcome must be recorded.
type RecordUsageUseCase struct {
	usageEvents usage.EventRepository
	logger      logger.Interface
}

func NewRecordUsageUseCase(usageEvents usage.EventRepository, logger logger.Interface) *RecordUsageUseCase {
	return &RecordUsageUseCase{usageEvents: usageEvents, logger: logger}
}

func (uc *RecordUsageUseCase) Execute(ctx context.Context, cmd RecordUsageCommand) error {
	ev, err := usage.NewUsageEvent(
		cmd.VisitorID, cmd.UserID, cmd.Profile,
		cmd.PlanCode, cmd.ModelUsed, cmd.Endpoint,
		cmd.Allowed, cmd.Reason, cmd.EntitlementSID, cmd.IPHash,
	)
	if err != nil {
		return err
	}

	if err := uc.usageEvents.Append(ctx, ev); err != nil {
		return err
	}

	uc.logger.Debugw("usage recorded",
		"visitor_id", cmd.VisitorID, "profile", cmd.Profile, "allowed", cmd.Allowed, "reason", cmd.Reason)
	return nil
}
