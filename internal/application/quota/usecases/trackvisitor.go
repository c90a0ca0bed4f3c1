package usecases

import (
	"context"

	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/usage"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
)

type TrackVisitorCommand struct {
	VisitorID string
	UserID    *uint
}

// TrackVisitorUseCase refreshes the anonymous identity on every request.
// Passing a user ID links the visitor to that user; an anonymous request
// never clears an existing link.
type TrackVisitorUseCase struct {
	visitorRepo usage.VisitorRepository
	logger      logger.Interface
}

func NewTrackVisitorUseCase(visitorRepo usage.VisitorRepository, logger logger.Interface) *TrackVisitorUseCase {
	return &TrackVisitorUseCase{visitorRepo: visitorRepo, logger: logger}
}

func (uc *TrackVisitorUseCase) Execute(ctx context.Context, cmd TrackVisitorCommand) error {
	if cmd.VisitorID == "" {
		return nil
	}
	if err := uc.visitorRepo.Upsert(ctx, cmd.VisitorID, cmd.UserID); err != nil {
		// Visitor tracking is best effort; losing a touch must not fail the
		// request that carried it.
		uc.logger.Warnw("failed to track visitor", "visitor_id", cmd.VisitorID, "error", err)
	}
	return nil
}
