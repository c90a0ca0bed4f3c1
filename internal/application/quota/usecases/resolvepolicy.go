package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/entitlement"
	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/plan"
	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/subscription"
	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/usage"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/biztime"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/config"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/constants"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
)

type ResolvePolicyCommand struct {
	VisitorID string
	UserID    *uint
}

// Policy is the resolved service level for one request. It is a snapshot:
// nothing here is reserved, the consume step re-checks capacity atomically.
// EntitlementSID is set only when quota comes from the ledger; an empty
// value means usage is counted, not consumed.
type Policy struct {
	Profile        usage.Profile
	Tier           string
	ModelKind      string
	ResponseMode   string
	ItemCap        int
	Limit          int
	Remaining      int
	ResetAt        time.Time
	EntitlementSID string
}

// Allowed reports whether the caller may proceed under this policy.
func (p *Policy) Allowed() bool {
	return p.Remaining > 0
}

// ResolvePolicyUseCase computes the tier for a requester identity. Premium
// comes from the entitlement ledger (reset at the grant's own expiry) or,
// failing that, from an active subscription (plan quota minus the period's
// usage count, reset at period end). Guest and free tiers count today's
// allowed events and reset at business-timezone midnight.
type ResolvePolicyUseCase struct {
	entitlementRepo  entitlement.Repository
	subscriptionRepo subscription.Repository
	planRepo         plan.Repository
	usageEvents      usage.EventRepository
	cfg              config.QuotaConfig
	logger           logger.Interface
}

func NewResolvePolicyUseCase(
	entitlementRepo entitlement.Repository,
	subscriptionRepo subscription.Repository,
	planRepo plan.Repository,
	usageEvents usage.EventRepository,
	cfg config.QuotaConfig,
	logger logger.Interface,
) *ResolvePolicyUseCase {
	return &ResolvePolicyUseCase{
		entitlementRepo:  entitlementRepo,
		subscriptionRepo: subscriptionRepo,
		planRepo:         planRepo,
		usageEvents:      usageEvents,
		cfg:              cfg,
		logger:           logger,
	}
}

func (uc *ResolvePolicyUseCase) Execute(ctx context.Context, cmd ResolvePolicyCommand) (*Policy, error) {
	now := biztime.NowUTC()

	if cmd.UserID != nil {
		ent, err := uc.entitlementRepo.GetActiveByUserID(ctx, *cmd.UserID)
		if err != nil {
			return nil, err
		}
		if ent != nil {
			return premiumPolicy(ent), nil
		}

		sub, err := uc.subscriptionRepo.GetActiveByUserID(ctx, *cmd.UserID)
		if err != nil {
			return nil, err
		}
		if sub != nil {
			p, err := uc.subscriptionPolicy(ctx, *cmd.UserID, sub)
			if err != nil {
				return nil, err
			}
			if p != nil {
				return p, nil
			}
		}

		return uc.freePolicy(ctx, *cmd.UserID, now)
	}

	return uc.guestPolicy(ctx, cmd.VisitorID, now)
}

// An ItemCap of zero means uncapped: the generator renders the full card set.
func premiumPolicy(ent *entitlement.Entitlement) *Policy {
	return &Policy{
		Profile:        usage.ProfilePremium,
		Tier:           ent.PlanCode(),
		ModelKind:      constants.ModelKindFlash,
		ResponseMode:   constants.ResponseModeFull,
		ItemCap:        0,
		Limit:          ent.QuotaTotal(),
		Remaining:      ent.Remaining(),
		ResetAt:        ent.ValidUntil(),
		EntitlementSID: ent.SID(),
	}
}

// subscriptionPolicy maps an active subscription to premium service. The
// period quota lives in the plan catalog; consumption is the count of
// allowed events inside the current period, not a ledger decrement. Returns
// nil (no error) when the subscription cannot back a policy — a missing
// plan or an unbounded period — so the caller falls through to free.
func (uc *ResolvePolicyUseCase) subscriptionPolicy(ctx context.Context, userID uint, sub *subscription.Subscription) (*Policy, error) {
	if sub.CurrentPeriodEnd() == nil {
		uc.logger.Warnw("active subscription has no period end",
			"user_id", userID, "provider_sub_id", sub.ProviderSubID())
		return nil, nil
	}

	p, err := uc.planRepo.GetByCode(ctx, sub.PlanCode())
	if err != nil {
		if errors.Is(err, plan.ErrPlanNotFound) {
			uc.logger.Warnw("active subscription references unknown plan",
				"user_id", userID, "plan_code", sub.PlanCode())
			return nil, nil
		}
		return nil, err
	}

	var from time.Time
	if sub.CurrentPeriodStart() != nil {
		from = *sub.CurrentPeriodStart()
	}
	to := *sub.CurrentPeriodEnd()

	used, err := uc.usageEvents.CountAllowedByUser(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	remaining := p.QuotaTotal() - used
	if remaining < 0 {
		remaining = 0
	}

	return &Policy{
		Profile:      usage.ProfilePremium,
		Tier:         sub.PlanCode(),
		ModelKind:    constants.ModelKindFlash,
		ResponseMode: constants.ResponseModeFull,
		ItemCap:      0,
		Limit:        p.QuotaTotal(),
		Remaining:    remaining,
		ResetAt:      to,
	}, nil
}

func (uc *ResolvePolicyUseCase) freePolicy(ctx context.Context, userID uint, now time.Time) (*Policy, error) {
	from, to := biztime.DayWindowUTC(now)
	used, err := uc.usageEvents.CountAllowedByUser(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	remaining := uc.cfg.FreeDailyLimit - used
	if remaining < 0 {
		remaining = 0
	}

	return &Policy{
		Profile:      usage.ProfileFree,
		Tier:         "free",
		ModelKind:    constants.ModelKindLite,
		ResponseMode: constants.ResponseModeDiagnosisAndShield,
		ItemCap:      2,
		Limit:        uc.cfg.FreeDailyLimit,
		Remaining:    remaining,
		ResetAt:      biztime.NextMidnightUTC(now),
	}, nil
}

func (uc *ResolvePolicyUseCase) guestPolicy(ctx context.Context, visitorID string, now time.Time) (*Policy, error) {
	from, to := biztime.DayWindowUTC(now)
	used, err := uc.usageEvents.CountAllowedByVisitor(ctx, visitorID, from, to)
	if err != nil {
		return nil, err
	}

	remaining := uc.cfg.GuestDailyLimit - used
	if remaining < 0 {
		remaining = 0
	}

	return &Policy{
		Profile:      usage.ProfileGuest,
		Tier:         "guest",
		ModelKind:    constants.ModelKindLite,
		ResponseMode: constants.ResponseModeShieldOnly,
		ItemCap:      1,
		Limit:        uc.cfg.GuestDailyLimit,
		Remaining:    remaining,
		ResetAt:      biztime.NextMidnightUTC(now),
	}, nil
}
