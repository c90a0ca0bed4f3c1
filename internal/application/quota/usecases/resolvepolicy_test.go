package usecases

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/entitlement"
	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/plan"
	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/subscription"
	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/usage"
	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/persistence/models"
	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/repository"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/config"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/constants"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
)

type quotaFixture struct {
	db          *gorm.DB
	entRepo     entitlement.Repository
	subRepo     subscription.Repository
	usageEvents usage.EventRepository
	resolve     *ResolvePolicyUseCase
	consume     *ConsumeQuotaUseCase
	refund      *RefundQuotaUseCase
	record      *RecordUsageUseCase
}

func setupQuota(t *testing.T) *quotaFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.PlanModel{},
		&models.EntitlementModel{},
		&models.SubscriptionModel{},
		&models.UsageEventModel{},
	))

	log := logger.NewLogger()
	entRepo := repository.NewEntitlementRepository(db, log)
	subRepo := repository.NewSubscriptionRepository(db, log)
	planRepo := repository.NewPlanRepository(db, log)
	usageEvents := repository.NewUsageEventRepository(db, log)
	cfg := config.QuotaConfig{
		Timezone:        "America/Mexico_City",
		GuestDailyLimit: 2,
		FreeDailyLimit:  3,
	}

	p, err := plan.NewPlan("p99", "Plan p99", 100, 9900, "mxn", "price_p99", 12)
	require.NoError(t, err)
	require.NoError(t, planRepo.Save(context.Background(), p))

	return &quotaFixture{
		db:          db,
		entRepo:     entRepo,
		subRepo:     subRepo,
		usageEvents: usageEvents,
		resolve:     NewResolvePolicyUseCase(entRepo, subRepo, planRepo, usageEvents, cfg, log),
		consume:     NewConsumeQuotaUseCase(entRepo, log),
		refund:      NewRefundQuotaUseCase(entRepo, log),
		record:      NewRecordUsageUseCase(usageEvents, log),
	}
}

var checkoutSeq int64

func (f *quotaFixture) grantEntitlement(t *testing.T, userID uint, remaining, total int, validUntil time.Time) *entitlement.Entitlement {
	t.Helper()

	sessionID := fmt.Sprintf("cs_test_%d", atomic.AddInt64(&checkoutSeq, 1))
	ent, err := entitlement.NewEntitlement(userID, "p99", total, validUntil, sessionID)
	require.NoError(t, err)
	for i := 0; i < total-remaining; i++ {
		require.NoError(t, ent.Consume(time.Now().UTC()))
	}
	require.NoError(t, f.entRepo.Create(context.Background(), ent))
	return ent
}

var subSeq int64

func (f *quotaFixture) activateSubscription(t *testing.T, userID uint, planCode string, start, end *time.Time) *subscription.Subscription {
	t.Helper()

	sub, err := f.subRepo.Upsert(context.Background(), subscription.UpsertParams{
		UserID:        userID,
		ProviderSubID: fmt.Sprintf("sub_test_%d", atomic.AddInt64(&subSeq, 1)),
		PlanCode:      planCode,
		Status:        subscription.StatusActive,
		PeriodStart:   start,
		PeriodEnd:     end,
	})
	require.NoError(t, err)
	return sub
}

func (f *quotaFixture) recordAllowed(t *testing.T, visitorID string, userID *uint, profile usage.Profile) {
	t.Helper()
	require.NoError(t, f.record.Execute(context.Background(), RecordUsageCommand{
		VisitorID: visitorID,
		UserID:    userID,
		Profile:   profile,
		ModelUsed: constants.ModelKindLite,
		Endpoint:  "/api/consult",
		Allowed:   true,
	}))
}

func TestResolvePolicy_Guest(t *testing.T) {
	f := setupQuota(t)
	ctx := context.Background()

	t.Run("fresh visitor gets the full daily allowance", func(t *testing.T) {
		policy, err := f.resolve.Execute(ctx, ResolvePolicyCommand{VisitorID: "v-fresh"})
		require.NoError(t, err)

		assert.Equal(t, usage.ProfileGuest, policy.Profile)
		assert.Equal(t, "guest", policy.Tier)
		assert.Equal(t, constants.ModelKindLite, policy.ModelKind)
		assert.Equal(t, constants.ResponseModeShieldOnly, policy.ResponseMode)
		assert.Equal(t, 1, policy.ItemCap)
		assert.Equal(t, 2, policy.Limit)
		assert.Equal(t, 2, policy.Remaining)
		assert.True(t, policy.Allowed())
		assert.True(t, policy.ResetAt.After(time.Now().UTC()))
	})

	t.Run("allowed events count against the visitor", func(t *testing.T) {
		f.recordAllowed(t, "v-used", nil, usage.ProfileGuest)

		policy, err := f.resolve.Execute(ctx, ResolvePolicyCommand{VisitorID: "v-used"})
		require.NoError(t, err)
		assert.Equal(t, 1, policy.Remaining)
	})

	t.Run("exhausted visitor is blocked", func(t *testing.T) {
		f.recordAllowed(t, "v-spent", nil, usage.ProfileGuest)
		f.recordAllowed(t, "v-spent", nil, usage.ProfileGuest)

		policy, err := f.resolve.Execute(ctx, ResolvePolicyCommand{VisitorID: "v-spent"})
		require.NoError(t, err)
		assert.Zero(t, policy.Remaining)
		assert.False(t, policy.Allowed())
	})

	t.Run("denied events never count", func(t *testing.T) {
		require.NoError(t, f.record.Execute(ctx, RecordUsageCommand{
			VisitorID: "v-denied",
			Profile:   usage.ProfileGuest,
			Endpoint:  "/api/consult",
			Allowed:   false,
			Reason:    "quota_exceeded",
		}))

		policy, err := f.resolve.Execute(ctx, ResolvePolicyCommand{VisitorID: "v-denied"})
		require.NoError(t, err)
		assert.Equal(t, 2, policy.Remaining)
	})

	t.Run("other visitors do not bleed into the count", func(t *testing.T) {
		f.recordAllowed(t, "v-other", nil, usage.ProfileGuest)

		policy, err := f.resolve.Execute(ctx, ResolvePolicyCommand{VisitorID: "v-isolated"})
		require.NoError(t, err)
		assert.Equal(t, 2, policy.Remaining)
	})
}

func TestResolvePolicy_Free(t *testing.T) {
	f := setupQuota(t)
	ctx := context.Background()
	userID := uint(42)

	t.Run("signed-in user without entitlement is free tier", func(t *testing.T) {
		policy, err := f.resolve.Execute(ctx, ResolvePolicyCommand{VisitorID: "v-1", UserID: &userID})
		require.NoError(t, err)

		assert.Equal(t, usage.ProfileFree, policy.Profile)
		assert.Equal(t, "free", policy.Tier)
		assert.Equal(t, constants.ModelKindLite, policy.ModelKind)
		assert.Equal(t, constants.ResponseModeDiagnosisAndShield, policy.ResponseMode)
		assert.Equal(t, 2, policy.ItemCap)
		assert.Equal(t, 3, policy.Limit)
		assert.Equal(t, 3, policy.Remaining)
		assert.Empty(t, policy.EntitlementSID)
	})

	t.Run("usage is counted per user across visitors", func(t *testing.T) {
		f.recordAllowed(t, "v-laptop", &userID, usage.ProfileFree)
		f.recordAllowed(t, "v-phone", &userID, usage.ProfileFree)

		policy, err := f.resolve.Execute(ctx, ResolvePolicyCommand{VisitorID: "v-laptop", UserID: &userID})
		require.NoError(t, err)
		assert.Equal(t, 1, policy.Remaining)
	})

	t.Run("expired entitlement falls back to free", func(t *testing.T) {
		expiredOwner := uint(77)
		ent := f.grantEntitlement(t, expiredOwner, 10, 100, time.Now().UTC().AddDate(0, 1, 0))
		require.NoError(t, f.db.Model(&models.EntitlementModel{}).
			Where("sid = ?", ent.SID()).
			Update("valid_until", time.Now().UTC().Add(-time.Hour)).Error)

		policy, err := f.resolve.Execute(ctx, ResolvePolicyCommand{VisitorID: "v-x", UserID: &expiredOwner})
		require.NoError(t, err)
		assert.Equal(t, usage.ProfileFree, policy.Profile)
	})
}

func TestResolvePolicy_Premium(t *testing.T) {
	f := setupQuota(t)
	ctx := context.Background()
	userID := uint(7)
	validUntil := time.Now().UTC().AddDate(0, 6, 0)

	ent := f.grantEntitlement(t, userID, 58, 100, validUntil)

	policy, err := f.resolve.Execute(ctx, ResolvePolicyCommand{VisitorID: "v-premium", UserID: &userID})
	require.NoError(t, err)

	assert.Equal(t, usage.ProfilePremium, policy.Profile)
	assert.Equal(t, "p99", policy.Tier)
	assert.Equal(t, constants.ModelKindFlash, policy.ModelKind)
	assert.Equal(t, constants.ResponseModeFull, policy.ResponseMode)
	assert.Zero(t, policy.ItemCap)
	assert.Equal(t, 100, policy.Limit)
	assert.Equal(t, 58, policy.Remaining)
	assert.Equal(t, ent.SID(), policy.EntitlementSID)
	assert.WithinDuration(t, validUntil, policy.ResetAt, time.Second)

	// daily usage never throttles the ledger-backed tier
	f.recordAllowed(t, "v-premium", &userID, usage.ProfilePremium)
	f.recordAllowed(t, "v-premium", &userID, usage.ProfilePremium)
	f.recordAllowed(t, "v-premium", &userID, usage.ProfilePremium)
	f.recordAllowed(t, "v-premium", &userID, usage.ProfilePremium)

	policy, err = f.resolve.Execute(ctx, ResolvePolicyCommand{VisitorID: "v-premium", UserID: &userID})
	require.NoError(t, err)
	assert.Equal(t, usage.ProfilePremium, policy.Profile)
	assert.Equal(t, 58, policy.Remaining)
}

func TestResolvePolicy_SubscriptionPremium(t *testing.T) {
	f := setupQuota(t)
	ctx := context.Background()

	periodStart := time.Now().UTC().Add(-24 * time.Hour)
	periodEnd := time.Now().UTC().Add(29 * 24 * time.Hour)

	t.Run("active subscription without entitlement is premium", func(t *testing.T) {
		userID := uint(77)
		f.activateSubscription(t, userID, "p99", &periodStart, &periodEnd)

		policy, err := f.resolve.Execute(ctx, ResolvePolicyCommand{VisitorID: "v-sub", UserID: &userID})
		require.NoError(t, err)

		assert.Equal(t, usage.ProfilePremium, policy.Profile)
		assert.Equal(t, "p99", policy.Tier)
		assert.Equal(t, constants.ModelKindFlash, policy.ModelKind)
		assert.Equal(t, constants.ResponseModeFull, policy.ResponseMode)
		assert.Zero(t, policy.ItemCap)
		assert.Equal(t, 100, policy.Limit)
		assert.Equal(t, 100, policy.Remaining)
		assert.Empty(t, policy.EntitlementSID)
		assert.WithinDuration(t, periodEnd, policy.ResetAt, time.Second)
	})

	t.Run("period usage counts against the plan quota", func(t *testing.T) {
		userID := uint(78)
		f.activateSubscription(t, userID, "p99", &periodStart, &periodEnd)

		f.recordAllowed(t, "v-sub-used", &userID, usage.ProfilePremium)
		f.recordAllowed(t, "v-sub-used", &userID, usage.ProfilePremium)

		policy, err := f.resolve.Execute(ctx, ResolvePolicyCommand{VisitorID: "v-sub-used", UserID: &userID})
		require.NoError(t, err)
		assert.Equal(t, 98, policy.Remaining)
	})

	t.Run("the entitlement ledger wins over the subscription", func(t *testing.T) {
		userID := uint(79)
		f.activateSubscription(t, userID, "p99", &periodStart, &periodEnd)
		ent := f.grantEntitlement(t, userID, 40, 100, time.Now().UTC().AddDate(0, 1, 0))

		policy, err := f.resolve.Execute(ctx, ResolvePolicyCommand{VisitorID: "v-both", UserID: &userID})
		require.NoError(t, err)
		assert.Equal(t, ent.SID(), policy.EntitlementSID)
		assert.Equal(t, 40, policy.Remaining)
	})

	t.Run("subscription without a period end falls back to free", func(t *testing.T) {
		userID := uint(80)
		f.activateSubscription(t, userID, "p99", nil, nil)

		policy, err := f.resolve.Execute(ctx, ResolvePolicyCommand{VisitorID: "v-sparse", UserID: &userID})
		require.NoError(t, err)
		assert.Equal(t, usage.ProfileFree, policy.Profile)
	})

	t.Run("subscription on an unknown plan falls back to free", func(t *testing.T) {
		userID := uint(81)
		f.activateSubscription(t, userID, "p_retired", &periodStart, &periodEnd)

		policy, err := f.resolve.Execute(ctx, ResolvePolicyCommand{VisitorID: "v-orphan", UserID: &userID})
		require.NoError(t, err)
		assert.Equal(t, usage.ProfileFree, policy.Profile)
	})
}

func TestConsumeAndRefundQuota(t *testing.T) {
	f := setupQuota(t)
	ctx := context.Background()
	userID := uint(9)

	t.Run("consume decrements and reports the remainder", func(t *testing.T) {
		f.grantEntitlement(t, userID, 2, 100, time.Now().UTC().AddDate(0, 1, 0))

		result, err := f.consume.Execute(ctx, ConsumeQuotaCommand{UserID: userID})
		require.NoError(t, err)
		assert.True(t, result.Consumed)
		assert.Equal(t, "p99", result.PlanCode)
		assert.Equal(t, 1, result.RemainingAfter)
		assert.NotEmpty(t, result.EntitlementSID)
	})

	t.Run("exhaustion is an outcome, not an error", func(t *testing.T) {
		result, err := f.consume.Execute(ctx, ConsumeQuotaCommand{UserID: userID})
		require.NoError(t, err)
		require.True(t, result.Consumed)
		assert.Zero(t, result.RemainingAfter)

		result, err = f.consume.Execute(ctx, ConsumeQuotaCommand{UserID: userID})
		require.NoError(t, err)
		assert.False(t, result.Consumed)
		assert.Empty(t, result.EntitlementSID)
	})

	t.Run("refund restores the unit", func(t *testing.T) {
		policyOwner := uint(10)
		ent := f.grantEntitlement(t, policyOwner, 1, 100, time.Now().UTC().AddDate(0, 1, 0))

		result, err := f.consume.Execute(ctx, ConsumeQuotaCommand{UserID: policyOwner})
		require.NoError(t, err)
		require.True(t, result.Consumed)

		require.NoError(t, f.refund.Execute(ctx, RefundQuotaCommand{EntitlementSID: ent.SID()}))

		again, err := f.consume.Execute(ctx, ConsumeQuotaCommand{UserID: policyOwner})
		require.NoError(t, err)
		assert.True(t, again.Consumed)
	})

	t.Run("refund of an unknown entitlement is a logged no-op", func(t *testing.T) {
		assert.NoError(t, f.refund.Execute(ctx, RefundQuotaCommand{EntitlementSID: "ent_missing"}))
	})

	t.Run("user without entitlements cannot consume", func(t *testing.T) {
		result, err := f.consume.Execute(ctx, ConsumeQuotaCommand{UserID: 9999})
		require.NoError(t, err)
		assert.False(t, result.Consumed)
	})
}

func TestRecordUsage_RejectsDeniedWithoutReason(t *testing.T) {
	f := setupQuota(t)

	err := f.record.Execute(context.Background(), RecordUsageCommand{
		VisitorID: "v-1",
		Profile:   usage.ProfileGuest,
		Allowed:   false,
	})

	assert.Error(t, err)
}
