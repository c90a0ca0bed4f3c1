package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/subscription"
	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/persistence/models"
)

func periodPtr(t time.Time) *time.Time {
	return &t
}

func TestSubscriptionRepository_Upsert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepository(db, testLogger())
	ctx := context.Background()

	start := time.Now().UTC()
	end := start.AddDate(0, 1, 0)

	t.Run("creates on first delivery", func(t *testing.T) {
		sub, err := repo.Upsert(ctx, subscription.UpsertParams{
			UserID:        1,
			ProviderSubID: "sub_first",
			PlanCode:      "p99",
			Status:        subscription.StatusActive,
			CustomerID:    "cus_1",
			PriceID:       "price_1",
			PeriodStart:   periodPtr(start),
			PeriodEnd:     periodPtr(end),
		})
		require.NoError(t, err)
		assert.NotZero(t, sub.ID())
		assert.Equal(t, "p99", sub.PlanCode())
	})

	t.Run("re-delivery merges instead of duplicating", func(t *testing.T) {
		_, err := repo.Upsert(ctx, subscription.UpsertParams{
			UserID:        1,
			ProviderSubID: "sub_first",
			Status:        subscription.StatusActive,
		})
		require.NoError(t, err)

		var count int64
		require.NoError(t, db.Model(&models.SubscriptionModel{}).
			Where("provider_sub_id = ?", "sub_first").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("partial event preserves known period data", func(t *testing.T) {
		// A plan-change event without period dates must not null out the
		// period learned from the last payment event.
		sub, err := repo.Upsert(ctx, subscription.UpsertParams{
			UserID:        1,
			ProviderSubID: "sub_first",
			PlanCode:      "p199",
			Status:        subscription.StatusActive,
		})
		require.NoError(t, err)

		assert.Equal(t, "p199", sub.PlanCode())
		require.NotNil(t, sub.CurrentPeriodStart())
		require.NotNil(t, sub.CurrentPeriodEnd())
		assert.WithinDuration(t, start, *sub.CurrentPeriodStart(), time.Second)
		assert.WithinDuration(t, end, *sub.CurrentPeriodEnd(), time.Second)
	})

	t.Run("activation demotes the previous active subscription", func(t *testing.T) {
		newer, err := repo.Upsert(ctx, subscription.UpsertParams{
			UserID:        1,
			ProviderSubID: "sub_second",
			PlanCode:      "p199",
			Status:        subscription.StatusActive,
			PeriodStart:   periodPtr(start),
			PeriodEnd:     periodPtr(end),
		})
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, newer.Status())

		old, err := repo.GetByProviderSubID(ctx, "sub_first")
		require.NoError(t, err)
		require.NotNil(t, old)
		assert.Equal(t, subscription.StatusReplaced, old.Status())

		active, err := repo.GetActiveByUserID(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, "sub_second", active.ProviderSubID())
	})

	t.Run("cancellation keeps the row with canceled status", func(t *testing.T) {
		sub, err := repo.Upsert(ctx, subscription.UpsertParams{
			UserID:        1,
			ProviderSubID: "sub_second",
			Status:        subscription.StatusCanceled,
		})
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusCanceled, sub.Status())
		assert.NotNil(t, sub.CanceledAt())

		active, err := repo.GetActiveByUserID(ctx, 1)
		require.NoError(t, err)
		assert.Nil(t, active)
	})
}

func TestSubscriptionRepository_GetByProviderSubID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepository(db, testLogger())
	ctx := context.Background()

	sub, err := repo.GetByProviderSubID(ctx, "sub_absent")
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestSubscriptionRepository_ListByUserID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepository(db, testLogger())
	ctx := context.Background()

	for _, id := range []string{"sub_a", "sub_b"} {
		_, err := repo.Upsert(ctx, subscription.UpsertParams{
			UserID:        7,
			ProviderSubID: id,
			Status:        subscription.StatusActive,
		})
		require.NoError(t, err)
	}

	subs, err := repo.ListByUserID(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, subs, 2)
}
