package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/plan"
	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/persistence/models"
)

func savePlan(t *testing.T, repo plan.Repository, code, price string, priceCents int64, features []string) *plan.Plan {
	t.Helper()

	p, err := plan.NewPlan(code, "Plan "+code, 100, priceCents, "mxn", price, 12)
	require.NoError(t, err)
	p.SetFeatures(features)
	require.NoError(t, repo.Save(context.Background(), p))
	return p
}

func TestPlanRepository_SaveAndLookup(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPlanRepository(db, testLogger())
	ctx := context.Background()

	features := []string{"100 consultas", "Vigencia de 12 meses"}
	savePlan(t, repo, "p99", "price_p99", 9900, features)

	t.Run("by code", func(t *testing.T) {
		p, err := repo.GetByCode(ctx, "p99")
		require.NoError(t, err)
		assert.Equal(t, "p99", p.Code())
		assert.Equal(t, int64(9900), p.PriceCents())
		assert.Equal(t, features, p.Features())
	})

	t.Run("by provider price", func(t *testing.T) {
		p, err := repo.GetByProviderPrice(ctx, "price_p99")
		require.NoError(t, err)
		assert.Equal(t, "p99", p.Code())
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := repo.GetByCode(ctx, "p999")
		assert.ErrorIs(t, err, plan.ErrPlanNotFound)
	})

	t.Run("unknown price", func(t *testing.T) {
		_, err := repo.GetByProviderPrice(ctx, "price_retired")
		assert.ErrorIs(t, err, plan.ErrPlanNotFound)
	})
}

func TestPlanRepository_SaveIsSeedFriendly(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPlanRepository(db, testLogger())
	ctx := context.Background()

	savePlan(t, repo, "p99", "price_old", 9900, []string{"old"})

	// re-running the seed with updated values converges on one row
	updated, err := plan.NewPlan("p99", "Plan Asesoría", 120, 10900, "mxn", "price_new", 12)
	require.NoError(t, err)
	updated.SetFeatures([]string{"120 consultas"})
	require.NoError(t, repo.Save(ctx, updated))

	var count int64
	require.NoError(t, db.Model(&models.PlanModel{}).Where("code = ?", "p99").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	p, err := repo.GetByCode(ctx, "p99")
	require.NoError(t, err)
	assert.Equal(t, 120, p.QuotaTotal())
	assert.Equal(t, int64(10900), p.PriceCents())
	assert.Equal(t, "price_new", p.ProviderPrice())
	assert.Equal(t, []string{"120 consultas"}, p.Features())
}

func TestPlanRepository_ListActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPlanRepository(db, testLogger())
	ctx := context.Background()

	savePlan(t, repo, "p199", "price_p199", 19900, nil)
	savePlan(t, repo, "p99", "price_p99", 9900, nil)

	require.NoError(t, db.Model(&models.PlanModel{}).
		Where("code = ?", "p199").Update("active", false).Error)

	plans, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "p99", plans[0].Code())
}
