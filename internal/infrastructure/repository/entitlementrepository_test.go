package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/entitlement"
	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/persistence/models"
)

func TestEntitlementRepository_Create_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEntitlementRepository(db, testLogger())
	ctx := context.Background()

	validUntil := time.Now().UTC().AddDate(1, 0, 0)

	first := createTestEntitlement(t, 1, 100, 100, validUntil, "cs_test_abc")
	require.NoError(t, repo.Create(ctx, first))
	assert.NotZero(t, first.ID())

	// Re-delivery of the same checkout event must not create a second row.
	for i := 0; i < 3; i++ {
		dup := createTestEntitlement(t, 1, 100, 100, validUntil, "cs_test_abc")
		err := repo.Create(ctx, dup)
		assert.ErrorIs(t, err, entitlement.ErrDuplicateEntitlement)
	}

	var count int64
	require.NoError(t, db.Model(&models.EntitlementModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestEntitlementRepository_ConsumeOne(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEntitlementRepository(db, testLogger())
	ctx := context.Background()

	validUntil := time.Now().UTC().AddDate(1, 0, 0)

	t.Run("decrements and reports remaining", func(t *testing.T) {
		ent := createTestEntitlement(t, 10, 2, 2, validUntil, "cs_consume_1")
		require.NoError(t, repo.Create(ctx, ent))

		result, err := repo.ConsumeOne(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, ent.SID(), result.EntitlementSID)
		assert.Equal(t, "p99", result.PlanCode)
		assert.Equal(t, 1, result.RemainingAfter)
	})

	t.Run("exhaustion yields no capacity", func(t *testing.T) {
		ent := createTestEntitlement(t, 11, 1, 1, validUntil, "cs_consume_2")
		require.NoError(t, repo.Create(ctx, ent))

		result, err := repo.ConsumeOne(ctx, 11)
		require.NoError(t, err)
		assert.Equal(t, 0, result.RemainingAfter)

		_, err = repo.ConsumeOne(ctx, 11)
		assert.ErrorIs(t, err, entitlement.ErrNoCapacity)
	})

	t.Run("expired entitlement never consumed", func(t *testing.T) {
		ent := createTestEntitlement(t, 12, 5, 5, validUntil, "cs_consume_3")
		require.NoError(t, repo.Create(ctx, ent))
		expireEntitlement(t, db, ent.SID())

		_, err := repo.ConsumeOne(ctx, 12)
		assert.ErrorIs(t, err, entitlement.ErrNoCapacity)
	})

	t.Run("no entitlement at all", func(t *testing.T) {
		_, err := repo.ConsumeOne(ctx, 999)
		assert.ErrorIs(t, err, entitlement.ErrNoCapacity)
	})
}

func TestEntitlementRepository_ConsumeOne_Concurrent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEntitlementRepository(db, testLogger())
	ctx := context.Background()

	validUntil := time.Now().UTC().AddDate(1, 0, 0)
	ent := createTestEntitlement(t, 20, 3, 10, validUntil, "cs_concurrent")
	require.NoError(t, repo.Create(ctx, ent))

	const callers = 5
	results := make([]int, 0, callers)
	failures := 0

	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := repo.ConsumeOne(ctx, 20)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.Is(err, entitlement.ErrNoCapacity) {
					failures++
				}
				return
			}
			results = append(results, result.RemainingAfter)
		}()
	}
	wg.Wait()

	// Exactly remaining successes, no lost updates, no negative remaining.
	assert.Len(t, results, 3)
	assert.Equal(t, 2, failures)
	assert.ElementsMatch(t, []int{2, 1, 0}, results)

	var model models.EntitlementModel
	require.NoError(t, db.Where("sid = ?", ent.SID()).First(&model).Error)
	assert.Equal(t, 0, model.Remaining)
	assert.Equal(t, entitlement.StatusQuotaExhausted.String(), model.Status)
}

func TestEntitlementRepository_Refund(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEntitlementRepository(db, testLogger())
	ctx := context.Background()

	validUntil := time.Now().UTC().AddDate(1, 0, 0)

	t.Run("reactivates an exhausted entitlement", func(t *testing.T) {
		ent := createTestEntitlement(t, 30, 0, 1, validUntil, "cs_refund_1")
		require.NoError(t, repo.Create(ctx, ent))

		require.NoError(t, repo.Refund(ctx, ent.SID()))

		var model models.EntitlementModel
		require.NoError(t, db.Where("sid = ?", ent.SID()).First(&model).Error)
		assert.Equal(t, 1, model.Remaining)
		assert.Equal(t, entitlement.StatusActive.String(), model.Status)
	})

	t.Run("refund outside validity window is dropped", func(t *testing.T) {
		ent := createTestEntitlement(t, 31, 0, 1, validUntil, "cs_refund_2")
		require.NoError(t, repo.Create(ctx, ent))
		expireEntitlement(t, db, ent.SID())

		require.NoError(t, repo.Refund(ctx, ent.SID()))

		var model models.EntitlementModel
		require.NoError(t, db.Where("sid = ?", ent.SID()).First(&model).Error)
		assert.Equal(t, 0, model.Remaining)
	})

	t.Run("unknown entitlement", func(t *testing.T) {
		err := repo.Refund(ctx, "ent_missing")
		assert.ErrorIs(t, err, entitlement.ErrEntitlementNotFound)
	})
}

func TestEntitlementRepository_GetActiveByUserID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEntitlementRepository(db, testLogger())
	ctx := context.Background()

	t.Run("returns nil without error when absent", func(t *testing.T) {
		ent, err := repo.GetActiveByUserID(ctx, 40)
		require.NoError(t, err)
		assert.Nil(t, ent)
	})

	t.Run("sweeps due rows to expired before selecting", func(t *testing.T) {
		ent := createTestEntitlement(t, 41, 5, 5, time.Now().UTC().AddDate(1, 0, 0), "cs_active_1")
		require.NoError(t, repo.Create(ctx, ent))
		expireEntitlement(t, db, ent.SID())

		got, err := repo.GetActiveByUserID(ctx, 41)
		require.NoError(t, err)
		assert.Nil(t, got)

		var model models.EntitlementModel
		require.NoError(t, db.Where("sid = ?", ent.SID()).First(&model).Error)
		assert.Equal(t, entitlement.StatusExpired.String(), model.Status)
	})

	t.Run("prefers the soonest expiring usable entitlement", func(t *testing.T) {
		near := time.Now().UTC().AddDate(0, 1, 0)
		far := time.Now().UTC().AddDate(1, 0, 0)

		second := createTestEntitlement(t, 42, 3, 3, far, "cs_active_far")
		require.NoError(t, repo.Create(ctx, second))
		first := createTestEntitlement(t, 42, 3, 3, near, "cs_active_near")
		require.NoError(t, repo.Create(ctx, first))

		got, err := repo.GetActiveByUserID(ctx, 42)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, first.SID(), got.SID())
	})
}

func TestEntitlementRepository_MarkReplaced(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEntitlementRepository(db, testLogger())
	ctx := context.Background()

	validUntil := time.Now().UTC().AddDate(1, 0, 0)
	ent := createTestEntitlement(t, 50, 40, 100, validUntil, "cs_replace_1")
	require.NoError(t, repo.Create(ctx, ent))

	require.NoError(t, repo.MarkReplaced(ctx, ent.SID()))

	// Replaced is terminal: the row survives for audit but is never usable.
	got, err := repo.GetActiveByUserID(ctx, 50)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = repo.ConsumeOne(ctx, 50)
	assert.ErrorIs(t, err, entitlement.ErrNoCapacity)

	assert.ErrorIs(t, repo.MarkReplaced(ctx, "ent_unknown"), entitlement.ErrEntitlementNotFound)
}
