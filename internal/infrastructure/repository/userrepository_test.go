package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/user"
	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/persistence/models"
)

func TestUserRepository_UpsertByEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db, testLogger())
	ctx := context.Background()

	t.Run("creates on first sight", func(t *testing.T) {
		u, err := repo.UpsertByEmail(ctx, "maria@example.com")
		require.NoError(t, err)

		assert.NotZero(t, u.ID())
		assert.NotEmpty(t, u.SID())
		assert.Equal(t, "maria@example.com", u.Email())
	})

	t.Run("repeat upserts converge on one row", func(t *testing.T) {
		first, err := repo.UpsertByEmail(ctx, "pedro@example.com")
		require.NoError(t, err)

		second, err := repo.UpsertByEmail(ctx, "pedro@example.com")
		require.NoError(t, err)
		assert.Equal(t, first.ID(), second.ID())
		assert.Equal(t, first.SID(), second.SID())

		var count int64
		require.NoError(t, db.Model(&models.UserModel{}).
			Where("email = ?", "pedro@example.com").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("email is normalized before the unique check", func(t *testing.T) {
		first, err := repo.UpsertByEmail(ctx, "Ana@Example.com")
		require.NoError(t, err)
		assert.Equal(t, "ana@example.com", first.Email())

		second, err := repo.UpsertByEmail(ctx, "  ANA@EXAMPLE.COM  ")
		require.NoError(t, err)
		assert.Equal(t, first.ID(), second.ID())
	})

	t.Run("invalid email is rejected", func(t *testing.T) {
		_, err := repo.UpsertByEmail(ctx, "not-an-email")
		assert.Error(t, err)
	})
}

func TestUserRepository_ProviderCustomerLink(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db, testLogger())
	ctx := context.Background()

	u, err := repo.UpsertByEmail(ctx, "maria@example.com")
	require.NoError(t, err)

	t.Run("unlinked customer resolves to nil", func(t *testing.T) {
		found, err := repo.GetByProviderCustomerID(ctx, "cus_123")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("link persists and resolves", func(t *testing.T) {
		u.LinkProviderCustomer("cus_123")
		require.NoError(t, repo.Update(ctx, u))

		found, err := repo.GetByProviderCustomerID(ctx, "cus_123")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, u.ID(), found.ID())
		assert.Equal(t, "cus_123", found.ProviderCustomerID())
	})

	t.Run("updating an unknown user reports not found", func(t *testing.T) {
		ghost, err := user.NewUser("ghost@example.com")
		require.NoError(t, err)
		require.NoError(t, ghost.SetID(9999))

		assert.ErrorIs(t, repo.Update(ctx, ghost), user.ErrUserNotFound)
	})
}

func TestUserRepository_Lookups(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db, testLogger())
	ctx := context.Background()

	created, err := repo.UpsertByEmail(ctx, "maria@example.com")
	require.NoError(t, err)

	t.Run("by id", func(t *testing.T) {
		found, err := repo.GetByID(ctx, created.ID())
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, created.Email(), found.Email())
	})

	t.Run("by id absent is nil without error", func(t *testing.T) {
		found, err := repo.GetByID(ctx, 9999)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("by sid", func(t *testing.T) {
		found, err := repo.GetBySID(ctx, created.SID())
		require.NoError(t, err)
		assert.Equal(t, created.ID(), found.ID())
	})

	t.Run("by sid absent is an error", func(t *testing.T) {
		_, err := repo.GetBySID(ctx, "usr_missing")
		assert.ErrorIs(t, err, user.ErrUserNotFound)
	})
}
