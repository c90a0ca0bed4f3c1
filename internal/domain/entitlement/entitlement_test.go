package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

func newValidEntitlement(t *testing.T) *Entitlement {
	t.Helper()
	validUntil := time.Now().UTC().AddDate(1, 0, 0)
	ent, err := NewEntitlement(1, "p99", 100, validUntil, "cs_test_123")
	require.NoError(t, err)
	require.NotNil(t, ent)
	return ent
}

func reconstructEntitlement(t *testing.T, remaining int, validUntil time.Time, status Status) *Entitlement {
	t.Helper()
	ent, err := Reconstruct(ReconstructParams{
		ID:                1,
		SID:               "ent_test12345678",
		UserID:            10,
		PlanCode:          "p99",
		QuotaTotal:        100,
		Remaining:         remaining,
		ValidUntil:        validUntil,
		Status:            status,
		CheckoutSessionID: "cs_test_123",
		CreatedAt:         time.Now().UTC().AddDate(0, -1, 0),
		UpdatedAt:         time.Now().UTC(),
		Version:           1,
	})
	require.NoError(t, err)
	return ent
}

func TestNewEntitlement_ValidInput(t *testing.T) {
	ent := newValidEntitlement(t)

	assert.NotEmpty(t, ent.SID(), "SID should be generated")
	assert.True(t, len(ent.SID()) > 4 && ent.SID()[:4] == "ent_", "SID should carry the ent_ prefix")
	assert.Equal(t, uint(1), ent.UserID())
	assert.Equal(t, "p99", ent.PlanCode())
	assert.Equal(t, 100, ent.QuotaTotal())
	assert.Equal(t, 100, ent.Remaining(), "fresh entitlement starts with full quota")
	assert.Equal(t, StatusActive, ent.Status())
	assert.Equal(t, "cs_test_123", ent.CheckoutSessionID())
	assert.Equal(t, 1, ent.Version())
}

func TestNewEntitlement_InvalidInput(t *testing.T) {
	future := time.Now().UTC().AddDate(1, 0, 0)

	tests := []struct {
		name       string
		userID     uint
		planCode   string
		quotaTotal int
		validUntil time.Time
		sessionID  string
	}{
		{"zero user ID", 0, "p99", 100, future, "cs_1"},
		{"empty plan code", 1, "", 100, future, "cs_1"},
		{"zero quota", 1, "p99", 0, future, "cs_1"},
		{"negative quota", 1, "p99", -5, future, "cs_1"},
		{"empty session ID", 1, "p99", 100, future, ""},
		{"valid until in the past", 1, "p99", 100, time.Now().UTC().Add(-time.Hour), "cs_1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ent, err := NewEntitlement(tt.userID, tt.planCode, tt.quotaTotal, tt.validUntil, tt.sessionID)
			assert.Error(t, err)
			assert.Nil(t, ent)
		})
	}
}

func TestReconstruct_RejectsOutOfRangeRemaining(t *testing.T) {
	params := ReconstructParams{
		ID: 1, SID: "ent_x", UserID: 1, PlanCode: "p99",
		QuotaTotal: 100, Remaining: 101,
		ValidUntil: time.Now().UTC().AddDate(0, 1, 0),
		Status:     StatusActive,
	}

	ent, err := Reconstruct(params)
	assert.Error(t, err)
	assert.Nil(t, ent)

	params.Remaining = -1
	ent, err = Reconstruct(params)
	assert.Error(t, err)
	assert.Nil(t, ent)
}

func TestEntitlement_Consume(t *testing.T) {
	now := time.Now().UTC()

	t.Run("decrements remaining", func(t *testing.T) {
		ent := reconstructEntitlement(t, 3, now.AddDate(0, 1, 0), StatusActive)

		require.NoError(t, ent.Consume(now))
		assert.Equal(t, 2, ent.Remaining())
		assert.Equal(t, StatusActive, ent.Status())
	})

	t.Run("last unit exhausts quota", func(t *testing.T) {
		ent := reconstructEntitlement(t, 1, now.AddDate(0, 1, 0), StatusActive)

		require.NoError(t, ent.Consume(now))
		assert.Equal(t, 0, ent.Remaining())
		assert.Equal(t, StatusQuotaExhausted, ent.Status())

		err := ent.Consume(now)
		assert.ErrorIs(t, err, ErrNoCapacity)
		assert.Equal(t, 0, ent.Remaining(), "remaining never goes negative")
	})

	t.Run("expiry checked before quota", func(t *testing.T) {
		ent := reconstructEntitlement(t, 50, now.Add(-time.Minute), StatusActive)

		err := ent.Consume(now)
		assert.ErrorIs(t, err, ErrEntitlementExpired)
		assert.Equal(t, 50, ent.Remaining())
	})

	t.Run("replaced entitlement rejects consume", func(t *testing.T) {
		ent := reconstructEntitlement(t, 50, now.AddDate(0, 1, 0), StatusReplaced)

		err := ent.Consume(now)
		assert.ErrorIs(t, err, ErrEntitlementReplaced)
	})
}

func TestEntitlement_Refund(t *testing.T) {
	now := time.Now().UTC()

	t.Run("reactivates exhausted entitlement", func(t *testing.T) {
		ent := reconstructEntitlement(t, 0, now.AddDate(0, 1, 0), StatusQuotaExhausted)

		assert.True(t, ent.Refund(now))
		assert.Equal(t, 1, ent.Remaining())
		assert.Equal(t, StatusActive, ent.Status())
	})

	t.Run("no-op past validity window", func(t *testing.T) {
		ent := reconstructEntitlement(t, 0, now.Add(-time.Hour), StatusExpired)

		assert.False(t, ent.Refund(now))
		assert.Equal(t, 0, ent.Remaining())
	})

	t.Run("never exceeds quota total", func(t *testing.T) {
		ent := reconstructEntitlement(t, 100, now.AddDate(0, 1, 0), StatusActive)

		assert.False(t, ent.Refund(now))
		assert.Equal(t, 100, ent.Remaining())
	})

	t.Run("replaced entitlement is not refundable", func(t *testing.T) {
		ent := reconstructEntitlement(t, 5, now.AddDate(0, 1, 0), StatusReplaced)

		assert.False(t, ent.Refund(now))
	})
}

func TestEntitlement_EffectiveStatus(t *testing.T) {
	now := time.Now().UTC()
	future := now.AddDate(0, 1, 0)
	past := now.Add(-time.Minute)

	tests := []struct {
		name       string
		remaining  int
		validUntil time.Time
		stored     Status
		want       Status
	}{
		{"active with quota", 10, future, StatusActive, StatusActive},
		{"stored active but expired window", 10, past, StatusActive, StatusExpired},
		{"stored active but zero remaining", 0, future, StatusActive, StatusQuotaExhausted},
		{"expired wins over exhausted", 0, past, StatusQuotaExhausted, StatusExpired},
		{"stored exhausted with quota restored", 10, future, StatusQuotaExhausted, StatusActive},
		{"replaced is sticky", 10, future, StatusReplaced, StatusReplaced},
		{"replaced sticky even past expiry", 10, past, StatusReplaced, StatusReplaced},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ent := reconstructEntitlement(t, tt.remaining, tt.validUntil, tt.stored)
			assert.Equal(t, tt.want, ent.EffectiveStatus(now))
		})
	}
}

func TestEntitlement_Replace(t *testing.T) {
	now := time.Now().UTC()
	ent := reconstructEntitlement(t, 40, now.AddDate(0, 1, 0), StatusActive)

	require.NoError(t, ent.Replace())
	assert.Equal(t, StatusReplaced, ent.Status())

	// idempotent
	require.NoError(t, ent.Replace())
	assert.Equal(t, StatusReplaced, ent.Status())
}

func TestEntitlement_UpgradeCredit(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name      string
		remaining int
		fromPrice int64
		toPrice   int64
		want      int64
	}{
		{"proportional floor", 40, 9900, 19900, 3960},
		{"full remaining equals full price capped", 100, 9900, 19900, 9900},
		{"capped at destination price", 100, 29900, 19900, 19900},
		{"zero remaining no credit", 0, 9900, 19900, 0},
		{"zero source price no credit", 50, 0, 19900, 0},
		{"floor rounds down", 1, 9900, 19900, 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ent := reconstructEntitlement(t, tt.remaining, now.AddDate(0, 1, 0), StatusActive)
			got := ent.UpgradeCredit(tt.fromPrice, tt.toPrice)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, int64(0), "credit is never negative")
			assert.LessOrEqual(t, got, tt.toPrice, "credit never exceeds destination price")
		})
	}
}
