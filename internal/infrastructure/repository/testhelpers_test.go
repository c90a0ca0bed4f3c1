package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/entitlement"
	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/persistence/models"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// One connection: each in-memory sqlite database is per-connection, and
	// a single writer stands in for row locking in concurrency tests.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.UserModel{},
		&models.PlanModel{},
		&models.EntitlementModel{},
		&models.SubscriptionModel{},
		&models.UsageEventModel{},
		&models.VisitorModel{},
		&models.SessionModel{},
	)
	require.NoError(t, err)

	return db
}

func testLogger() logger.Interface {
	return logger.NewLogger()
}

func createTestEntitlement(t *testing.T, userID uint, remaining, total int, validUntil time.Time, sessionID string) *entitlement.Entitlement {
	t.Helper()

	ent, err := entitlement.NewEntitlement(userID, "p99", total, validUntil, sessionID)
	require.NoError(t, err)
	for i := 0; i < total-remaining; i++ {
		require.NoError(t, ent.Consume(time.Now().UTC()))
	}
	return ent
}

// expireEntitlement backdates the persisted row. NewEntitlement refuses a
// lapsed expiry, so expiry-path tests lapse the grant after insertion.
func expireEntitlement(t *testing.T, db *gorm.DB, sid string) {
	t.Helper()

	require.NoError(t, db.Model(&models.EntitlementModel{}).
		Where("sid = ?", sid).
		Update("valid_until", time.Now().UTC().Add(-time.Hour)).Error)
}
