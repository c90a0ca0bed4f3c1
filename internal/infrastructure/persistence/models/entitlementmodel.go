package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/constants"
)

// EntitlementModel represents the database persistence model for entitlements.
// This is the anti-corruption layer between domain and database.
// CheckoutSessionID carries the unique constraint that makes duplicate
// webhook deliveries insert-or-no-op.
type EntitlementModel struct {
	ID                uint      `gorm:"primarykey"`
	SID               string    `gorm:"column:sid;uniqueIndex;not null;size:50;comment:public ID: ent_xxx"`
	UserID            uint      `gorm:"not null;index:idx_user_entitlement"`
	PlanCode          string    `gorm:"not null;size:20;index:idx_plan_code"`
	QuotaTotal        int       `gorm:"not null"`
	Remaining         int       `gorm:"not null"`
	ValidUntil        time.Time `gorm:"not null;index:idx_valid_until"`
	Status            string    `gorm:"not null;size:20;index:idx_ent_status"`
	CheckoutSessionID string    `gorm:"uniqueIndex;not null;size:255"`
	PaymentIntentID   string    `gorm:"size:255"`
	CustomerID        string    `gorm:"size:255;index:idx_ent_customer"`
	PriceID           string    `gorm:"size:255"`
	Version           int       `gorm:"not null;default:1"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName specifies the table name for GORM
func (EntitlementModel) TableName() string {
	return constants.TableEntitlements
}

// BeforeCreate hook for GORM
func (m *EntitlementModel) BeforeCreate(tx *gorm.DB) error {
	if m.Version == 0 {
		m.Version = 1
	}
	return nil
}
