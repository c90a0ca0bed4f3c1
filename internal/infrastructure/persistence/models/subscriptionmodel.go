package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/constants"
)

// SubscriptionModel represents the database persistence model for
// subscriptions. ProviderSubID is the provider-side upsert key.
type SubscriptionModel struct {
	ID                 uint   `gorm:"primarykey"`
	UserID             uint   `gorm:"not null;index:idx_user_subscription"`
	PlanCode           string `gorm:"size:20"`
	Status             string `gorm:"not null;size:20;index:idx_sub_status"`
	ProviderSubID      string `gorm:"uniqueIndex;not null;size:255"`
	CustomerID         string `gorm:"size:255;index:idx_sub_customer"`
	PriceID            string `gorm:"size:255"`
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time `gorm:"index:idx_period_end"`
	CanceledAt         *time.Time
	Version            int `gorm:"not null;default:1"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TableName specifies the table name for GORM
func (SubscriptionModel) TableName() string {
	return constants.TableSubscriptions
}

// BeforeCreate hook for GORM
func (m *SubscriptionModel) BeforeCreate(tx *gorm.DB) error {
	if m.Version == 0 {
		m.Version = 1
	}
	return nil
}
