package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/constants"
)

// PlanModel represents the database persistence model for the plan catalog.
// Features is a JSON array of marketing bullets rendered on the pricing page.
type PlanModel struct {
	ID             uint           `gorm:"primarykey"`
	Code           string         `gorm:"uniqueIndex;not null;size:20"`
	Name           string         `gorm:"size:100"`
	QuotaTotal     int            `gorm:"not null"`
	PriceCents     int64          `gorm:"not null"`
	Currency       string         `gorm:"not null;size:3;default:mxn"`
	ProviderPrice  string         `gorm:"index:idx_provider_price;size:255"`
	ValidityMonths int            `gorm:"not null;default:12"`
	Features       datatypes.JSON `gorm:"type:json"`
	Active         bool           `gorm:"not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (PlanModel) TableName() string {
	return constants.TablePlans
}

// UserModel represents the database persistence model for users.
type UserModel struct {
	ID                 uint   `gorm:"primarykey"`
	SID                string `gorm:"column:sid;uniqueIndex;not null;size:50"`
	Email              string `gorm:"uniqueIndex;not null;size:255"`
	ProviderCustomerID string `gorm:"index:idx_user_customer;size:255"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (UserModel) TableName() string {
	return constants.TableUsers
}
