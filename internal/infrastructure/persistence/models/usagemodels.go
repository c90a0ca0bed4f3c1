package models

import (
	"time"

	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/constants"
)

// UsageEventModel represents the append-only usage fact table. Rows are
// inserted once and never updated; counters are computed by windowed counts.
type UsageEventModel struct {
	ID             uint      `gorm:"primarykey"`
	SID            string    `gorm:"column:sid;uniqueIndex;not null;size:50"`
	VisitorID      string    `gorm:"not null;size:64;index:idx_visitor_created,priority:1"`
	UserID         *uint     `gorm:"index:idx_usage_user_created,priority:1"`
	Profile        string    `gorm:"not null;size:10"`
	PlanCode       string    `gorm:"size:20"`
	ModelUsed      string    `gorm:"size:40"`
	Endpoint       string    `gorm:"size:80"`
	Allowed        bool      `gorm:"not null;index:idx_visitor_created,priority:2;index:idx_usage_user_created,priority:2"`
	Reason         string    `gorm:"size:80"`
	EntitlementSID string    `gorm:"column:entitlement_sid;size:50"`
	IPHash         string    `gorm:"size:64"`
	CreatedAt      time.Time `gorm:"index:idx_visitor_created,priority:3;index:idx_usage_user_created,priority:3"`
}

func (UsageEventModel) TableName() string {
	return constants.TableUsageEvents
}

// VisitorModel represents anonymous browser identities.
type VisitorModel struct {
	VisitorID  string `gorm:"primarykey;size:64"`
	UserID     *uint  `gorm:"index:idx_visitor_user"`
	CreatedAt  time.Time
	LastSeenAt time.Time `gorm:"not null"`
}

func (VisitorModel) TableName() string {
	return constants.TableVisitors
}

// SessionModel stores peppered SHA-256 hashes of session cookies. The raw
// session ID never touches the database.
type SessionModel struct {
	ID            uint       `gorm:"primarykey"`
	SessionIDHash string     `gorm:"uniqueIndex;not null;size:64"`
	UserID        uint       `gorm:"not null;index:idx_session_user"`
	IP            string     `gorm:"size:64"`
	UserAgent     string     `gorm:"size:255"`
	ExpiresAt     time.Time  `gorm:"not null;index:idx_session_expires"`
	RevokedAt     *time.Time
	CreatedAt     time.Time
	LastSeenAt    time.Time
}

func (SessionModel) TableName() string {
	return constants.TableSessions
}
