package usage

import (
	"fmt"
	"time"
)

// Visitor is an anonymous browser identity, optionally linked to a user once
// they authenticate. Last seen refreshes on every interaction; the user link
// is set once and never cleared by an anonymous interaction.
type Visitor struct {
	VisitorID  string
	UserID     *uint
	FirstSeen  time.Time
	LastSeenAt time.Time
}

// NewVisitor creates a visitor record.
func NewVisitor(visitorID string, userID *uint) (*Visitor, error) {
	if visitorID == "" {
		return nil, fmt.Errorf("visitor ID is required")
	}
	now := time.Now().UTC()
	return &Visitor{
		VisitorID:  visitorID,
		UserID:     userID,
		FirstSeen:  now,
		LastSeenAt: now,
	}, nil
}
