package usage

import (
	"fmt"
	"time"

	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/id"
)

// Profile is the resolved service level at request time.
type Profile string

const (
	ProfileGuest   Profile = "guest"
	ProfileFree    Profile = "free"
	ProfilePremium Profile = "premium"
)

func (p Profile) String() string {
	return string(p)
}

func (p Profile) IsValid() bool {
	return p == ProfileGuest || p == ProfileFree || p == ProfilePremium
}

// UsageEvent is an immutable record of a quota-relevant request outcome.
// Free and guest tier counters are computed by counting allowed events
// inside a time window, so rows are append-only and never updated.
type UsageEvent struct {
	SID            string
	VisitorID      string
	UserID         *uint
	Profile        Profile
	PlanCode       string
	ModelUsed      string
	Endpoint       string
	Allowed        bool
	Reason         string
	EntitlementSID string
	IPHash         string
	CreatedAt      time.Time
}

// NewUsageEvent builds an allowed or denied usage fact. reason must be set
// when allowed is false.
func NewUsageEvent(
	visitorID string,
	userID *uint,
	profile Profile,
	planCode, modelUsed, endpoint string,
	allowed bool,
	reason string,
	entitlementSID string,
	ipHash string,
) (*UsageEvent, error) {
	if visitorID == "" {
		return nil, fmt.Errorf("visitor ID is required")
	}
	if !profile.IsValid() {
		return nil, fmt.Errorf("invalid profile: %s", profile)
	}
	if !allowed && reason == "" {
		return nil, fmt.Errorf("denied events require a reason")
	}

	return &UsageEvent{
		SID:            id.MustGenerateWithPrefix(id.PrefixUsageEvent, id.DefaultLength),
		VisitorID:      visitorID,
		UserID:         userID,
		Profile:        profile,
		PlanCode:       planCode,
		ModelUsed:      modelUsed,
		Endpoint:       endpoint,
		Allowed:        allowed,
		Reason:         reason,
		EntitlementSID: entitlementSID,
		IPHash:         ipHash,
		CreatedAt:      time.Now().UTC(),
	}, nil
}
