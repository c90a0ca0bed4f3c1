package entitlement

// Status represents the lifecycle state of an entitlement. It is derived
// from remaining/validUntil and recomputed before use; the stored value is
// never trusted on its own.
type Status string

const (
	// StatusActive means the entitlement is inside its validity window and
	// has remaining quota.
	StatusActive Status = "active"

	// StatusQuotaExhausted means remaining reached zero while still inside
	// the validity window.
	StatusQuotaExhausted Status = "quota_exhausted"

	// StatusExpired means the validity window has lapsed.
	StatusExpired Status = "expired"

	// StatusReplaced is terminal: the entitlement was superseded by an
	// upgrade purchase. Distinguishes voluntary upgrade from natural lapse
	// in audit history.
	StatusReplaced Status = "replaced"
)

// ValidStatuses is the closed set of persistable statuses.
var ValidStatuses = map[Status]bool{
	StatusActive:         true,
	StatusQuotaExhausted: true,
	StatusExpired:        true,
	StatusReplaced:       true,
}

func (s Status) IsValid() bool {
	return ValidStatuses[s]
}

// IsTerminal reports whether the status can never transition again.
func (s Status) IsTerminal() bool {
	return s == StatusReplaced
}

func (s Status) String() string {
	return string(s)
}
