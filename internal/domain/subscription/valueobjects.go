package subscription

// Status represents the recurring-billing state reported by the provider,
// normalized to the closed local set.
type Status string

const (
	StatusActive     Status = "active"
	StatusPastDue    Status = "past_due"
	StatusCanceled   Status = "canceled"
	StatusExpired    Status = "expired"
	StatusIncomplete Status = "incomplete"

	// StatusReplaced marks a subscription demoted because another one became
	// active for the same owner. At most one subscription per owner is ever
	// active.
	StatusReplaced Status = "replaced"
)

// ValidStatuses is the closed set of persistable statuses.
var ValidStatuses = map[Status]bool{
	StatusActive:     true,
	StatusPastDue:    true,
	StatusCanceled:   true,
	StatusExpired:    true,
	StatusIncomplete: true,
	StatusReplaced:   true,
}

func (s Status) IsValid() bool {
	return ValidStatuses[s]
}

func (s Status) String() string {
	return string(s)
}

// FromProviderStatus maps a raw provider status string to the local set.
// Unknown values normalize to incomplete rather than failing: a later full
// event corrects them.
func FromProviderStatus(raw string) Status {
	switch raw {
	case "active", "trialing":
		return StatusActive
	case "past_due", "unpaid":
		return StatusPastDue
	case "canceled":
		return StatusCanceled
	case "incomplete", "incomplete_expired":
		return StatusIncomplete
	default:
		return StatusIncomplete
	}
}
