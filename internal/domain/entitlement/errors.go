package entitlement

import "errors"

var (
	// ErrEntitlementNotFound is returned when an entitlement is not found
	ErrEntitlementNotFound = errors.New("entitlement not found")

	// ErrEntitlementExpired is returned when an entitlement's validity window has lapsed
	ErrEntitlementExpired = errors.New("entitlement expired")

	// ErrEntitlementReplaced is returned when operating on a superseded entitlement
	ErrEntitlementReplaced = errors.New("entitlement replaced")

	// ErrNoCapacity is returned when no usable entitlement has remaining quota.
	// It is an expected business outcome, not a failure.
	ErrNoCapacity = errors.New("no remaining quota")

	// ErrDuplicateEntitlement is returned when an entitlement with the same
	// checkout session ID already exists. Expected under duplicate webhook
	// delivery and treated as success by the reconciler.
	ErrDuplicateEntitlement = errors.New("entitlement already exists")

	// ErrConcurrencyConflict signals a serialization failure on the consume
	// path. It is retried internally a bounded number of times and never
	// surfaced to callers.
	ErrConcurrencyConflict = errors.New("concurrent entitlement update conflict")
)
