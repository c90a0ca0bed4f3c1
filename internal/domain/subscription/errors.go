package subscription

import "errors"

var (
	// ErrSubscriptionNotFound is returned when a subscription is not found
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrNoActiveSubscription is returned when the owner has no active subscription
	ErrNoActiveSubscription = errors.New("no active subscription")

	// ErrConcurrencyConflict is returned when an optimistic version check fails
	ErrConcurrencyConflict = errors.New("subscription concurrency conflict")
)
