package usage

import (
	"context"
	"time"
)

// EventRepository owns UsageEvent creation. No other component writes these
// rows, and nothing ever updates them.
type EventRepository interface {
	// Append inserts one immutable usage fact.
	Append(ctx context.Context, ev *UsageEvent) error

	// CountAllowedByVisitor counts allowed events for an anonymous visitor
	// in [from, to).
	CountAllowedByVisitor(ctx context.Context, visitorID string, from, to time.Time) (int, error)

	// CountAllowedByUser counts allowed events for a user in [from, to).
	CountAllowedByUser(ctx context.Context, userID uint, from, to time.Time) (int, error)
}

// VisitorRepository owns visitor upserts.
type VisitorRepository interface {
	// Upsert inserts the visitor or refreshes last seen. A nil userID never
	// clears an existing link; a non-nil one sets it.
	Upsert(ctx context.Context, visitorID string, userID *uint) error

	// Get retrieves a visitor. Returns nil without error when absent.
	Get(ctx context.Context, visitorID string) (*Visitor, error)
}
