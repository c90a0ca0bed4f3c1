package ratelimit

import (
	"context"

	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/config"
)

// RateLimiter gates request bursts per caller identity before any quota or
// policy work happens. Keys are visitor IDs or hashed IPs, never raw IPs.
type RateLimiter interface {
	Allow(ctx context.Context, key string, cfg config.RateLimitConfig) (bool, error)
	Reset(ctx context.Context, key string) error
}
