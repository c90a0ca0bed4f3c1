package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	quotausecases "github.com/gamezxlan/ley-en-mano-backend/internal/application/quota/usecases"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/config"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/constants"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/goroutine"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
)

const visitorCookieMaxAge = 365 * 24 * 60 * 60

// Visitor assigns a stable anonymous identity per browser and records the
// touch. The visitor ID is the key for guest-tier daily limits, so it must
// exist before any policy resolution runs. The raw client IP is never
// stored; only a peppered hash travels further.
func Visitor(cfg *config.AuthConfig, tracker *quotausecases.TrackVisitorUseCase, log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		visitorID, err := c.Cookie(cfg.Visitor.CookieName)
		if err != nil || visitorID == "" {
			visitorID = uuid.NewString()
			c.SetCookie(cfg.Visitor.CookieName, visitorID, visitorCookieMaxAge,
				"/", cfg.Session.Domain, cfg.Session.Secure, true)
		}

		c.Set(constants.CtxVisitorID, visitorID)
		c.Set(constants.CtxIPHash, hashIP(cfg.Session.Pepper, c.ClientIP()))

		var userID *uint
		if id, ok := c.Get(constants.CtxUserID); ok {
			if uid, ok := id.(uint); ok {
				userID = &uid
			}
		}
		// Best-effort touch off the request path. The request context is not
		// reused: it is canceled as soon as the response is written.
		goroutine.SafeGo(log, "visitor-track", func() {
			_ = tracker.Execute(context.Background(), quotausecases.TrackVisitorCommand{
				VisitorID: visitorID,
				UserID:    userID,
			})
		})

		c.Next()
	}
}

// VisitorID returns the visitor identity set by the Visitor middleware.
func VisitorID(c *gin.Context) string {
	if v, ok := c.Get(constants.CtxVisitorID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// IPHash returns the peppered IP fingerprint set by the Visitor middleware.
func IPHash(c *gin.Context) string {
	if v, ok := c.Get(constants.CtxIPHash); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func hashIP(pepper, ip string) string {
	sum := sha256.Sum256([]byte(pepper + ip))
	return hex.EncodeToString(sum[:])
}
