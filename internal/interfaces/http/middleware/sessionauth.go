package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/auth"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/config"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/constants"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/utils"
)

// SessionAuth resolves the login session cookie into a user identity when
// present. It never rejects: anonymous requests continue as guests, and the
// policy layer decides what a guest may do.
func SessionAuth(sessions auth.SessionStore, cfg *config.SessionConfig, log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cfg.CookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}

		session, err := sessions.Validate(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, auth.ErrSessionInvalid) {
				log.Errorw("session validation failed", "error", err)
			}
			c.Next()
			return
		}

		c.Set(constants.CtxUserID, session.UserID)
		c.Next()
	}
}

// RequireUser aborts with 401 unless SessionAuth resolved a user.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(constants.CtxUserID); !ok {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user ID, if any.
func UserID(c *gin.Context) (uint, bool) {
	if v, ok := c.Get(constants.CtxUserID); ok {
		if id, ok := v.(uint); ok {
			return id, true
		}
	}
	return 0, false
}
