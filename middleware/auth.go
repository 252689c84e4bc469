package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"media-site-service/logging"
	"media-site-service/models"
	"media-site-service/services"
	"media-site-service/utils"
)

const (
	ctxSession = "admin_session"
	ctxToken   = "admin_token"
)

// SessionLookup resolves a bearer token to an admin session.
type SessionLookup interface {
	Session(token string) (models.Session, error)
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AdminAuth rejects requests without a live admin session.
func AdminAuth(sessions SessionLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			utils.UnauthorizedResponse(c, "Unauthorized")
			c.Abort()
			return
		}

		session, err := sessions.Session(token)
		switch {
		case errors.Is(err, services.ErrInvalidToken):
			logging.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("Rejected admin token")
			utils.UnauthorizedResponse(c, "Unauthorized")
			c.Abort()
			return
		case err != nil:
			logging.Error().Err(err).Msg("Failed to look up session")
			utils.InternalErrorResponse(c, "Failed to verify session")
			c.Abort()
			return
		}

		c.Set(ctxSession, session)
		c.Set(ctxToken, token)
		c.Next()
	}
}

// GetSession returns the session set by AdminAuth.
func GetSession(c *gin.Context) (models.Session, bool) {
	v, exists := c.Get(ctxSession)
	if !exists {
		return models.Session{}, false
	}
	s, ok := v.(models.Session)
	return s, ok
}
