package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

var localhostOrigin = regexp.MustCompile(`^http://localhost:\d+$`)

// AllowOrigin accepts any http://localhost:<port> origin and frontendURL.
func AllowOrigin(frontendURL string) func(origin string) bool {
	return func(origin string) bool {
		if localhostOrigin.MatchString(origin) {
			return true
		}
		return frontendURL != "" && origin == frontendURL
	}
}

// CORS applies the origin allowlist with credentials. Preflight requests are
// answered here and never reach the router.
func CORS(frontendURL string) gin.HandlerFunc {
	allow := AllowOrigin(frontendURL)
	handler := cors.New(cors.Options{
		AllowOriginFunc:  allow,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset"},
		AllowCredentials: true,
	})

	return func(c *gin.Context) {
		handler.HandlerFunc(c.Writer, c.Request)
		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
