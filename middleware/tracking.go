package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"media-site-service/services"
	"media-site-service/utils"
)

var untrackedPrefixes = []string{"/api/admin", "/api/youtube", "/api/system", "/ws", "/metrics"}

// VisitQueue accepts visits without blocking.
type VisitQueue interface {
	Track(v services.Visit) bool
}

// Tracking enqueues a visit for every request outside the admin, system and
// feed endpoints. It never delays the request.
func Tracking(queue VisitQueue) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range untrackedPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		userAgent := c.GetHeader("User-Agent")
		if userAgent == "" {
			userAgent = "Unknown"
		}
		queue.Track(services.Visit{
			IP:        utils.ClientIP(c.Request),
			UserAgent: userAgent,
			Path:      path,
		})
		c.Next()
	}
}
