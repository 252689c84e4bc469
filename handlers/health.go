package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"media-site-service/models"
	"media-site-service/services"
	"media-site-service/utils"
)

// NotFoundRecorder receives unknown-route events.
type NotFoundRecorder interface {
	Log404Error(r services.NotFoundReport) models.ErrorEvent
}

// Ping is a cheap liveness probe for uptime monitors.
func Ping(c *gin.Context) {
	c.String(http.StatusOK, "Server is alive!")
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"message":   "Media site backend is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// NotFound answers unknown routes and records them without delaying the response.
func NotFound(errs NotFoundRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		referrer := c.GetHeader("Referer")
		if referrer == "" {
			referrer = "Direct"
		}
		report := services.NotFoundReport{
			Path:      c.Request.URL.RequestURI(),
			Method:    c.Request.Method,
			Referrer:  referrer,
			IP:        utils.ClientIP(c.Request),
			UserAgent: c.GetHeader("User-Agent"),
		}
		go errs.Log404Error(report)

		utils.NotFoundResponse(c, "Route not found")
	}
}
