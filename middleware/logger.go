package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"media-site-service/logging"
	"media-site-service/models"
	"media-site-service/services"
	"media-site-service/utils"
)

const ctxRequestID = "request_id"

// APIErrorRecorder receives server-side API errors.
type APIErrorRecorder interface {
	LogAPIError(r services.APIErrorReport) models.ErrorEvent
}

// RequestID reuses an upstream X-Request-ID or generates one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Set(ctxRequestID, id)
		c.Next()
	}
}

// GetRequestID returns the id set by RequestID.
func GetRequestID(c *gin.Context) string {
	return c.GetString(ctxRequestID)
}

// RequestLogger logs one line per finished request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logging.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = logging.Error()
		case status >= http.StatusBadRequest:
			event = logging.Warn()
		}
		event.
			Str("request_id", GetRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", utils.ClientIP(c.Request)).
			Msg("request")
	}
}

// Recovery turns panics into a 500 response and records them as API errors.
// The panic value is included in the response only when exposeDetail is set.
func Recovery(errs APIErrorRecorder, exposeDetail bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			detail := fmt.Sprint(rec)
			logging.Error().
				Str("request_id", GetRequestID(c)).
				Str("path", c.Request.URL.Path).
				Str("panic", detail).
				Msg("Recovered from panic")

			report := services.APIErrorReport{
				Method:     c.Request.Method,
				Endpoint:   c.Request.URL.Path,
				StatusCode: http.StatusInternalServerError,
				Message:    detail,
				IP:         utils.ClientIP(c.Request),
			}
			if errs != nil {
				go errs.LogAPIError(report)
			}

			if exposeDetail {
				utils.ErrorDetailResponse(c, http.StatusInternalServerError, "Internal server error", detail)
			} else {
				utils.InternalErrorResponse(c, "Internal server error")
			}
			c.Abort()
		}()
		c.Next()
	}
}
