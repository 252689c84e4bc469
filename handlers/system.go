package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"media-site-service/middleware"
	"media-site-service/models"
	"media-site-service/services"
	"media-site-service/utils"
)

// ErrorReport is the body of POST /api/system/errors. Which fields matter
// depends on Type.
type ErrorReport struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	Severity   string `json:"severity"`
	Stack      string `json:"stack"`
	URL        string `json:"url"`
	Line       int    `json:"line"`
	Column     int    `json:"column"`
	UserAgent  string `json:"userAgent"`
	Method     string `json:"method"`
	Endpoint   string `json:"endpoint"`
	StatusCode int    `json:"statusCode"`
	Path       string `json:"path"`
	Referrer   string `json:"referrer"`
}

type VisitRequest struct {
	Path string `json:"path"`
}

type ErrorsResponse struct {
	Errors []models.ErrorEvent `json:"errors"`
	Stats  models.ErrorStats   `json:"stats"`
}

type SystemHandler struct {
	Monitor *services.SystemMonitor
	Errors  *services.ErrorTracker
	Visits  middleware.VisitQueue
}

func (h *SystemHandler) Health(c *gin.Context) {
	utils.SuccessResponse(c, h.Monitor.SystemHealth(c.Request.Context()))
}

func (h *SystemHandler) QuickStats(c *gin.Context) {
	utils.SuccessResponse(c, h.Monitor.QuickStats(c.Request.Context()))
}

// GetErrors accepts type, severity, since (RFC 3339) and limit query filters.
func (h *SystemHandler) GetErrors(c *gin.Context) {
	filter := models.ErrorFilter{
		Type:     c.Query("type"),
		Severity: c.Query("severity"),
	}
	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			utils.BadRequestResponse(c, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = t
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filter.Limit = limit
	}

	utils.SuccessResponse(c, ErrorsResponse{
		Errors: h.Errors.GetErrors(filter),
		Stats:  h.Errors.GetStats(),
	})
}

// ReportError is public so the frontend can report its own failures.
func (h *SystemHandler) ReportError(c *gin.Context) {
	var req ErrorReport
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	ip := utils.ClientIP(c.Request)
	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = c.GetHeader("User-Agent")
	}

	var event models.ErrorEvent
	switch req.Type {
	case models.ErrorTypeJavaScript:
		event = h.Errors.LogJavaScriptError(services.JSErrorReport{
			Message:   req.Message,
			Stack:     req.Stack,
			URL:       req.URL,
			Line:      req.Line,
			Column:    req.Column,
			UserAgent: userAgent,
		})
	case models.ErrorTypeAPI:
		event = h.Errors.LogAPIError(services.APIErrorReport{
			Method:     req.Method,
			Endpoint:   req.Endpoint,
			StatusCode: req.StatusCode,
			Message:    req.Message,
			IP:         ip,
		})
	case models.ErrorTypeNotFound:
		event = h.Errors.Log404Error(services.NotFoundReport{
			Path:      req.Path,
			Method:    req.Method,
			Referrer:  req.Referrer,
			IP:        ip,
			UserAgent: userAgent,
		})
	default:
		event = h.Errors.LogError(models.ErrorEvent{
			Type:      models.ErrorTypeUnknown,
			Message:   req.Message,
			Severity:  req.Severity,
			Stack:     req.Stack,
			URL:       req.URL,
			Path:      req.Path,
			UserAgent: userAgent,
			IP:        ip,
		})
	}
	utils.SuccessResponse(c, event)
}

func (h *SystemHandler) ClearErrors(c *gin.Context) {
	h.Errors.ClearErrors()
	utils.SuccessMessageResponse(c, "All errors cleared", nil)
}

func (h *SystemHandler) Stats(c *gin.Context) {
	utils.SuccessResponse(c, h.Errors.GetStats())
}

// Visit records a visit reported by the frontend. The response never waits
// for geolocation or persistence.
func (h *SystemHandler) Visit(c *gin.Context) {
	var req VisitRequest
	_ = c.ShouldBindJSON(&req)
	if req.Path == "" {
		req.Path = "/"
	}

	userAgent := c.GetHeader("User-Agent")
	if userAgent == "" {
		userAgent = "Unknown"
	}
	h.Visits.Track(services.Visit{
		IP:        utils.ClientIP(c.Request),
		UserAgent: userAgent,
		Path:      req.Path,
	})
	utils.SuccessResponse(c, nil)
}
