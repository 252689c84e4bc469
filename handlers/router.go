package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"media-site-service/logging"
	"media-site-service/middleware"
	"media-site-service/services"
	"media-site-service/utils"
	"media-site-service/ws"
)

const maxBodyBytes = 10 << 20

// Dependencies are the collaborators the HTTP layer is built from.
type Dependencies struct {
	FrontendURL    string
	ExposeErrors   bool
	MetricsEnabled bool
	TrustedProxies []string

	Credential    *utils.Credential
	Sessions      *services.SessionStore
	Visitors      *services.VisitorLog
	Notifications *services.NotificationStore
	Errors        *services.ErrorTracker
	Monitor       *services.SystemMonitor
	Videos        VideoSource
	Tracker       middleware.VisitQueue
	Hub           *ws.Hub

	GlobalLimiter *middleware.RateLimiter
	LoginLimiter  *middleware.RateLimiter
}

// NewRouter builds the engine with the full middleware pipeline and routes.
func NewRouter(d Dependencies) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = false
	if err := router.SetTrustedProxies(d.TrustedProxies); err != nil {
		logging.Error().Err(err).Msg("Invalid trusted proxies, trusting none")
		_ = router.SetTrustedProxies(nil)
	}

	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.Recovery(d.Errors, d.ExposeErrors),
		middleware.SecurityHeaders(),
		middleware.CORS(d.FrontendURL),
	)
	if d.GlobalLimiter != nil {
		router.Use(d.GlobalLimiter.Middleware())
	}
	router.Use(
		middleware.ParameterPollution(),
		middleware.BodyLimit(maxBodyBytes),
		middleware.Prometheus(),
		middleware.Tracking(d.Tracker),
	)

	router.GET("/ping", Ping)
	router.GET("/api/health", Health)
	if d.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	requireAdmin := middleware.AdminAuth(d.Sessions)

	admin := &AdminHandler{
		Sessions:     d.Sessions,
		Visitors:     d.Visitors,
		Credential:   d.Credential,
		LoginLimiter: d.LoginLimiter,
	}
	adminGroup := router.Group("/api/admin")
	{
		login := []gin.HandlerFunc{admin.Login}
		if d.LoginLimiter != nil {
			login = append([]gin.HandlerFunc{d.LoginLimiter.Middleware()}, login...)
		}
		adminGroup.POST("/login", login...)
		adminGroup.GET("/analytics", requireAdmin, admin.Analytics)
		adminGroup.POST("/logout", admin.Logout)
	}

	notifications := &NotificationHandler{Store: d.Notifications}
	notificationGroup := router.Group("/api/notifications")
	{
		notificationGroup.GET("", notifications.ListActive)
		notificationGroup.GET("/all", requireAdmin, notifications.ListAll)
		notificationGroup.POST("", requireAdmin, notifications.Create)
		notificationGroup.PUT("/:id", requireAdmin, notifications.Update)
		notificationGroup.DELETE("/:id", requireAdmin, notifications.Delete)
	}

	system := &SystemHandler{Monitor: d.Monitor, Errors: d.Errors, Visits: d.Tracker}
	systemGroup := router.Group("/api/system")
	{
		systemGroup.GET("/health", requireAdmin, system.Health)
		systemGroup.GET("/quick-stats", requireAdmin, system.QuickStats)
		systemGroup.GET("/errors", requireAdmin, system.GetErrors)
		systemGroup.POST("/errors", system.ReportError)
		systemGroup.DELETE("/errors", requireAdmin, system.ClearErrors)
		systemGroup.GET("/stats", requireAdmin, system.Stats)
		systemGroup.POST("/visit", system.Visit)
	}

	youtube := &YouTubeHandler{Videos: d.Videos}
	router.GET("/api/youtube/latest", youtube.Latest)

	if d.Hub != nil {
		realtime := &RealtimeHandler{Hub: d.Hub, Sessions: d.Sessions}
		router.GET("/ws", realtime.Connect)
	}

	router.NoRoute(NotFound(d.Errors))
	return router
}
