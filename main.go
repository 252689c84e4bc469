package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"media-site-service/config"
	"media-site-service/database"
	"media-site-service/handlers"
	"media-site-service/logging"
	"media-site-service/middleware"
	"media-site-service/services"
	"media-site-service/storage"
	"media-site-service/utils"
	"media-site-service/ws"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Persistence backend
	store, err := openStore(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize storage")
	}

	credential, err := utils.NewCredential(cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to prepare admin credential")
	}

	hub := ws.NewHub(middleware.AllowOrigin(cfg.FrontendURL))

	sessions := services.NewSessionStore(store, []byte(cfg.SessionSecret))
	visitors := services.NewVisitorLog(store)
	notifications := services.NewNotificationStore(store, hub)
	errorTracker := services.NewErrorTracker()
	monitor := services.NewSystemMonitor(services.HostMetrics{})
	youtube := services.NewYouTubeService(services.YouTubeConfig{
		APIKey:    cfg.YouTubeAPIKey,
		ChannelID: cfg.YouTubeChannelID,
		Timeout:   cfg.OutboundTimeout,
	})
	geo := services.NewIPAPILocator(cfg.GeoAPIURL, cfg.OutboundTimeout)

	// Background services
	tracker := services.NewVisitTracker(visitors, geo, hub, cfg.TrackingQueueSize, cfg.OutboundTimeout)
	tracker.Start()
	maintenance := services.NewMaintenanceService(errorTracker, cfg.ErrorRetention, cfg.ErrorPruneInterval)
	maintenance.Start()
	broadcaster := services.NewMetricsBroadcaster(monitor, hub, hub, cfg.MetricsBroadcastInterval)
	broadcaster.Start()

	globalLimiter := middleware.NewRateLimiter("global", cfg.RateLimitMax, cfg.RateLimitWindow,
		"Too many requests, please try again later.")
	loginLimiter := middleware.NewRateLimiter("login", cfg.LoginRateLimitMax, cfg.LoginRateLimitWindow,
		"Too many login attempts, please try again later.")

	router := handlers.NewRouter(handlers.Dependencies{
		FrontendURL:    cfg.FrontendURL,
		ExposeErrors:   !cfg.IsProduction(),
		MetricsEnabled: cfg.MetricsEnabled,
		TrustedProxies: cfg.TrustedProxies,
		Credential:     credential,
		Sessions:       sessions,
		Visitors:       visitors,
		Notifications:  notifications,
		Errors:         errorTracker,
		Monitor:        monitor,
		Videos:         youtube,
		Tracker:        tracker,
		Hub:            hub,
		GlobalLimiter:  globalLimiter,
		LoginLimiter:   loginLimiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logging.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("storage", cfg.StorageDriver).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logging.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("Server shutdown failed")
	}

	broadcaster.Stop()
	maintenance.Stop()
	tracker.Stop()
	hub.Close()
	youtube.Close()
	globalLimiter.Close()
	loginLimiter.Close()

	logging.Info().Msg("Server stopped")
}

func openStore(cfg *config.Config) (storage.DocumentStore, error) {
	if cfg.StorageDriver == "sqlite" {
		db, err := database.InitDB(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return storage.NewSQLiteStore(db), nil
	}
	return storage.NewFileStore(cfg.DataDir)
}
