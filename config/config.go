package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"media-site-service/logging"
)

const defaultChannelID = "UCjzXFaKyIpKwO7CmH9YqXeQ"

type Config struct {
	Port          string
	Env           string
	DataDir       string
	StorageDriver string // "file" or "sqlite"
	DBPath        string

	AdminUsername string
	AdminPassword string
	SessionSecret string

	FrontendURL string

	// TrustedProxies are the addresses or CIDRs whose X-Forwarded-For is
	// believed when resolving the client IP for rate limiting. Empty trusts none.
	TrustedProxies []string

	YouTubeAPIKey    string
	YouTubeChannelID string
	GeoAPIURL        string
	OutboundTimeout  time.Duration

	RateLimitMax         int
	RateLimitWindow      time.Duration
	LoginRateLimitMax    int
	LoginRateLimitWindow time.Duration

	ErrorRetention     time.Duration
	ErrorPruneInterval time.Duration

	MetricsEnabled           bool
	MetricsBroadcastInterval time.Duration
	TrackingQueueSize        int

	LogLevel  string
	LogFormat string
}

// IsProduction reports whether internal error detail must be hidden from clients.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load reads configuration from the environment, loading .env first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logging.Info().Msg("No .env file found, using environment variables")
	}

	cfg := &Config{
		Port:          getEnv("PORT", "4000"),
		Env:           getEnv("APP_ENV", "development"),
		DataDir:       getEnv("DATA_DIR", "./data"),
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", "file")),
		DBPath:        getEnv("DB_PATH", "./data/site.db"),

		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		SessionSecret: os.Getenv("SESSION_SECRET"),

		FrontendURL:    os.Getenv("FRONTEND_URL"),
		TrustedProxies: getList("TRUSTED_PROXIES"),

		YouTubeAPIKey:    os.Getenv("YOUTUBE_API_KEY"),
		YouTubeChannelID: getEnv("YOUTUBE_CHANNEL_ID", defaultChannelID),
		GeoAPIURL:        getEnv("GEO_API_URL", "http://ip-api.com"),
		OutboundTimeout:  getDuration("OUTBOUND_TIMEOUT", 5*time.Second),

		RateLimitMax:         getInt("RATE_LIMIT_MAX", 100),
		RateLimitWindow:      getDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		LoginRateLimitMax:    getInt("LOGIN_RATE_LIMIT_MAX", 5),
		LoginRateLimitWindow: getDuration("LOGIN_RATE_LIMIT_WINDOW", 15*time.Minute),

		ErrorRetention:     getDuration("ERROR_RETENTION", 7*24*time.Hour),
		ErrorPruneInterval: getDuration("ERROR_PRUNE_INTERVAL", 24*time.Hour),

		MetricsEnabled:           getBool("METRICS_ENABLED", true),
		MetricsBroadcastInterval: getDuration("METRICS_BROADCAST_INTERVAL", 5*time.Second),
		TrackingQueueSize:        getInt("TRACKING_QUEUE_SIZE", 256),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return b
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return d
}

// validate checks security-critical settings at startup
func (c *Config) validate() error {
	if c.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required but not set")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required but not set")
	}
	if len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters long for security")
	}

	switch c.StorageDriver {
	case "file", "sqlite":
	default:
		return fmt.Errorf("STORAGE_DRIVER must be 'file' or 'sqlite', got %q", c.StorageDriver)
	}

	if c.RateLimitMax <= 0 || c.LoginRateLimitMax <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	if c.TrackingQueueSize <= 0 {
		return fmt.Errorf("TRACKING_QUEUE_SIZE must be positive")
	}
	for _, proxy := range c.TrustedProxies {
		if net.ParseIP(proxy) == nil {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				return fmt.Errorf("TRUSTED_PROXIES entry %q is not an IP or CIDR", proxy)
			}
		}
	}
	for name, d := range map[string]time.Duration{
		"RATE_LIMIT_WINDOW":          c.RateLimitWindow,
		"LOGIN_RATE_LIMIT_WINDOW":    c.LoginRateLimitWindow,
		"ERROR_PRUNE_INTERVAL":       c.ErrorPruneInterval,
		"METRICS_BROADCAST_INTERVAL": c.MetricsBroadcastInterval,
		"OUTBOUND_TIMEOUT":           c.OutboundTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
