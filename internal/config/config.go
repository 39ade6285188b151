package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Insights      InsightConfig
	Notifications NotificationConfig
	Referral      ReferralConfig
	Metrics       MetricsConfig
}

type ServerConfig struct {
	Port            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
	// TrustProxy makes the rate limiter key clients by X-Forwarded-For.
	TrustProxy      bool
}

type DatabaseConfig struct {
	Driver              string
	URL                 string
	ConnectTimeout      time.Duration
	RedisURL            string
	LeaderboardCacheTTL time.Duration
}

type AuthConfig struct {
	ClerkSecretKey     string
	ClerkWebhookSecret string
	FunctionsAPIKey    string
}

type InsightConfig struct {
	GeminiAPIKey string
	GeminiModel  string
	HourUTC      uint
}

type NotificationConfig struct {
	FCMCredentialsFile string
}

type ReferralConfig struct {
	ShareLinkBase string
}

type MetricsConfig struct {
	User     string
	Password string
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "3333"),
			Environment:     getEnv("GO_ENV", "development"),
			ReadTimeout:     getDuration("SERVER_READ_TIMEOUT", 5*time.Second),
			WriteTimeout:    getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:     getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			GracefulTimeout: getDuration("SERVER_GRACEFUL_TIMEOUT", 30*time.Second),
			RateLimitRPS:    getFloat("RATE_LIMIT_RPS", 5),
			RateLimitBurst:  getInt("RATE_LIMIT_BURST", 30),
			TrustProxy:      getBool("TRUST_PROXY", false),
		},
		Database: DatabaseConfig{
			Driver:              strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
			URL:                 os.Getenv("DATABASE_URL"),
			ConnectTimeout:      getDuration("DATABASE_CONNECT_TIMEOUT", 30*time.Second),
			RedisURL:            os.Getenv("REDIS_URL"),
			LeaderboardCacheTTL: getDuration("LEADERBOARD_CACHE_TTL", 30*time.Second),
		},
		Auth: AuthConfig{
			ClerkSecretKey:     os.Getenv("CLERK_SECRET_KEY"),
			ClerkWebhookSecret: os.Getenv("CLERK_WEBHOOK_SECRET"),
			FunctionsAPIKey:    os.Getenv("FUNCTIONS_API_KEY"),
		},
		Insights: InsightConfig{
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
			GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			HourUTC:      uint(getInt("INSIGHT_HOUR_UTC", 6)),
		},
		Notifications: NotificationConfig{
			FCMCredentialsFile: getEnv("FCM_CREDENTIALS_FILE", "./serviceAccountKey.json"),
		},
		Referral: ReferralConfig{
			ShareLinkBase: getEnv("SHARE_LINK_BASE", "kelp://invite"),
		},
		Metrics: MetricsConfig{
			User:     os.Getenv("METRICS_USER"),
			Password: os.Getenv("METRICS_PASS"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case StoreDriverPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres"))
		}
	case StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Database.Driver))
	}

	if c.Auth.ClerkSecretKey == "" {
		errs = append(errs, errors.New("CLERK_SECRET_KEY is required"))
	}
	if c.Insights.HourUTC > 23 {
		errs = append(errs, fmt.Errorf("INSIGHT_HOUR_UTC must be 0-23, got %d", c.Insights.HourUTC))
	}
	if c.Server.RateLimitRPS <= 0 || c.Server.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}

	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
