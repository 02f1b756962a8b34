package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

type HTTPTimeoutsConfig struct {
	Read     time.Duration
	Idle     time.Duration
	Write    time.Duration
	Shutdown time.Duration // how long we give the shutdown process to gracefully terminate
}

type HTTPConfig struct {
	Port     int
	Timeouts HTTPTimeoutsConfig
}

type RateLimiterConfig struct {
	RPS   int
	Burst int
}

type LoggerConfig struct {
	Level slog.Level
}

type AppConfig struct {
	Name        string
	Environment string // 'dev' | 'prod'
}

type DBConfig struct {
	Path           string
	MigrationsPath string
}

type AssetsConfig struct {
	Backend          string // 'local' | 's3'
	Root             string // local content directory
	VariantNamespace string // UUID namespace for derived image variant keys
	VariantWorkers   int
}

type S3Config struct {
	Region    string
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
}

type ProxyConfig struct {
	Trusted bool
}

type TelemetryConfig struct {
	EnableTelemetry bool
	OtelEndpoint    string
}

type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

type FeedConfig struct {
	PageSize int // default posts per page
}

type Config struct {
	App       AppConfig
	DB        DBConfig
	Assets    AssetsConfig
	S3        S3Config
	Proxy     ProxyConfig
	HTTP      HTTPConfig
	Limiter   RateLimiterConfig
	Logger    LoggerConfig
	Telemetry TelemetryConfig
	Auth      AuthConfig
	Feed      FeedConfig
}

func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "feedengine",
			Environment: "prod",
		},
		DB: DBConfig{
			Path:           "feedengine.db",
			MigrationsPath: "./migrations",
		},
		Assets: AssetsConfig{
			Backend:          "local",
			Root:             "./images",
			VariantNamespace: "570e8400-c29b-45d4-a716-446655440700",
			VariantWorkers:   2,
		},
		Proxy: ProxyConfig{
			Trusted: false,
		},
		HTTP: HTTPConfig{
			Port: 8080,
			Timeouts: HTTPTimeoutsConfig{
				Read:     5 * time.Second,
				Write:    10 * time.Second,
				Idle:     10 * time.Minute,
				Shutdown: 10 * time.Second,
			},
		},
		Limiter: RateLimiterConfig{
			RPS:   20,
			Burst: 50,
		},
		Logger: LoggerConfig{
			Level: slog.LevelInfo,
		},
		Telemetry: TelemetryConfig{
			OtelEndpoint: "localhost:4318",
		},
		Auth: AuthConfig{
			JWTSecret:  "very-secret-key-change-me-in-production",
			TokenTTL:   1 * time.Hour,
			BcryptCost: 12,
		},
		Feed: FeedConfig{
			PageSize: 2,
		},
	}
}

func LoadWithDefaults() *Config {
	defaults := DefaultConfig()
	return &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", defaults.App.Name),
			Environment: getEnv("APP_ENV", defaults.App.Environment),
		},
		DB: DBConfig{
			Path:           getEnv("DB_PATH", defaults.DB.Path),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", defaults.DB.MigrationsPath),
		},
		Assets: AssetsConfig{
			Backend:          getEnv("ASSETS_BACKEND", defaults.Assets.Backend),
			Root:             getEnv("ASSETS_ROOT", defaults.Assets.Root),
			VariantNamespace: getEnv("ASSETS_VARIANT_NAMESPACE", defaults.Assets.VariantNamespace),
			VariantWorkers:   getEnvAsInt("ASSETS_VARIANT_WORKERS", defaults.Assets.VariantWorkers),
		},
		S3: S3Config{
			Region:    getEnv("S3_REGION", ""),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			Bucket:    getEnv("S3_BUCKET", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
		},
		Proxy: ProxyConfig{
			Trusted: getEnvAsBool("PROXY_TRUSTED", defaults.Proxy.Trusted),
		},
		HTTP: HTTPConfig{
			Port: getEnvAsInt("HTTP_PORT", defaults.HTTP.Port),
			Timeouts: HTTPTimeoutsConfig{
				Read:     getEnvAsDuration("HTTP_READ_TIMEOUT", defaults.HTTP.Timeouts.Read),
				Write:    getEnvAsDuration("HTTP_WRITE_TIMEOUT", defaults.HTTP.Timeouts.Write),
				Idle:     getEnvAsDuration("HTTP_IDLE_TIMEOUT", defaults.HTTP.Timeouts.Idle),
				Shutdown: getEnvAsDuration("HTTP_SHUTDOWN_DELAY", defaults.HTTP.Timeouts.Shutdown),
			},
		},
		Limiter: RateLimiterConfig{
			RPS:   getEnvAsInt("LIMITER_RPS", defaults.Limiter.RPS),
			Burst: getEnvAsInt("LIMITER_BURST", defaults.Limiter.Burst),
		},
		Logger: LoggerConfig{
			Level: getEnvAsLogLevel("LOGGER_LEVEL", defaults.Logger.Level),
		},
		Telemetry: TelemetryConfig{
			EnableTelemetry: getEnvAsBool("ENABLE_TELEMETRY", false),
			OtelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", defaults.Telemetry.OtelEndpoint),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", defaults.Auth.JWTSecret),
			TokenTTL:   getEnvAsDuration("JWT_TOKEN_TTL", defaults.Auth.TokenTTL),
			BcryptCost: getEnvAsInt("BCRYPT_COST", defaults.Auth.BcryptCost),
		},
		Feed: FeedConfig{
			PageSize: getEnvAsInt("FEED_PAGE_SIZE", defaults.Feed.PageSize),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	valueStr, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsLogLevel(key string, fallback slog.Level) slog.Level {
	valueStr, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}

	switch strings.ToLower(valueStr) {
	case "debug":
		return slog.LevelDebug
	case "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("APP_NAME must not be empty")
	}
	if s := strings.ToLower(c.App.Environment); s != "dev" && s != "prod" {
		return fmt.Errorf(`APP_ENV must be "dev" or "prod"`)
	}
	if c.DB.Path == "" {
		return fmt.Errorf("DB_PATH must not be empty")
	}
	if c.DB.MigrationsPath == "" {
		return fmt.Errorf("DB_MIGRATIONS_PATH must not be empty")
	}
	switch c.Assets.Backend {
	case "local":
		if c.Assets.Root == "" {
			return fmt.Errorf("ASSETS_ROOT must not be empty")
		}
	case "s3":
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET must not be empty when ASSETS_BACKEND is s3")
		}
	default:
		return fmt.Errorf(`ASSETS_BACKEND must be "local" or "s3", got %q`, c.Assets.Backend)
	}
	if c.Assets.VariantWorkers < 1 {
		return fmt.Errorf("ASSETS_VARIANT_WORKERS must be positive, got %d", c.Assets.VariantWorkers)
	}
	// stay away from well-known ports
	if p := c.HTTP.Port; p < 1024 || p > 65535 {
		return fmt.Errorf("HTTP_PORT must be a positive int between 1024 and 65535, got %d", p)
	}
	if c.HTTP.Timeouts.Read <= 0 {
		return fmt.Errorf("HTTP_READ_TIMEOUT must be positive (e.g., 5s), got %s", c.HTTP.Timeouts.Read)
	}
	if c.HTTP.Timeouts.Write <= 0 {
		return fmt.Errorf("HTTP_WRITE_TIMEOUT must be positive (e.g., 10s), got %s", c.HTTP.Timeouts.Write)
	}
	if c.HTTP.Timeouts.Idle <= 0 {
		return fmt.Errorf("HTTP_IDLE_TIMEOUT must be positive (e.g., 2m), got %s", c.HTTP.Timeouts.Idle)
	}
	if c.HTTP.Timeouts.Shutdown <= 0 {
		return fmt.Errorf("HTTP_SHUTDOWN_DELAY must be positive (e.g., 10s), got %s", c.HTTP.Timeouts.Shutdown)
	}
	if c.Limiter.RPS <= 0 {
		return fmt.Errorf("LIMITER_RPS must be positive, got %d", c.Limiter.RPS)
	}
	if c.Limiter.Burst <= 0 {
		return fmt.Errorf("LIMITER_BURST must be positive, got %d", c.Limiter.Burst)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TOKEN_TTL must be positive (e.g., 1h), got %s", c.Auth.TokenTTL)
	}
	if c.Auth.BcryptCost < 10 || c.Auth.BcryptCost > 16 {
		return fmt.Errorf("BCRYPT_COST must be between 10 and 16, got %d", c.Auth.BcryptCost)
	}
	if c.Feed.PageSize <= 0 {
		return fmt.Errorf("FEED_PAGE_SIZE must be positive, got %d", c.Feed.PageSize)
	}
	if c.App.Environment == "prod" {
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET must not be empty in production")
		}
		if c.Auth.JWTSecret == "very-secret-key-change-me-in-production" {
			return fmt.Errorf("JWT_SECRET must be changed from default value for production")
		}
	}
	if _, err := uuid.FromString(c.Assets.VariantNamespace); err != nil {
		return fmt.Errorf("ASSETS_VARIANT_NAMESPACE must be a valid UUID")
	}

	return nil
}
