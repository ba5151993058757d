// Package config provides configuration management for the packing audit service.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Camera    CameraConfig
	Worker    WorkerConfig
	Batch     BatchConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port        string
	Host        string
	Env         string
	CORSOrigins []string
	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For is honoured
	TrustedProxies []string
}

// IsProduction reports whether the service runs with APP_ENV=production
func (c ServerConfig) IsProduction() bool {
	return c.Env == "production"
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres PostgresConfig
	Redis    RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	SSLMode        string
	MaxConnections int
}

// URL renders the connection URL used by the migration runner.
func (c PostgresConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%s", c.Host, c.Port),
		Path:     c.Database,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// AuthConfig holds token and session configuration
type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	// RotationWindow is how close to session expiry a refresh must be before the refresh token rotates.
	RotationWindow time.Duration
	BcryptCost     int
	RoleCacheTTL   time.Duration
}

// CameraConfig holds the secret used to encrypt camera credentials at rest
type CameraConfig struct {
	EncryptionKey string
}

// WorkerConfig holds the clip worker collaborator configuration
type WorkerConfig struct {
	URL                string
	Timeout            time.Duration
	Token              string
	BreakerMaxFailures int
	BreakerCooldown    time.Duration
}

// BatchConfig holds batch orchestration configuration
type BatchConfig struct {
	MaxItems           int
	SupervisorInterval time.Duration
	MaxRunDuration     time.Duration
}

// StorageConfig holds object storage configuration for clip media
type StorageConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	URLTTL    time.Duration
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	AuthRPS   int
	AuthBurst int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env is optional, environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "3000"),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Env:            getEnv("APP_ENV", "development"),
			CORSOrigins:    getEnvAsSlice("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000", "http://localhost:4173"}),
			TrustedProxies: getEnvAsSlice("SERVER_TRUSTED_PROXIES", nil),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "cctv"),
				User:           getEnv("POSTGRES_USER", "cctv"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				SSLMode:        getEnv("POSTGRES_SSLMODE", "disable"),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 25),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
			},
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", ""),
			AccessTokenTTL:  getEnvAsDuration("JWT_EXPIRES_IN", 15*time.Minute),
			RefreshTokenTTL: getEnvAsDuration("REFRESH_TOKEN_EXPIRES_IN", 24*time.Hour),
			RotationWindow:  getEnvAsDuration("REFRESH_ROTATION_WINDOW", time.Hour),
			BcryptCost:      getEnvAsInt("BCRYPT_COST", 10),
			RoleCacheTTL:    getEnvAsDuration("ROLE_CACHE_TTL", 5*time.Minute),
		},
		Camera: CameraConfig{
			EncryptionKey: getEnv("CAMERA_ENCRYPTION_KEY", ""),
		},
		Worker: WorkerConfig{
			URL:                strings.TrimRight(getEnv("WORKER_URL", "http://localhost:8000"), "/"),
			Timeout:            getEnvAsDuration("WORKER_TIMEOUT", 5*time.Second),
			Token:              getEnv("WORKER_TOKEN", ""),
			BreakerMaxFailures: getEnvAsInt("WORKER_BREAKER_MAX_FAILURES", 5),
			BreakerCooldown:    getEnvAsDuration("WORKER_BREAKER_COOLDOWN", 30*time.Second),
		},
		Batch: BatchConfig{
			MaxItems:           getEnvAsInt("BATCH_MAX_ITEMS", 100),
			SupervisorInterval: getEnvAsDuration("BATCH_SUPERVISOR_INTERVAL", time.Minute),
			MaxRunDuration:     getEnvAsDuration("BATCH_MAX_RUN_DURATION", 2*time.Hour),
		},
		Storage: StorageConfig{
			Endpoint:  getEnv("STORAGE_ENDPOINT", "storage.googleapis.com"),
			Bucket:    getEnv("STORAGE_BUCKET", ""),
			AccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey: getEnv("STORAGE_SECRET_KEY", ""),
			Region:    getEnv("STORAGE_REGION", "auto"),
			UseSSL:    getEnvAsBool("STORAGE_USE_SSL", true),
			URLTTL:    getEnvAsDuration("CLIP_URL_TTL", time.Hour),
		},
		RateLimit: RateLimitConfig{
			AuthRPS:   getEnvAsInt("LOGIN_RATE_LIMIT_RPS", 5),
			AuthBurst: getEnvAsInt("LOGIN_RATE_LIMIT_BURST", 10),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// Validate checks settings that would otherwise fail at request time
func (c *Config) Validate() error {
	if c.Server.IsProduction() && c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.Batch.MaxItems < 1 || c.Batch.MaxItems > 1000 {
		return fmt.Errorf("BATCH_MAX_ITEMS must be between 1 and 1000, got %d", c.Batch.MaxItems)
	}
	if c.Worker.Timeout <= 0 {
		return fmt.Errorf("WORKER_TIMEOUT must be positive, got %v", c.Worker.Timeout)
	}
	if c.Auth.RotationWindow > c.Auth.RefreshTokenTTL {
		return fmt.Errorf("REFRESH_ROTATION_WINDOW (%v) exceeds REFRESH_TOKEN_EXPIRES_IN (%v)", c.Auth.RotationWindow, c.Auth.RefreshTokenTTL)
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice splits a comma separated environment variable
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
