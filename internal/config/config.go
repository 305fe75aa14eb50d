package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	GoEnv string `env:"GO_ENV" default:"development"`

	// Backend server
	HTTPPort    int    `env:"HTTP_PORT" default:"8090"`
	BackendURL  string `env:"BACKEND_URL" default:"http://localhost:8090"`
	DevMode     bool   `env:"DEV_MODE" default:"false"` // in-memory store instead of Redis
	MaxBodySize int64  `env:"MAX_BODY_SIZE" default:"65536"`

	// Redis document store
	RedisAddr     string        `env:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	ChannelTTL    time.Duration `env:"CHANNEL_TTL" default:"10m"` // rolling expiry for idle channel documents

	// Admin authentication
	JWTSecret         string        `env:"JWT_SECRET"`
	JWTExpiry         time.Duration `env:"JWT_EXPIRY" default:"24h"`
	AdminPasswordHash string        `env:"ADMIN_PASSWORD_HASH"`

	// Audit persistence (optional; slog-only when unset)
	DatabaseURL string `env:"DATABASE_URL"`

	// Chat core
	MessageTTL      time.Duration `env:"MESSAGE_TTL" default:"5m"`
	MessagePoll     time.Duration `env:"MESSAGE_POLL" default:"500ms"`
	PresencePoll    time.Duration `env:"PRESENCE_POLL" default:"3s"`
	ReactionPoll    time.Duration `env:"REACTION_POLL" default:"3s"`
	JanitorInterval time.Duration `env:"JANITOR_INTERVAL" default:"60s"`
	SecuritySweep   time.Duration `env:"SECURITY_SWEEP" default:"5m"`

	// Development
	LogLevel  string `env:"LOG_LEVEL" default:"debug"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Try to load .env file from the working directory
	if err := godotenv.Load(".env"); err != nil {
		// If .env file doesn't exist, that's OK - we can still use system env vars
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	config := &Config{}

	if err := loadEnvString(&config.GoEnv, "GO_ENV", "development"); err != nil {
		return nil, err
	}

	// Backend server
	if err := loadEnvInt(&config.HTTPPort, "HTTP_PORT", 8090); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.BackendURL, "BACKEND_URL", "http://localhost:8090"); err != nil {
		return nil, err
	}
	if err := loadEnvBool(&config.DevMode, "DEV_MODE", false); err != nil {
		return nil, err
	}
	if err := loadEnvInt64(&config.MaxBodySize, "MAX_BODY_SIZE", 64*1024); err != nil {
		return nil, err
	}

	// Redis
	if err := loadEnvString(&config.RedisAddr, "REDIS_ADDR", "localhost:6379"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.RedisPassword, "REDIS_PASSWORD", ""); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.ChannelTTL, "CHANNEL_TTL", 10*time.Minute); err != nil {
		return nil, err
	}

	// Admin authentication
	if err := loadEnvString(&config.JWTSecret, "JWT_SECRET", ""); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.JWTExpiry, "JWT_EXPIRY", 24*time.Hour); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.AdminPasswordHash, "ADMIN_PASSWORD_HASH", ""); err != nil {
		return nil, err
	}

	// Audit persistence
	if err := loadEnvString(&config.DatabaseURL, "DATABASE_URL", ""); err != nil {
		return nil, err
	}

	// Chat core
	if err := loadEnvDuration(&config.MessageTTL, "MESSAGE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.MessagePoll, "MESSAGE_POLL", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.PresencePoll, "PRESENCE_POLL", 3*time.Second); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.ReactionPoll, "REACTION_POLL", 3*time.Second); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.JanitorInterval, "JANITOR_INTERVAL", 60*time.Second); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.SecuritySweep, "SECURITY_SWEEP", 5*time.Minute); err != nil {
		return nil, err
	}

	// Development
	if err := loadEnvString(&config.LogLevel, "LOG_LEVEL", "debug"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.LogFormat, "LOG_FORMAT", "text"); err != nil {
		return nil, err
	}

	return config, nil
}

// Helper functions for type conversion and validation
func loadEnvString(target *string, key, defaultValue string) error {
	if value := os.Getenv(key); value != "" {
		*target = value
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvInt(target *int, key string, defaultValue int) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvInt64(target *int64, key string, defaultValue int64) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvBool(target *bool, key string, defaultValue bool) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvDuration(target *time.Duration, key string, defaultValue time.Duration) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	var errors []string

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errors = append(errors, fmt.Sprintf("HTTP_PORT must be between 1 and 65535, got %d", c.HTTPPort))
	}
	if c.MessageTTL <= 0 {
		errors = append(errors, "MESSAGE_TTL must be positive")
	}
	if c.MessagePoll <= 0 {
		errors = append(errors, "MESSAGE_POLL must be positive")
	}
	if !c.DevMode && c.RedisAddr == "" {
		errors = append(errors, "REDIS_ADDR is required unless DEV_MODE is set")
	}
	if c.JWTSecret == "" && c.AdminPasswordHash != "" {
		errors = append(errors, "JWT_SECRET is required when ADMIN_PASSWORD_HASH is set")
	}

	if len(errors) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}

// AdminEnabled reports whether the admin surface should be mounted.
func (c *Config) AdminEnabled() bool {
	return c.JWTSecret != "" && c.AdminPasswordHash != ""
}
