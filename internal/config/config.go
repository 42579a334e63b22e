package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	JWT      JWTConfig
	YouTube  YouTubeConfig
	WhatsApp WhatsAppConfig
	Data     DataConfig
	CORS     CORSConfig
	Logging  LoggingConfig
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port string
	Env  string
}

// JWTConfig contains JWT authentication configuration
type JWTConfig struct {
	Secret string
	Issuer string
	Expiry time.Duration
}

// YouTubeConfig contains the video lookup configuration
type YouTubeConfig struct {
	APIKey    string
	ChannelID string
	Timeout   time.Duration
}

// WhatsAppConfig contains WhatsApp-specific configuration
type WhatsAppConfig struct {
	SessionDir     string
	ReconnectDelay time.Duration
	SendDelay      time.Duration
}

// DataConfig contains the JSON store configuration
type DataConfig struct {
	Dir string
}

// CORSConfig contains CORS configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// Load reads configuration from the environment, optionally seeded from a
// .env file in the working directory.
func Load() (*Config, error) {
	// A missing .env file is fine; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("APP_PORT", "3000"),
			Env:  getEnv("APP_ENV", "production"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
			Issuer: getEnv("JWT_ISSUER", "tubecast"),
			Expiry: getEnvDuration("JWT_EXPIRY", 86400) * time.Second,
		},
		YouTube: YouTubeConfig{
			APIKey:    getEnv("YOUTUBE_API_KEY", ""),
			ChannelID: getEnv("YOUTUBE_CHANNEL_ID", ""),
			Timeout:   getEnvDuration("YOUTUBE_TIMEOUT", 15) * time.Second,
		},
		WhatsApp: WhatsAppConfig{
			SessionDir:     getEnv("WA_SESSION_DIR", "sessions"),
			ReconnectDelay: getEnvDuration("WA_RECONNECT_DELAY", 5) * time.Second,
			SendDelay:      getEnvDuration("WA_SEND_DELAY", 2) * time.Second,
		},
		Data: DataConfig{
			Dir: getEnv("DATA_DIR", "data"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.YouTube.APIKey == "" {
		return fmt.Errorf("YOUTUBE_API_KEY is required")
	}

	if c.YouTube.ChannelID == "" {
		return fmt.Errorf("YOUTUBE_CHANNEL_ID is required")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("APP_PORT is required")
	}

	return nil
}

// Helper functions to get environment variables with defaults

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return time.Duration(parsed)
		}
	}
	return time.Duration(defaultValue)
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Server.Port
}
