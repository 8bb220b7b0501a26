package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	API      APIConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Notify   NotifyConfig
}

// APIConfig contains backend API settings.
type APIConfig struct {
	BaseURL         string        // backend base URL including /api prefix
	MutationTimeout time.Duration // per-call timeout for mutating requests
}

// DatabaseConfig contains local cache database settings.
type DatabaseConfig struct {
	Path string // SQLite database file path
}

// AuthConfig contains credential storage and login settings.
type AuthConfig struct {
	TokenPath string // file path where the bearer token is persisted
	Email     string // login email, used when no persisted session exists
	Password  string // login password, used when no persisted session exists
}

// NotifyConfig contains notification forwarding settings.
type NotifyConfig struct {
	PollInterval  time.Duration // backend notification poll interval
	TelegramToken string        // bot token; forwarding disabled when empty
	TelegramChat  int64         // destination chat ID
}

// Load loads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg, err := LoadWithDefaults()
	if err != nil {
		return nil, err
	}

	// Validate critical settings
	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL environment variable is not set")
	}
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChat == 0 {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}

	return cfg, nil
}

// LoadWithDefaults is like Load but skips validation of required settings.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() (*Config, error) {
	mutTimeout, err := getEnvDuration("MUTATION_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	pollInterval, err := getEnvDuration("NOTIFY_POLL_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	chatID, err := getEnvInt64("TELEGRAM_CHAT_ID", 0)
	if err != nil {
		return nil, err
	}

	return &Config{
		API: APIConfig{
			BaseURL:         getEnv("API_BASE_URL", "https://medstream.onrender.com/api"),
			MutationTimeout: mutTimeout,
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "dashboard.db"),
		},
		Auth: AuthConfig{
			TokenPath: getEnv("TOKEN_PATH", ".auth-token"),
			Email:     getEnv("AUTH_EMAIL", ""),
			Password:  getEnv("AUTH_PASSWORD", ""),
		},
		Notify: NotifyConfig{
			PollInterval:  pollInterval,
			TelegramToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			TelegramChat:  chatID,
		},
	}, nil
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt64 retrieves an environment variable as an int64 with a default fallback.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

// getEnvDuration retrieves an environment variable as a duration with a default fallback.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		return d, nil
	}
	return defaultVal, nil
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	tg := "disabled"
	if c.Notify.TelegramToken != "" {
		tg = "*** (masked) ***"
	}
	return fmt.Sprintf("Config{API: %s, DB: %s, Telegram: %s}", c.API.BaseURL, c.Database.Path, tg)
}
