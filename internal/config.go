package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultAPITimeout bounds every request to the backend.
	DefaultAPITimeout = 30 * time.Second

	// DefaultRefreshAhead is how long before access-token expiry a
	// proactive refresh is worthwhile.
	DefaultRefreshAhead = 5 * time.Minute

	// DefaultRedirectDelay lets the session-expired notification
	// render before navigation to the login view.
	DefaultRedirectDelay = 1500 * time.Millisecond

	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Config struct {
	API           APIConfig           `mapstructure:"api"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Notifications NotificationConfig  `mapstructure:"notifications"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type APIConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RefreshAhead  time.Duration `mapstructure:"refresh_ahead"`
	RedirectDelay time.Duration `mapstructure:"redirect_delay"`
}

type StorageConfig struct {
	// Path is the sqlite file holding the credential store.
	Path string `mapstructure:"path"`
	// Secret seals tokens at rest. Any non-empty string; the store
	// derives the actual key from it.
	Secret string `mapstructure:"secret"`
}

type NotificationConfig struct {
	DefaultDuration time.Duration `mapstructure:"default_duration"`
	ErrorDuration   time.Duration `mapstructure:"error_duration"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}

// LoadConfigFromEnv builds a config entirely from environment
// variables, for deployments without a config file.
func LoadConfigFromEnv() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		API: APIConfig{
			BaseURL:       getEnv("SUPERVISOR_API_URL", "http://localhost:8000/api"),
			Timeout:       getEnvAsDuration("SUPERVISOR_API_TIMEOUT", DefaultAPITimeout),
			RefreshAhead:  getEnvAsDuration("SUPERVISOR_REFRESH_AHEAD", DefaultRefreshAhead),
			RedirectDelay: getEnvAsDuration("SUPERVISOR_REDIRECT_DELAY", DefaultRedirectDelay),
		},
		Storage: StorageConfig{
			Path:   getEnv("SUPERVISOR_STORAGE_PATH", filepath.Join(home, ".supervisor", "credentials.db")),
			Secret: getEnv("SUPERVISOR_STORAGE_SECRET", ""),
		},
		Notifications: NotificationConfig{
			DefaultDuration: getEnvAsDuration("SUPERVISOR_NOTIFY_DURATION", 5*time.Second),
			ErrorDuration:   getEnvAsDuration("SUPERVISOR_NOTIFY_ERROR_DURATION", 8*time.Second),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("SUPERVISOR_LOG_LEVEL", "info"),
				Format: getEnv("SUPERVISOR_LOG_FORMAT", "text"),
			},
		},
	}
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.API.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("api config: %v", err))
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func (c *APIConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url %q is not an absolute URL", c.BaseURL)
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultAPITimeout
	}
	if c.RefreshAhead <= 0 {
		c.RefreshAhead = DefaultRefreshAhead
	}
	if c.RedirectDelay < 0 {
		return errors.New("redirect_delay cannot be negative")
	}
	return nil
}

func (c *StorageConfig) Validate() error {
	if c.Path == "" {
		return errors.New("path is required")
	}
	return nil
}
