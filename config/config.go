package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/smtg-ai/quotewidget/log"
	"github.com/smtg-ai/quotewidget/quote"
	"github.com/smtg-ai/quotewidget/share"
)

const (
	ConfigFileName = "config.yaml"
	// EnvPrefix prefixes environment overrides. Levels are separated by a
	// double underscore: QUOTEWIDGET_RETRY__MAX_ATTEMPTS=3.
	EnvPrefix = "QUOTEWIDGET_"
)

// GetConfigDir returns the path to the application's configuration directory
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config home directory: %w", err)
	}
	return filepath.Join(homeDir, ".quotewidget"), nil
}

// Config represents the application configuration
type Config struct {
	API    APIConfig    `koanf:"api"`
	Retry  RetryConfig  `koanf:"retry"`
	Share  ShareConfig  `koanf:"share"`
	UI     UIConfig     `koanf:"ui"`
	Server ServerConfig `koanf:"server"`
	Log    LogConfig    `koanf:"log"`
}

// APIConfig describes how the quote API is reached.
type APIConfig struct {
	// RelayURL is prefixed verbatim to BaseURL. Empty means direct access.
	RelayURL string `koanf:"relay_url" validate:"omitempty,url"`
	// BaseURL is the quote API endpoint.
	BaseURL string `koanf:"base_url" validate:"required,url"`
	// Timeout bounds a single request. Zero disables it.
	Timeout time.Duration `koanf:"timeout" validate:"min=0"`
	// Key influences which quote the API picks. Empty lets the server choose.
	Key string `koanf:"key" validate:"omitempty,numeric,max=6"`
}

// RetryConfig controls what happens after a failed fetch.
type RetryConfig struct {
	// Unbounded re-fetches immediately and forever, like the original widget.
	Unbounded       bool          `koanf:"unbounded"`
	MaxAttempts     int           `koanf:"max_attempts" validate:"min=1,max=100"`
	InitialInterval time.Duration `koanf:"initial_interval" validate:"min=0"`
	MaxInterval     time.Duration `koanf:"max_interval" validate:"min=0"`
	Multiplier      float64       `koanf:"multiplier" validate:"min=1,max=10"`
	JitterFactor    float64       `koanf:"jitter_factor" validate:"min=0,max=1"`
}

// ShareConfig controls the share action.
type ShareConfig struct {
	BaseURL string `koanf:"base_url" validate:"required,url"`
	// Action is browser, clipboard or both.
	Action string `koanf:"action" validate:"oneof=browser clipboard both"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	LongQuoteThreshold int `koanf:"long_quote_threshold" validate:"min=1"`
}

// ServerConfig configures `quotewidget serve`.
type ServerConfig struct {
	Addr              string        `koanf:"addr" validate:"required"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" validate:"min=0"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" validate:"min=0"`
}

// LogConfig configures the log file.
type LogConfig struct {
	Path       string `koanf:"path"`
	Level      string `koanf:"level" validate:"oneof=debug info warn error"`
	MaxSizeMB  int    `koanf:"max_size_mb" validate:"min=0"`
	MaxBackups int    `koanf:"max_backups" validate:"min=0"`
	MaxAgeDays int    `koanf:"max_age_days" validate:"min=0"`
	Compress   bool   `koanf:"compress"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"api.relay_url": quote.DefaultRelayURL,
		"api.base_url":  quote.DefaultBaseURL,
		"api.timeout":   "30s",
		"api.key":       "",

		"retry.unbounded":        false,
		"retry.max_attempts":     5,
		"retry.initial_interval": "250ms",
		"retry.max_interval":     "5s",
		"retry.multiplier":       2.0,
		"retry.jitter_factor":    0.25,

		"share.base_url": share.DefaultBaseURL,
		"share.action":   share.ActionBrowser,

		"ui.long_quote_threshold": quote.DefaultLongQuoteThreshold,

		"server.addr":                ":8080",
		"server.read_header_timeout": "5s",
		"server.shutdown_timeout":    "10s",

		"log.path":         "",
		"log.level":        "info",
		"log.max_size_mb":  10,
		"log.max_backups":  3,
		"log.max_age_days": 28,
		"log.compress":     false,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		panic(fmt.Sprintf("config: loading defaults: %v", err))
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		panic(fmt.Sprintf("config: unmarshalling defaults: %v", err))
	}
	return &cfg
}

// Load reads the configuration with the following precedence (highest first):
//  1. Environment variables (QUOTEWIDGET_ prefix)
//  2. The YAML file at path, or ~/.quotewidget/config.yaml when path is empty
//  3. Default values
//
// When the default file does not exist it is created from the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path == "" {
		defaultPath, err := defaultConfigPath()
		if err != nil {
			log.WarningLog.Printf("failed to get config directory: %v", err)
		} else {
			path = defaultPath
			if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
				if saveErr := saveDefaults(path); saveErr != nil {
					log.WarningLog.Printf("failed to save default config: %v", saveErr)
				}
			}
		}
	}

	if path != "" {
		if err := loadFileIfExists(k, path); err != nil {
			return nil, fmt.Errorf("loading config file %q: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, EnvPrefix)),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Path returns the file Load reads when no explicit path is given.
func Path() (string, error) {
	return defaultConfigPath()
}

func defaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// loadFileIfExists loads a YAML config file if it exists.
func loadFileIfExists(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return k.Load(file.Provider(path), yaml.Parser())
}

// saveDefaults writes the default configuration to path.
func saveDefaults(path string) error {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return err
	}
	data, err := k.Marshal(yaml.Parser())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// RetryPolicy converts the retry section into a quote.RetryPolicy.
func (r RetryConfig) RetryPolicy() quote.RetryPolicy {
	if r.Unbounded {
		return quote.LegacyRetryPolicy()
	}
	return quote.RetryPolicy{
		MaxAttempts:     r.MaxAttempts,
		InitialInterval: r.InitialInterval,
		MaxInterval:     r.MaxInterval,
		Multiplier:      r.Multiplier,
		JitterFactor:    r.JitterFactor,
	}
}

// ClientOptions returns the quote client options for the api section.
func (a APIConfig) ClientOptions() []quote.ClientOption {
	return []quote.ClientOption{
		quote.WithRelayURL(a.RelayURL),
		quote.WithBaseURL(a.BaseURL),
		quote.WithTimeout(a.Timeout),
		quote.WithKey(a.Key),
	}
}

// Options returns the log options for the log section.
func (l LogConfig) Options() log.Options {
	return log.Options{
		Path:       l.Path,
		Level:      l.Level,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAgeDays: l.MaxAgeDays,
		Compress:   l.Compress,
	}
}
