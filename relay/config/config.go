package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	internal "github.com/ZanzyTHEbar/context-relay/relay"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Completion CompletionConfig `mapstructure:"completion"`
	Search     SearchConfig     `mapstructure:"search"`
	Fetcher    FetcherConfig    `mapstructure:"fetcher"`
	Store      StoreConfig      `mapstructure:"store"`
	Harness    HarnessConfig    `mapstructure:"harness"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// CompletionConfig describes the remote chat-completion endpoint.
type CompletionConfig struct {
	BaseURL         string        `mapstructure:"base_url"`         // Full chat/completions URL
	Model           string        `mapstructure:"model"`            // Fixed target model identifier
	MaxTokens       int           `mapstructure:"max_tokens"`       // max_tokens sent with every request
	Temperature     float32       `mapstructure:"temperature"`      // Sampling temperature
	Timeout         time.Duration `mapstructure:"timeout"`          // HTTP client timeout
	DefaultProvider string        `mapstructure:"default_provider"` // Provider id used when the caller passes none
}

// SearchConfig stores web search credentials and limits.
type SearchConfig struct {
	Endpoint   string        `mapstructure:"endpoint"`
	APIKey     string        `mapstructure:"api_key"`
	CX         string        `mapstructure:"cx"`
	NumResults int           `mapstructure:"num_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// FetcherConfig controls URL and file excerpt extraction.
type FetcherConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`         // Per-fetch timeout
	MaxLines       int           `mapstructure:"max_lines"`       // Excerpt bound
	UserAgent      string        `mapstructure:"user_agent"`      // Sent with every page request
	ContentAnchor  string        `mapstructure:"content_anchor"`  // Default primary-content element id
	ContentAnchors []AnchorRule  `mapstructure:"content_anchors"` // Per-site overrides
	DenyPatterns   []string      `mapstructure:"deny_patterns"`   // gitignore-style patterns never read
}

// AnchorRule overrides the primary-content element id for URLs starting with Prefix.
type AnchorRule struct {
	Prefix string `mapstructure:"prefix"`
	ID     string `mapstructure:"id"`
}

// DatabaseConfig stores database connection details.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
	// Embedded-only configuration
	LibSQLDataDir string `mapstructure:"libsql_data_dir"`
}

// StoreConfig selects and configures the conversation store backend.
type StoreConfig struct {
	Backend  string         `mapstructure:"backend"` // "json", "libsql", "none"
	Dir      string         `mapstructure:"dir"`     // Thread record directory for the json backend
	Database DatabaseConfig `mapstructure:"database"`
}

// HarnessConfig stores pipeline infrastructure settings.
type HarnessConfig struct {
	// Fetch cache
	CacheEnabled    bool `mapstructure:"cache_enabled"`
	CacheCapacity   int  `mapstructure:"cache_capacity"`
	CacheTTLSeconds int  `mapstructure:"cache_ttl_seconds"`

	// Rate limiting
	RateLimitEnabled    bool          `mapstructure:"rate_limit_enabled"`
	RateLimitCapacity   int           `mapstructure:"rate_limit_capacity"`    // Assemble calls per bucket
	RateLimitRefillRate time.Duration `mapstructure:"rate_limit_refill_rate"` // Refill interval
	FetchRateCapacity   int           `mapstructure:"fetch_rate_capacity"`    // Page fetches per host bucket

	// Telemetry
	EnableTracing bool   `mapstructure:"enable_tracing"`
	Tracer        string `mapstructure:"tracer"`        // "zerolog", "otel"
	OTLPEndpoint  string `mapstructure:"otlp_endpoint"` // host:port for the OTLP/HTTP exporter; empty uses OTEL_* env
	ServiceName   string `mapstructure:"service_name"`
}

// LoggingConfig controls the zerolog root logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console", "json"
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := newViper(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file on the search path; defaults and env apply.
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	AppConfig = *cfg
	return cfg, nil
}

// Watch loads the config file at configPath and calls onChange with the
// re-decoded configuration every time the file is written.
func Watch(configPath string, onChange func(*Config, error)) (*Config, error) {
	if configPath == "" {
		return nil, errors.New("watch requires an explicit config path")
	}
	v := newViper(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		onChange(decode(v))
	})
	v.WatchConfig()

	return cfg, nil
}

// Validate rejects values the factory cannot wire.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "json", "libsql", "none":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Harness.Tracer {
	case "zerolog", "otel":
	default:
		return fmt.Errorf("unknown tracer %q", c.Harness.Tracer)
	}
	if c.Fetcher.MaxLines <= 0 {
		return fmt.Errorf("fetcher.max_lines must be positive: %d", c.Fetcher.MaxLines)
	}
	if c.Completion.BaseURL == "" || c.Completion.Model == "" {
		return errors.New("completion.base_url and completion.model are required")
	}
	return nil
}

func newViper(configPath string) *viper.Viper {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Completion defaults
	v.SetDefault("completion.base_url", "https://api.deepseek.com/chat/completions")
	v.SetDefault("completion.model", "deepseek-chat")
	v.SetDefault("completion.max_tokens", 1024)
	v.SetDefault("completion.temperature", 0.7)
	v.SetDefault("completion.timeout", "60s")
	v.SetDefault("completion.default_provider", "deepseek")

	// Search defaults
	v.SetDefault("search.endpoint", "https://www.googleapis.com/customsearch/v1")
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.cx", "")
	v.SetDefault("search.num_results", 3)
	v.SetDefault("search.timeout", "15s")

	// Fetcher defaults
	v.SetDefault("fetcher.timeout", "10s")
	v.SetDefault("fetcher.max_lines", 20)
	v.SetDefault("fetcher.user_agent", internal.DefaultAppName+"/1.0")
	v.SetDefault("fetcher.content_anchor", "content")
	v.SetDefault("fetcher.content_anchors", []map[string]string{
		{"prefix": "https://en.wikipedia.org/wiki/", "id": "mw-content-text"},
	})
	v.SetDefault("fetcher.deny_patterns", []string{".env", "*.pem", "*.key", "id_rsa*"})

	// Store defaults
	v.SetDefault("store.backend", internal.DefaultStoreType)
	v.SetDefault("store.dir", internal.DefaultThreadsDir)
	v.SetDefault("store.database.dsn", internal.DefaultDatabaseDSN)
	v.SetDefault("store.database.libsql_data_dir", internal.DefaultDatabaseDir)

	// Harness defaults
	v.SetDefault("harness.cache_enabled", true)
	v.SetDefault("harness.cache_capacity", 256)
	v.SetDefault("harness.cache_ttl_seconds", 600)
	v.SetDefault("harness.rate_limit_enabled", true)
	v.SetDefault("harness.rate_limit_capacity", 10)
	v.SetDefault("harness.rate_limit_refill_rate", "1s")
	v.SetDefault("harness.fetch_rate_capacity", 5)
	v.SetDefault("harness.enable_tracing", true)
	v.SetDefault("harness.tracer", "zerolog")
	v.SetDefault("harness.otlp_endpoint", "")
	v.SetDefault("harness.service_name", internal.DefaultAppName)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.AutomaticEnv()
	// Replace dots with underscores in env var names e.g. search.api_key becomes SEARCH_API_KEY
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// The search credentials also answer to the names the Custom Search docs use.
	_ = v.BindEnv("search.api_key", "SEARCH_API_KEY", "GOOGLE_API_KEY")
	_ = v.BindEnv("search.cx", "SEARCH_CX", "GOOGLE_CSE_ID")

	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
