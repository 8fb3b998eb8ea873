// Package config provides configuration management for the research assistant.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for every environment variable read by Load.
const EnvPrefix = "RESEARCH"

// Config holds all configuration for the research assistant.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Search contains pipeline limits and per-source fault isolation settings.
	Search SearchConfig `mapstructure:"search"`
	// PaperSources contains paper source settings.
	PaperSources PaperSourcesConfig `mapstructure:"paper_sources"`
	// LLM contains settings for the draft generator.
	LLM LLMConfig `mapstructure:"llm"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
}

// SearchConfig holds publication search settings.
type SearchConfig struct {
	// DefaultLimit is used when a request does not carry a limit.
	DefaultLimit int `mapstructure:"default_limit"`
	// MaxLimit is the largest limit a request may ask for.
	MaxLimit int `mapstructure:"max_limit"`
	// SourceTimeout bounds a single source's search.
	SourceTimeout time.Duration `mapstructure:"source_timeout"`
	// BreakerFailureThreshold is the number of consecutive failures that
	// opens a source's circuit.
	BreakerFailureThreshold uint32 `mapstructure:"breaker_failure_threshold"`
	// BreakerCooldown is how long an open circuit waits before probing.
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
}

// PaperSourcesConfig holds configuration for all paper sources.
type PaperSourcesConfig struct {
	ArXiv         PaperSourceConfig `mapstructure:"arxiv"`
	GoogleScholar PaperSourceConfig `mapstructure:"google_scholar"`
	PubMed        PaperSourceConfig `mapstructure:"pubmed"`
}

// PaperSourceConfig holds configuration for a single paper source.
type PaperSourceConfig struct {
	// Enabled controls whether the source takes part in searches.
	Enabled bool `mapstructure:"enabled"`
	// BaseURL is the source's base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the HTTP timeout for requests to the source.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the number of requests per second allowed.
	RateLimit float64 `mapstructure:"rate_limit"`
	// UserAgent overrides the source's default User-Agent header.
	UserAgent string `mapstructure:"user_agent"`
	// MaxResults is the number of entries requested from the source.
	MaxResults int `mapstructure:"max_results"`
}

// LLMConfig holds configuration for the OpenAI-compatible chat model used
// by the draft generator.
type LLMConfig struct {
	// Enabled turns the draft endpoint on.
	Enabled bool `mapstructure:"enabled"`
	// BaseURL is the OpenAI-compatible API endpoint.
	BaseURL string `mapstructure:"base_url"`
	// Model is the chat model name.
	Model string `mapstructure:"model"`
	// MaxTokens is the default completion budget.
	MaxTokens int `mapstructure:"max_tokens"`
	// Temperature is the sampling temperature.
	Temperature float64 `mapstructure:"temperature"`
	// Timeout bounds a single generation.
	Timeout time.Duration `mapstructure:"timeout"`
	// APIKey is loaded exclusively from RESEARCH_LLM_API_KEY.
	APIKey string `mapstructure:"-"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/research-assistant")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.LLM.APIKey = os.Getenv(EnvPrefix + "_LLM_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Search defaults
	v.SetDefault("search.default_limit", 10)
	v.SetDefault("search.max_limit", 50)
	v.SetDefault("search.source_timeout", "15s")
	v.SetDefault("search.breaker_failure_threshold", 5)
	v.SetDefault("search.breaker_cooldown", "60s")

	// Paper sources defaults - arXiv
	v.SetDefault("paper_sources.arxiv.enabled", true)
	v.SetDefault("paper_sources.arxiv.base_url", "https://export.arxiv.org/api")
	v.SetDefault("paper_sources.arxiv.timeout", "30s")
	v.SetDefault("paper_sources.arxiv.rate_limit", 3.0) // arXiv recommends max 3 req/sec
	v.SetDefault("paper_sources.arxiv.user_agent", "")
	v.SetDefault("paper_sources.arxiv.max_results", 10)

	// Paper sources defaults - Google Scholar
	v.SetDefault("paper_sources.google_scholar.enabled", true)
	v.SetDefault("paper_sources.google_scholar.base_url", "https://scholar.google.com")
	v.SetDefault("paper_sources.google_scholar.timeout", "20s")
	v.SetDefault("paper_sources.google_scholar.rate_limit", 0.5)
	v.SetDefault("paper_sources.google_scholar.user_agent", "")
	v.SetDefault("paper_sources.google_scholar.max_results", 10)

	// Paper sources defaults - PubMed
	v.SetDefault("paper_sources.pubmed.enabled", true)
	v.SetDefault("paper_sources.pubmed.base_url", "https://pubmed.ncbi.nlm.nih.gov")
	v.SetDefault("paper_sources.pubmed.timeout", "30s")
	v.SetDefault("paper_sources.pubmed.rate_limit", 3.0) // NCBI recommends max 3 req/sec without API key
	v.SetDefault("paper_sources.pubmed.user_agent", "")
	v.SetDefault("paper_sources.pubmed.max_results", 10)

	// LLM defaults
	// The API key is loaded exclusively from the environment (see loadSecrets).
	v.SetDefault("llm.enabled", false)
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.max_tokens", 2000)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout", "120s")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate search config
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search default_limit must be positive")
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("search max_limit (%d) must be >= default_limit (%d)", c.Search.MaxLimit, c.Search.DefaultLimit)
	}
	if c.Search.SourceTimeout <= 0 {
		return fmt.Errorf("search source_timeout must be positive")
	}
	if c.Search.BreakerFailureThreshold == 0 {
		return fmt.Errorf("search breaker_failure_threshold must be positive")
	}

	// Validate paper sources
	sources := map[string]PaperSourceConfig{
		"arxiv":          c.PaperSources.ArXiv,
		"google_scholar": c.PaperSources.GoogleScholar,
		"pubmed":         c.PaperSources.PubMed,
	}
	for name, src := range sources {
		if !src.Enabled {
			continue
		}
		if err := validateBaseURL(src.BaseURL); err != nil {
			return fmt.Errorf("paper source %s: %w", name, err)
		}
		if src.RateLimit <= 0 {
			return fmt.Errorf("paper source %s: rate_limit must be positive", name)
		}
	}

	// Validate LLM config only when the draft endpoint is on.
	if c.LLM.Enabled {
		if err := validateBaseURL(c.LLM.BaseURL); err != nil {
			return fmt.Errorf("llm: %w", err)
		}
		if c.LLM.Model == "" {
			return fmt.Errorf("llm model is required when llm is enabled")
		}
		if c.LLM.MaxTokens <= 0 {
			return fmt.Errorf("llm max_tokens must be positive")
		}
		if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
			return fmt.Errorf("llm temperature must be between 0 and 2")
		}
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm requires %s_LLM_API_KEY to be set", EnvPrefix)
		}
	}

	return nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base_url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("base_url %q has no host", raw)
	}
	return nil
}
