package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/placefinder/internal/cost"
	"github.com/sells-group/placefinder/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store       store.Config      `yaml:"store" mapstructure:"store"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	Google      GoogleConfig      `yaml:"google" mapstructure:"google"`
	Foursquare  FoursquareConfig  `yaml:"foursquare" mapstructure:"foursquare"`
	Overpass    OverpassConfig    `yaml:"overpass" mapstructure:"overpass"`
	Aggregation AggregationConfig `yaml:"aggregation" mapstructure:"aggregation"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Usage       UsageConfig       `yaml:"usage" mapstructure:"usage"`
	Photos      PhotosConfig      `yaml:"photos" mapstructure:"photos"`
	Breaker     BreakerConfig     `yaml:"breaker" mapstructure:"breaker"`
	Pricing     cost.Rates        `yaml:"pricing" mapstructure:"pricing"`
}

// AnthropicConfig configures LLM discovery and tips.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	Discovery   bool    `yaml:"discovery" mapstructure:"discovery"`
}

// GoogleConfig configures the Google Places client.
type GoogleConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// FoursquareConfig configures the Foursquare Places client.
type FoursquareConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// OverpassConfig configures the OpenStreetMap Overpass client.
type OverpassConfig struct {
	Enabled   bool    `yaml:"enabled" mapstructure:"enabled"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent string  `yaml:"user_agent" mapstructure:"user_agent"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// AggregationConfig tunes the aggregation engine.
type AggregationConfig struct {
	// Ranked lists the ranked search providers in merge order. A provider
	// without an API key is skipped.
	Ranked         []string `yaml:"ranked" mapstructure:"ranked"`
	RadiusKm       float64  `yaml:"radius_km" mapstructure:"radius_km"`
	MinResults     int      `yaml:"min_results" mapstructure:"min_results"`
	MaxAttempts    int      `yaml:"max_attempts" mapstructure:"max_attempts"`
	BatchSize      int      `yaml:"batch_size" mapstructure:"batch_size"`
	BatchDelayMs   int      `yaml:"batch_delay_ms" mapstructure:"batch_delay_ms"`
	ChainPolicy    string   `yaml:"chain_policy" mapstructure:"chain_policy"`
	ExtraChains    []string `yaml:"extra_chains" mapstructure:"extra_chains"`
	AppendMinimum  int      `yaml:"append_threshold" mapstructure:"append_threshold"`
	DiscoveryCount int      `yaml:"discovery_count" mapstructure:"discovery_count"`
}

// CacheConfig sets cache lifetimes and sizes.
type CacheConfig struct {
	GridTTLHours       int `yaml:"grid_ttl_hours" mapstructure:"grid_ttl_hours"`
	GridCapacity       int `yaml:"grid_capacity" mapstructure:"grid_capacity"`
	GridPrecision      int `yaml:"grid_precision" mapstructure:"grid_precision"`
	LastSearchTTLHours int `yaml:"last_search_ttl_hours" mapstructure:"last_search_ttl_hours"`
	DetailsTTLHours    int `yaml:"details_ttl_hours" mapstructure:"details_ttl_hours"`
	TipsTTLHours       int `yaml:"tips_ttl_hours" mapstructure:"tips_ttl_hours"`
}

// UsageConfig sets the monthly quota.
type UsageConfig struct {
	MonthlyLimit int `yaml:"monthly_limit" mapstructure:"monthly_limit"`
}

// PhotosConfig tunes photo resolution.
type PhotosConfig struct {
	MaxWidthPx int `yaml:"max_width_px" mapstructure:"max_width_px"`
}

// BreakerConfig tunes the per-provider circuit breakers.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RequestsPerMin int      `yaml:"requests_per_min" mapstructure:"requests_per_min"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml and PLACEFINDER_* environment
// variables, environment winning.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PLACEFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", store.DriverSQLite)
	v.SetDefault("store.dsn", "placefinder.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.requests_per_min", 60)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("anthropic.temperature", 0.4)
	v.SetDefault("anthropic.discovery", true)
	v.SetDefault("google.key", "")
	v.SetDefault("google.rate_limit", 10)
	v.SetDefault("foursquare.key", "")
	v.SetDefault("foursquare.rate_limit", 10)
	v.SetDefault("overpass.enabled", true)
	v.SetDefault("overpass.base_url", "https://overpass-api.de/api")
	v.SetDefault("overpass.user_agent", "placefinder/1.0")
	v.SetDefault("overpass.rate_limit", 1)
	v.SetDefault("aggregation.ranked", []string{"google", "foursquare"})
	v.SetDefault("aggregation.radius_km", 5.0)
	v.SetDefault("aggregation.max_attempts", 3)
	v.SetDefault("aggregation.batch_size", 10)
	v.SetDefault("aggregation.batch_delay_ms", 100)
	v.SetDefault("aggregation.chain_policy", "exclude")
	v.SetDefault("aggregation.append_threshold", 4)
	v.SetDefault("aggregation.discovery_count", 15)
	v.SetDefault("cache.grid_ttl_hours", 6)
	v.SetDefault("cache.grid_capacity", 100)
	v.SetDefault("cache.grid_precision", 2)
	v.SetDefault("cache.last_search_ttl_hours", 24)
	v.SetDefault("cache.details_ttl_hours", 24)
	v.SetDefault("cache.tips_ttl_hours", 24*7)
	v.SetDefault("usage.monthly_limit", 10)
	v.SetDefault("photos.max_width_px", 1600)
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.reset_timeout_secs", 30)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if len(cfg.Pricing.Calls) == 0 && len(cfg.Pricing.Anthropic) == 0 {
		cfg.Pricing = cost.DefaultRates()
	}

	return &cfg, nil
}

// HasSearchProvider reports whether any provider that can verify a place
// location is configured.
func (c *Config) HasSearchProvider() bool {
	return c.Google.Key != "" || c.Foursquare.Key != ""
}

// Validate checks the settings a command mode needs. Modes are "search",
// "serve", "tips", "photos", and "local" for commands that only touch the
// store.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "search", "serve":
		if !c.HasSearchProvider() {
			errs = append(errs, "google.key or foursquare.key is required")
		}
	case "tips":
		if c.Anthropic.Key == "" && c.Foursquare.Key == "" {
			errs = append(errs, "anthropic.key or foursquare.key is required")
		}
	case "photos":
		if !c.HasSearchProvider() {
			errs = append(errs, "google.key or foursquare.key is required")
		}
	case "local":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if mode == "serve" && c.Server.Port <= 0 {
		errs = append(errs, "server.port must be > 0")
	}
	if a := c.Aggregation.MaxAttempts; a != 0 && (a < 3 || a > 5) {
		errs = append(errs, fmt.Sprintf("aggregation.max_attempts must be between 3 and 5, got %d", a))
	}
	if c.Aggregation.RadiusKm < 0 || c.Aggregation.RadiusKm > 100 {
		errs = append(errs, "aggregation.radius_km must be between 0 and 100")
	}
	switch strings.ToLower(c.Aggregation.ChainPolicy) {
	case "", "exclude", "deprioritize":
	default:
		errs = append(errs, fmt.Sprintf("aggregation.chain_policy must be exclude or deprioritize, got %q", c.Aggregation.ChainPolicy))
	}
	for _, r := range c.Aggregation.Ranked {
		if r != "google" && r != "foursquare" {
			errs = append(errs, fmt.Sprintf("aggregation.ranked: unknown provider %q", r))
		}
	}
	if c.Usage.MonthlyLimit < 0 {
		errs = append(errs, "usage.monthly_limit must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
