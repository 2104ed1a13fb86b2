package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the context service
type Config struct {
	Redis         RedisConfig         `mapstructure:"redis"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Tiers         TiersConfig         `mapstructure:"tiers"`
	Upstream      UpstreamConfig      `mapstructure:"upstream"`
	Refresh       RefreshConfig       `mapstructure:"refresh"`
	Alerting      AlertingConfig      `mapstructure:"alerting"`
	History       HistoryConfig       `mapstructure:"history"`
	AWS           AWSConfig           `mapstructure:"aws"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	HTTP          HTTPConfig          `mapstructure:"http"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// CacheConfig holds cache behavior settings
type CacheConfig struct {
	KeyPrefix     string `mapstructure:"key_prefix"`
	MemoryMaxSize int    `mapstructure:"memory_max_size"`
}

// TiersConfig holds per-tier TTL overrides in seconds. Zero means default.
type TiersConfig struct {
	PrimaryTTL  int `mapstructure:"primary_ttl"`
	DetailedTTL int `mapstructure:"detailed_ttl"`
	IntradayTTL int `mapstructure:"intraday_ttl"`
	SwingTTL    int `mapstructure:"swing_ttl"`
	LongTermTTL int `mapstructure:"long_term_ttl"`
}

// UpstreamConfig holds upstream source settings
type UpstreamConfig struct {
	BrokerBaseURL  string          `mapstructure:"broker_base_url"`
	MarketBaseURL  string          `mapstructure:"market_base_url"`
	APIKey         string          `mapstructure:"api_key"`
	AccessToken    string          `mapstructure:"access_token"`
	Watchlist      []string        `mapstructure:"watchlist"`
	RequestTimeout time.Duration   `mapstructure:"request_timeout"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
	QuoteBatchMax  int             `mapstructure:"quote_batch_max"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

// RefreshConfig holds scheduled tier refresh settings
type RefreshConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Schedule string   `mapstructure:"schedule"`
	Tiers    []string `mapstructure:"tiers"`
	Workers  int      `mapstructure:"workers"`
}

// AlertingConfig holds quality alerting settings
type AlertingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	SNSTopicARN string  `mapstructure:"sns_topic_arn"`
	ScoreFloor  float64 `mapstructure:"score_floor"`
}

// HistoryConfig holds quality report history settings
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	DynamoDBTable string `mapstructure:"dynamodb_table"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// AWSConfig holds AWS client configuration
type AWSConfig struct {
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// MetricsConfig holds metrics settings
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// TracingConfig holds tracing settings
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port              int           `mapstructure:"port"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	GenerationTimeout time.Duration `mapstructure:"generation_timeout"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CONTEXT")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not fatal if env vars are set
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Redis defaults
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	// Cache defaults
	v.SetDefault("cache.key_prefix", "mktctx:")
	v.SetDefault("cache.memory_max_size", 1000)

	// Tier TTL defaults (seconds)
	v.SetDefault("tiers.primary_ttl", 60)
	v.SetDefault("tiers.detailed_ttl", 300)
	v.SetDefault("tiers.intraday_ttl", 30)
	v.SetDefault("tiers.swing_ttl", 300)
	v.SetDefault("tiers.long_term_ttl", 900)

	// Upstream defaults
	v.SetDefault("upstream.broker_base_url", "https://api.kite.trade")
	v.SetDefault("upstream.market_base_url", "https://api.kite.trade")
	v.SetDefault("upstream.watchlist", []string{
		"RELIANCE", "TCS", "HDFCBANK", "INFY", "ICICIBANK",
		"SBIN", "BHARTIARTL", "ITC", "LT", "KOTAKBANK",
	})
	v.SetDefault("upstream.request_timeout", "5s")
	v.SetDefault("upstream.rate_limit.requests_per_minute", 180)
	v.SetDefault("upstream.rate_limit.burst", 10)
	v.SetDefault("upstream.quote_batch_max", 500)

	// Refresh defaults: regenerate intraday and primary just before the
	// minute bucket rolls over
	v.SetDefault("refresh.enabled", false)
	v.SetDefault("refresh.schedule", "50 * * * * *")
	v.SetDefault("refresh.tiers", []string{"primary", "intraday"})
	v.SetDefault("refresh.workers", 2)

	// Alerting defaults
	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.sns_topic_arn", "")
	v.SetDefault("alerting.score_floor", 0.5)

	// History defaults
	v.SetDefault("history.enabled", false)
	v.SetDefault("history.dynamodb_table", "context-quality-reports")
	v.SetDefault("history.retention_days", 7)

	// AWS defaults
	v.SetDefault("aws.region", "ap-south-1")
	v.SetDefault("aws.endpoint", "")

	// Observability defaults
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.port", 9091)
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")

	// HTTP defaults
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.request_timeout", "30s")
	v.SetDefault("http.generation_timeout", "10s")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Redis.Enabled && c.Redis.Address == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	if c.Cache.KeyPrefix == "" {
		return fmt.Errorf("cache key prefix is required")
	}

	if len(c.Upstream.Watchlist) == 0 {
		return fmt.Errorf("at least one watchlist symbol is required")
	}

	if c.Upstream.QuoteBatchMax <= 0 {
		return fmt.Errorf("quote batch max must be positive")
	}

	// TTL monotonicity over the reuse chain: intraday <= swing <= long-term
	if c.Tiers.SwingTTL < c.Tiers.IntradayTTL {
		return fmt.Errorf("swing ttl (%ds) must be >= intraday ttl (%ds)",
			c.Tiers.SwingTTL, c.Tiers.IntradayTTL)
	}
	if c.Tiers.LongTermTTL < c.Tiers.SwingTTL {
		return fmt.Errorf("long-term ttl (%ds) must be >= swing ttl (%ds)",
			c.Tiers.LongTermTTL, c.Tiers.SwingTTL)
	}

	if c.Alerting.Enabled && c.Alerting.SNSTopicARN == "" {
		return fmt.Errorf("SNS topic ARN is required when alerting is enabled")
	}
	if c.Alerting.ScoreFloor < 0 || c.Alerting.ScoreFloor > 1 {
		return fmt.Errorf("alerting score floor must be within [0, 1]")
	}

	if c.History.Enabled && c.History.DynamoDBTable == "" {
		return fmt.Errorf("DynamoDB table is required when history is enabled")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Observability.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Observability.Logging.Level)
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Observability.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Observability.Logging.Format)
	}

	return nil
}
