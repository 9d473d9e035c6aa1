package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/eppla/storefront/internal/assistant"
	"github.com/eppla/storefront/internal/catalog"
	"github.com/eppla/storefront/internal/checkout"
	"github.com/eppla/storefront/internal/database"
	httpclient "github.com/eppla/storefront/internal/http"
	"github.com/eppla/storefront/internal/parsers/charset"
	"github.com/eppla/storefront/internal/parsers/xml"
	"github.com/eppla/storefront/internal/pricing"
	"github.com/eppla/storefront/internal/telemetry"
	"github.com/eppla/storefront/internal/types"
)

// Remote store backends
const (
	RemoteDisabled = "disabled"
	RemotePostgres = "postgres"
	RemoteRedis    = "redis"
)

// Config holds the application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Feed       FeedConfig       `mapstructure:"feed"`
	Pricing    PricingConfig    `mapstructure:"pricing"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Remote     RemoteConfig     `mapstructure:"remote"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Checkout   CheckoutConfig   `mapstructure:"checkout"`
	Assistant  assistant.Config `mapstructure:"assistant"`
	Cart       CartConfig       `mapstructure:"cart"`
	Telemetry  telemetry.Config `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Host           string        `mapstructure:"host"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	InternalAPIKey string        `mapstructure:"internal_api_key"`
	ClientName     string        `mapstructure:"client_name"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// StorageConfig holds local storage configuration
type StorageConfig struct {
	Type        string `mapstructure:"type"`
	BasePath    string `mapstructure:"base_path"`
	ArchiveFeed bool   `mapstructure:"archive_feed"`
}

// FeedConfig holds supplier feed configuration
type FeedConfig struct {
	URL              string               `mapstructure:"url"`
	ItemTags         []string             `mapstructure:"item_tags"`
	AttributeTags    []string             `mapstructure:"attribute_tags"`
	Encoding         string               `mapstructure:"encoding"`
	FallbackEncoding string               `mapstructure:"fallback_encoding"`
	Fields           catalog.FieldMapping `mapstructure:"fields"`
	MarketingSuffix  string               `mapstructure:"marketing_suffix"`
	VariantLabel     string               `mapstructure:"variant_label"`
	IncludeSelf      bool                 `mapstructure:"include_self_in_variants"`
	SummaryLength    int                  `mapstructure:"summary_length"`
	KeywordTag       string               `mapstructure:"keyword_tag"`
}

// TierConfig is one markup tier in major currency units
type TierConfig struct {
	Threshold  float64 `mapstructure:"threshold"`
	Percentage float64 `mapstructure:"percentage"`
}

// PricingConfig holds the markup policy
type PricingConfig struct {
	Tiers               []TierConfig `mapstructure:"tiers"`
	MSRPCeiling         bool         `mapstructure:"msrp_ceiling"`
	MSRPUndercutPercent float64      `mapstructure:"msrp_undercut_percent"`
	RewardPointsPerUnit float64      `mapstructure:"reward_points_per_unit"`
}

// ClassifierConfig holds category keyword overrides
type ClassifierConfig struct {
	Keywords map[string][]string `mapstructure:"keywords"`
	Titles   map[string]string   `mapstructure:"titles"`
	Language string              `mapstructure:"language"`
}

// RemoteConfig holds remote catalog store configuration
type RemoteConfig struct {
	Type        string        `mapstructure:"type"`
	DatabaseURL string        `mapstructure:"database_url"`
	RedisURL    string        `mapstructure:"redis_url"`
	RedisPrefix string        `mapstructure:"redis_prefix"`
	MaxConns    int           `mapstructure:"max_conns"`
	MinConns    int           `mapstructure:"min_conns"`
	MaxLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	PoolSize    int           `mapstructure:"pool_size"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// RateLimitConfig holds feed client and admin rate limits
type RateLimitConfig struct {
	FeedRequestsPerSecond   float64       `mapstructure:"feed_requests_per_second"`
	FeedTimeout             time.Duration `mapstructure:"feed_timeout"`
	FeedMaxBodyBytes        int64         `mapstructure:"feed_max_body_bytes"`
	AdminRequestsPerSecond  float64       `mapstructure:"admin_requests_per_second"`
	AdminBurst              int           `mapstructure:"admin_burst"`
	PublicRequestsPerSecond float64       `mapstructure:"public_requests_per_second"`
	PublicBurst             int           `mapstructure:"public_burst"`
}

// CheckoutConfig holds payment hand-off configuration
type CheckoutConfig struct {
	StripeSecretKey string `mapstructure:"stripe_secret_key"`
	Currency        string `mapstructure:"currency"`
	SuccessURL      string `mapstructure:"success_url"`
	CancelURL       string `mapstructure:"cancel_url"`
}

// CartConfig holds session cart housekeeping
type CartConfig struct {
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// Load loads the configuration from file, .env, and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// .env is optional; existing environment variables win
	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg(".env file not loaded")
	}

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.applyFallbacks()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadEnvFile loads the first .env found
func loadEnvFile() error {
	for _, dir := range []string{".", "./config"} {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			return godotenv.Load(path)
		}
	}
	return errors.New("no .env file found")
}

// bindEnvVars binds well-known environment variable names
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("server.port", "STOREFRONT_SERVER_PORT", "PORT")
	_ = v.BindEnv("server.host", "STOREFRONT_SERVER_HOST", "HOST")
	_ = v.BindEnv("server.internal_api_key", "STOREFRONT_SERVER_INTERNAL_API_KEY", "INTERNAL_API_KEY")
	_ = v.BindEnv("logging.level", "STOREFRONT_LOGGING_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("storage.base_path", "STOREFRONT_STORAGE_BASE_PATH", "STORAGE_PATH")
	_ = v.BindEnv("feed.url", "STOREFRONT_FEED_URL", "FEED_URL")
	_ = v.BindEnv("remote.type", "STOREFRONT_REMOTE_TYPE", "REMOTE_TYPE")
	_ = v.BindEnv("remote.database_url", "STOREFRONT_REMOTE_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("remote.redis_url", "STOREFRONT_REMOTE_REDIS_URL", "REDIS_URL")
	_ = v.BindEnv("checkout.stripe_secret_key", "STOREFRONT_CHECKOUT_STRIPE_SECRET_KEY", "STRIPE_SECRET_KEY")
	_ = v.BindEnv("assistant.api_key", "STOREFRONT_ASSISTANT_API_KEY", "GEMINI_API_KEY", "API_KEY")
	_ = v.BindEnv("telemetry.endpoint", "STOREFRONT_TELEMETRY_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	_ = v.BindEnv("telemetry.service_name", "STOREFRONT_TELEMETRY_SERVICE_NAME", "OTEL_SERVICE_NAME")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 90*time.Second)
	v.SetDefault("server.client_name", "storefront")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.no_color", false)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.base_path", "./data")
	v.SetDefault("storage.archive_feed", true)

	xmlDefaults := xml.DefaultParserOptions()
	v.SetDefault("feed.item_tags", xmlDefaults.ItemTags)
	v.SetDefault("feed.attribute_tags", xmlDefaults.AttributeTags)
	v.SetDefault("feed.encoding", string(xmlDefaults.Encoding))
	v.SetDefault("feed.fallback_encoding", string(xmlDefaults.FallbackEncoding))
	v.SetDefault("feed.marketing_suffix", catalog.DefaultMarketingSuffix)
	v.SetDefault("feed.variant_label", catalog.DefaultVariantLabel)
	v.SetDefault("feed.summary_length", catalog.DefaultSummaryLength)
	v.SetDefault("feed.keyword_tag", catalog.DefaultKeywordTag)

	tiers := make([]map[string]any, 0, len(pricing.DefaultTiers()))
	for _, t := range pricing.DefaultTiers() {
		tiers = append(tiers, map[string]any{"threshold": t.Threshold.Float(), "percentage": t.Percentage})
	}
	v.SetDefault("pricing.tiers", tiers)
	v.SetDefault("pricing.msrp_ceiling", pricing.DefaultMSRPCeiling().Enabled)
	v.SetDefault("pricing.msrp_undercut_percent", pricing.DefaultMSRPCeiling().UndercutPercent)
	v.SetDefault("pricing.reward_points_per_unit", 1.0)

	v.SetDefault("classifier.language", "el")

	v.SetDefault("remote.type", "")
	v.SetDefault("remote.redis_prefix", "catalog:")
	v.SetDefault("remote.max_conns", 10)
	v.SetDefault("remote.min_conns", 1)
	v.SetDefault("remote.max_conn_lifetime", time.Hour)
	v.SetDefault("remote.max_conn_idle_time", 30*time.Minute)
	v.SetDefault("remote.pool_size", 10)
	v.SetDefault("remote.timeout", 10*time.Second)

	feedDefaults := httpclient.DefaultConfig()
	v.SetDefault("rate_limit.feed_requests_per_second", feedDefaults.RequestsPerSecond)
	v.SetDefault("rate_limit.feed_timeout", feedDefaults.Timeout)
	v.SetDefault("rate_limit.feed_max_body_bytes", feedDefaults.MaxBodyBytes)
	v.SetDefault("rate_limit.admin_requests_per_second", 5)
	v.SetDefault("rate_limit.admin_burst", 10)
	v.SetDefault("rate_limit.public_requests_per_second", 20)
	v.SetDefault("rate_limit.public_burst", 40)

	v.SetDefault("checkout.currency", checkout.DefaultCurrency)
	v.SetDefault("checkout.success_url", "http://localhost:3000/api/checkout/{REFERENCE}/success")
	v.SetDefault("checkout.cancel_url", "http://localhost:3000/api/checkout/{REFERENCE}/cancel")

	assistantDefaults := assistant.DefaultConfig()
	v.SetDefault("assistant.advice_model", assistantDefaults.AdviceModel)
	v.SetDefault("assistant.seo_model", assistantDefaults.SEOModel)
	v.SetDefault("assistant.timeout", assistantDefaults.Timeout)
	v.SetDefault("assistant.max_inventory", assistantDefaults.MaxInventory)
	v.SetDefault("assistant.history_limit", assistantDefaults.HistoryLimit)

	v.SetDefault("cart.idle_ttl", 24*time.Hour)
	v.SetDefault("cart.sweep_interval", 10*time.Minute)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", telemetry.DefaultServiceName)
}

// applyFallbacks derives settings that depend on other settings. Missing
// optional credentials disable the feature instead of failing startup.
func (c *Config) applyFallbacks() {
	if c.Remote.Type == "" {
		switch {
		case c.Remote.DatabaseURL != "":
			c.Remote.Type = RemotePostgres
		case c.Remote.RedisURL != "":
			c.Remote.Type = RemoteRedis
		default:
			c.Remote.Type = RemoteDisabled
		}
	}
	if c.Remote.Type == RemotePostgres && c.Remote.DatabaseURL == "" {
		log.Warn().Msg("Remote store set to postgres but no database url configured; remote disabled")
		c.Remote.Type = RemoteDisabled
	}
	if c.Remote.Type == RemoteRedis && c.Remote.RedisURL == "" {
		log.Warn().Msg("Remote store set to redis but no redis url configured; remote disabled")
		c.Remote.Type = RemoteDisabled
	}
	if c.Telemetry.Endpoint != "" && !c.Telemetry.Enabled {
		c.Telemetry.Enabled = true
	}
}

// Validate checks values that would otherwise fail later
func (c *Config) Validate() error {
	switch c.Remote.Type {
	case RemoteDisabled, RemotePostgres, RemoteRedis:
	default:
		return fmt.Errorf("unknown remote store type %q", c.Remote.Type)
	}
	switch c.Storage.Type {
	case "local", "memory":
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
	if len(c.Pricing.Tiers) == 0 {
		return pricing.ErrNoTiers
	}
	if c.Cart.SweepInterval <= 0 {
		return fmt.Errorf("cart.sweep_interval must be positive, got %s", c.Cart.SweepInterval)
	}
	if c.Cart.IdleTTL <= 0 {
		return fmt.Errorf("cart.idle_ttl must be positive, got %s", c.Cart.IdleTTL)
	}
	return nil
}

// PricingEngineConfig converts the pricing section to an engine config
func (c *Config) PricingEngineConfig() pricing.Config {
	tiers := make([]types.MarkupTier, len(c.Pricing.Tiers))
	for i, t := range c.Pricing.Tiers {
		tiers[i] = types.MarkupTier{
			Threshold:  pricing.FromMajor(t.Threshold),
			Percentage: t.Percentage,
		}
	}
	return pricing.Config{
		Tiers: tiers,
		MSRPCeiling: pricing.MSRPCeilingRule{
			Enabled:         c.Pricing.MSRPCeiling,
			UndercutPercent: c.Pricing.MSRPUndercutPercent,
		},
		RewardPointsPerUnit: c.Pricing.RewardPointsPerUnit,
	}
}

// ParserOptions converts the feed section to parser options
func (c *Config) ParserOptions() xml.ParserOptions {
	return xml.ParserOptions{
		ItemTags:         c.Feed.ItemTags,
		AttributeTags:    c.Feed.AttributeTags,
		Encoding:         charset.Normalize(c.Feed.Encoding),
		FallbackEncoding: charset.Normalize(c.Feed.FallbackEncoding),
	}
}

// NormalizerOptions converts the feed section to normalizer options. Field
// lists given in config replace the default candidates for that field.
func (c *Config) NormalizerOptions() catalog.NormalizerOptions {
	return catalog.NormalizerOptions{
		Fields:                c.Feed.Fields.Merge(catalog.DefaultFieldMapping()),
		MarketingSuffix:       c.Feed.MarketingSuffix,
		VariantLabel:          c.Feed.VariantLabel,
		SummaryLength:         c.Feed.SummaryLength,
		KeywordTag:            c.Feed.KeywordTag,
		IncludeSelfInVariants: c.Feed.IncludeSelf,
	}
}

// ClassifierOptions converts the classifier section, ignoring unknown buckets
func (c *Config) ClassifierOptions() catalog.ClassifierConfig {
	cfg := catalog.ClassifierConfig{Language: c.Classifier.Language}
	if len(c.Classifier.Keywords) > 0 {
		cfg.Keywords = make(map[catalog.BucketID][]string)
		for name, words := range c.Classifier.Keywords {
			if id, ok := catalog.ParseBucketID(name); ok {
				cfg.Keywords[id] = words
			} else {
				log.Warn().Str("bucket", name).Msg("Ignoring keywords for unknown category bucket")
			}
		}
	}
	if len(c.Classifier.Titles) > 0 {
		cfg.Titles = make(map[catalog.BucketID]string)
		for name, title := range c.Classifier.Titles {
			if id, ok := catalog.ParseBucketID(name); ok {
				cfg.Titles[id] = title
			}
		}
	}
	return cfg
}

// FeedClientConfig converts the rate limit section to feed client config
func (c *Config) FeedClientConfig() httpclient.Config {
	return httpclient.Config{
		RequestsPerSecond: c.RateLimit.FeedRequestsPerSecond,
		Burst:             1,
		Timeout:           c.RateLimit.FeedTimeout,
		MaxBodyBytes:      c.RateLimit.FeedMaxBodyBytes,
	}
}

// PostgresConfig returns the remote postgres pool configuration
func (c *Config) PostgresConfig() database.PostgresConfig {
	return database.PostgresConfig{
		URL:         c.Remote.DatabaseURL,
		MaxConns:    c.Remote.MaxConns,
		MinConns:    c.Remote.MinConns,
		MaxLifetime: c.Remote.MaxLifetime,
		MaxIdleTime: c.Remote.MaxIdleTime,
	}
}

// RedisConfig returns the remote redis configuration
func (c *Config) RedisConfig() database.RedisConfig {
	return database.RedisConfig{URL: c.Remote.RedisURL, PoolSize: c.Remote.PoolSize}
}

// CheckoutServiceConfig returns the checkout service configuration
func (c *Config) CheckoutServiceConfig() checkout.Config {
	return checkout.Config{
		Currency:   c.Checkout.Currency,
		SuccessURL: c.Checkout.SuccessURL,
		CancelURL:  c.Checkout.CancelURL,
	}
}
