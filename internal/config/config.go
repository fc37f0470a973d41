package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Storage backend names.
const (
	BackendSQL       = "sql"
	BackendMemory    = "memory"
	BackendMetafield = "metafield"
	BackendRedis     = "redis"
	BackendMongo     = "mongo"
	BackendNone      = "none"
)

type Config struct {
	App      AppConfig
	Shopify  ShopifyConfig
	DB       DBConfig
	Redis    RedisConfig
	Mongo    MongoConfig
	Storage  StorageConfig
	Billing  BillingConfig
	Security SecurityConfig
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env       string `envconfig:"APP_ENV" default:"dev"`
	Port      string `envconfig:"PORT" default:"3000"`
	Host      string `envconfig:"HOST" required:"true"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// BaseURL is the public app URL without a trailing slash.
func (a AppConfig) BaseURL() string {
	return strings.TrimRight(a.Host, "/")
}

type ShopifyConfig struct {
	APIKey       string   `envconfig:"SHOPIFY_API_KEY" required:"true"`
	APISecret    string   `envconfig:"SHOPIFY_API_SECRET" required:"true"`
	Scopes       []string `envconfig:"SHOPIFY_SCOPES" default:"write_script_tags,read_script_tags"`
	APIVersion   string   `envconfig:"SHOPIFY_API_VERSION" default:"2024-10"`
	OnlineTokens bool     `envconfig:"SHOPIFY_ONLINE_TOKENS" default:"false"`
	UseScriptTag bool     `envconfig:"SHOPIFY_USE_SCRIPTTAG" default:"true"`
	Retries      int      `envconfig:"SHOPIFY_RETRIES" default:"3"`
}

type DBConfig struct {
	Driver      string `envconfig:"DB_DRIVER" default:"postgres"`
	DSN         string `envconfig:"DATABASE_URL"`
	AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"false"`

	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL string `envconfig:"REDIS_URL"`
}

type MongoConfig struct {
	URI      string `envconfig:"MONGODB_URI"`
	Database string `envconfig:"MONGODB_DATABASE" default:"free_shipping_bar"`
}

type StorageConfig struct {
	Settings   string        `envconfig:"SETTINGS_BACKEND" default:"sql"`
	Sessions   string        `envconfig:"SESSION_BACKEND" default:"sql"`
	OAuthState string        `envconfig:"STATE_BACKEND" default:"memory"`
	WebhookLog string        `envconfig:"WEBHOOK_LOG_BACKEND" default:"none"`
	StateTTL   time.Duration `envconfig:"OAUTH_STATE_TTL" default:"10m"`
}

type BillingConfig struct {
	Required  bool   `envconfig:"BILLING_REQUIRED" default:"false"`
	PlanName  string `envconfig:"BILLING_PLAN_NAME" default:"Free Delivery Bar"`
	Price     string `envconfig:"BILLING_PRICE" default:"4.99"`
	TrialDays int    `envconfig:"BILLING_TRIAL_DAYS" default:"7"`
}

// PriceDecimal parses the configured plan price.
func (b BillingConfig) PriceDecimal() (decimal.Decimal, error) {
	price, err := decimal.NewFromString(b.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid BILLING_PRICE %q: %w", b.Price, err)
	}
	return price, nil
}

type SecurityConfig struct {
	EncryptionKey  string   `envconfig:"ENCRYPTION_KEY" required:"true"`
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"https://admin.shopify.com"`
}

func (c *Config) validate() error {
	switch c.Storage.Settings {
	case BackendSQL, BackendMemory, BackendMetafield:
	default:
		return fmt.Errorf("unknown SETTINGS_BACKEND %q", c.Storage.Settings)
	}
	switch c.Storage.Sessions {
	case BackendSQL, BackendMemory:
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.Storage.Sessions)
	}
	switch c.Storage.OAuthState {
	case BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unknown STATE_BACKEND %q", c.Storage.OAuthState)
	}
	switch c.Storage.WebhookLog {
	case BackendMongo, BackendSQL, BackendNone:
	default:
		return fmt.Errorf("unknown WEBHOOK_LOG_BACKEND %q", c.Storage.WebhookLog)
	}
	if c.NeedsSQL() && c.DB.DSN == "" {
		return fmt.Errorf("DATABASE_URL is required for the sql backends")
	}
	if c.Storage.OAuthState == BackendRedis && c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required when STATE_BACKEND=redis")
	}
	if c.Storage.WebhookLog == BackendMongo && c.Mongo.URI == "" {
		return fmt.Errorf("MONGODB_URI is required when WEBHOOK_LOG_BACKEND=mongo")
	}
	if _, err := c.Billing.PriceDecimal(); err != nil {
		return err
	}
	return nil
}

// NeedsSQL reports whether any configured backend uses the relational database.
// Shops and subscriptions always live there when it is configured.
func (c *Config) NeedsSQL() bool {
	return c.Storage.Settings == BackendSQL ||
		c.Storage.Sessions == BackendSQL ||
		c.Storage.WebhookLog == BackendSQL
}
