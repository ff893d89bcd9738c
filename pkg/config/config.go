// Package config loads all service configuration from CROSSCART_-prefixed
// environment variables. The api, migrate, and outbox-publisher binaries
// share one Config so a single env file drives all three.
package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "CROSSCART_DB_DSN"
	EnvDBHost = "CROSSCART_DB_HOST"
	EnvDBUser = "CROSSCART_DB_USER"
	EnvDBName = "CROSSCART_DB_NAME"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Checkout     CheckoutConfig
	RateLimit    RateLimitConfig
	Placement    PlacementConfig
	Retailers    RetailersConfig
	Automation   AutomationConfig
	Stripe       StripeConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CROSSCART_APP_ENV" required:"true"`
	Port         string `envconfig:"CROSSCART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CROSSCART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CROSSCART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CROSSCART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CROSSCART_DB_DSN"`
	Driver string `envconfig:"CROSSCART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CROSSCART_DB_HOST"`
	LegacyPort     int    `envconfig:"CROSSCART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CROSSCART_DB_USER"`
	LegacyPassword string `envconfig:"CROSSCART_DB_PASSWORD"`
	LegacyName     string `envconfig:"CROSSCART_DB_NAME"`
	LegacySSLMode  string `envconfig:"CROSSCART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CROSSCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CROSSCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CROSSCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CROSSCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CROSSCART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CROSSCART_REDIS_ADDR"`
	Password     string        `envconfig:"CROSSCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"CROSSCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CROSSCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CROSSCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CROSSCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CROSSCART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CROSSCART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CROSSCART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CROSSCART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CROSSCART_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CROSSCART_AUTO_MIGRATE" default:"false"`
}

type CheckoutConfig struct {
	SessionTTL         time.Duration `envconfig:"CROSSCART_CHECKOUT_SESSION_TTL" default:"30m"`
	TaxRate            string        `envconfig:"CROSSCART_CHECKOUT_TAX_RATE" default:"0"`
	ShippingFlatCents  int           `envconfig:"CROSSCART_CHECKOUT_SHIPPING_FLAT_CENTS" default:"0"`
	OrderNumberPrefix  string        `envconfig:"CROSSCART_ORDER_NUMBER_PREFIX" default:"CC"`
	SessionTokenPrefix string        `envconfig:"CROSSCART_SESSION_TOKEN_PREFIX" default:"cs"`
}

// RateLimitConfig throttles the checkout surface per authenticated user.
type RateLimitConfig struct {
	CheckoutLimit  int64         `envconfig:"CROSSCART_RATE_LIMIT_CHECKOUT" default:"30"`
	CheckoutWindow time.Duration `envconfig:"CROSSCART_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
}

// PlacementConfig carries the per-retailer placement tier assignments. Tiers
// maps retailer id to one of api|headless|manual; retailers without an entry
// fall back to DefaultTier.
type PlacementConfig struct {
	DefaultTier string            `envconfig:"CROSSCART_PLACEMENT_DEFAULT_TIER" default:"manual"`
	Tiers       map[string]string `envconfig:"CROSSCART_PLACEMENT_TIERS"`
}

// RetailersConfig points at the credential broker holding shoppers' linked
// retailer accounts.
type RetailersConfig struct {
	BrokerURL   string `envconfig:"CROSSCART_RETAILER_BROKER_URL"`
	BrokerToken string `envconfig:"CROSSCART_RETAILER_BROKER_TOKEN"`
}

// AutomationConfig points at the headless placement worker fleet.
type AutomationConfig struct {
	WorkerURL string `envconfig:"CROSSCART_AUTOMATION_WORKER_URL"`
	APIToken  string `envconfig:"CROSSCART_AUTOMATION_API_TOKEN"`
}

type StripeConfig struct {
	APIKey string `envconfig:"CROSSCART_STRIPE_API_KEY"`
	Env    string `envconfig:"CROSSCART_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CROSSCART_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"CROSSCART_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CROSSCART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"CROSSCART_PUBSUB_ORDERS_TOPIC" default:"cc-order-events"`
	OrdersSubscription string `envconfig:"CROSSCART_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CROSSCART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CROSSCART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"CROSSCART_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// ensureDSN assembles a Postgres DSN from the discrete host/user/name
// variables when no full DSN was provided.
func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	var missing []string
	for env, value := range map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
