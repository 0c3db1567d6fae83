package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Checkout     CheckoutConfig
	Reviews      ReviewsConfig
	RateLimit    RateLimitConfig
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
	if err := cfg.Reviews.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHOP4U_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOP4U_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SHOP4U_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOP4U_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"SHOP4U_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SHOP4U_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SHOP4U_DB_DSN"`
	Driver string `envconfig:"SHOP4U_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SHOP4U_DB_HOST"`
	LegacyPort     int    `envconfig:"SHOP4U_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHOP4U_DB_USER"`
	LegacyPassword string `envconfig:"SHOP4U_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHOP4U_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHOP4U_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOP4U_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOP4U_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOP4U_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOP4U_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOP4U_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SHOP4U_REDIS_ADDR"`
	Password     string        `envconfig:"SHOP4U_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOP4U_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOP4U_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOP4U_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOP4U_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOP4U_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOP4U_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SHOP4U_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SHOP4U_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SHOP4U_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SHOP4U_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SHOP4U_AUTO_MIGRATE" default:"false"`
}

// CheckoutConfig drives the checkout coordinator and the precomputed
// fulfillment timeline. Offsets are measured from the moment the order is
// placed.
type CheckoutConfig struct {
	ProcessingOffset time.Duration `envconfig:"SHOP4U_CHECKOUT_PROCESSING_OFFSET" default:"5m"`
	ShippedOffset    time.Duration `envconfig:"SHOP4U_CHECKOUT_SHIPPED_OFFSET" default:"15m"`
	DeliveredOffset  time.Duration `envconfig:"SHOP4U_CHECKOUT_DELIVERED_OFFSET" default:"30m"`

	IdempotencyTTL time.Duration `envconfig:"SHOP4U_CHECKOUT_IDEMPOTENCY_TTL" default:"24h"`
}

// ReviewsConfig controls the review quota. Scope "product" counts reviews per
// buyer and product; scope "order" counts per buyer, product and order.
type ReviewsConfig struct {
	QuotaScope string `envconfig:"SHOP4U_REVIEWS_QUOTA_SCOPE" default:"product"`
	QuotaLimit int    `envconfig:"SHOP4U_REVIEWS_QUOTA_LIMIT" default:"2"`
}

func (r ReviewsConfig) validate() error {
	switch r.QuotaScope {
	case ReviewQuotaScopeProduct, ReviewQuotaScopeOrder:
	default:
		return fmt.Errorf("invalid %s value %q", EnvReviewsQuotaScope, r.QuotaScope)
	}
	if r.QuotaLimit < 1 {
		return fmt.Errorf("%s must be at least 1", EnvReviewsQuotaLimit)
	}
	return nil
}

// RateLimitConfig throttles the write surfaces. A zero window disables the
// corresponding policy.
type RateLimitConfig struct {
	CheckoutWindow    time.Duration `envconfig:"SHOP4U_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutIPLimit   int           `envconfig:"SHOP4U_RATE_LIMIT_CHECKOUT_IP_LIMIT" default:"30"`
	CheckoutUserLimit int           `envconfig:"SHOP4U_RATE_LIMIT_CHECKOUT_USER_LIMIT" default:"10"`

	ReviewWindow    time.Duration `envconfig:"SHOP4U_RATE_LIMIT_REVIEW_WINDOW" default:"1m"`
	ReviewIPLimit   int           `envconfig:"SHOP4U_RATE_LIMIT_REVIEW_IP_LIMIT" default:"30"`
	ReviewUserLimit int           `envconfig:"SHOP4U_RATE_LIMIT_REVIEW_USER_LIMIT" default:"10"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SHOP4U_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"SHOP4U_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SHOP4U_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"SHOP4U_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription string `envconfig:"SHOP4U_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SHOP4U_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SHOP4U_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SHOP4U_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
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
