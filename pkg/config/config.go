package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	CSRF      CSRFConfig
	Checkout  CheckoutConfig
	Stripe    StripeConfig
	GCP       GCPConfig
	GCS       GCSConfig
	PubSub    PubSubConfig
	Outbox    OutboxConfig
	Cron      CronConfig
	Flags     FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN string `envconfig:"STOREFRONT_DB_DSN"`

	Host     string `envconfig:"STOREFRONT_DB_HOST"`
	Port     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	User     string `envconfig:"STOREFRONT_DB_USER"`
	Password string `envconfig:"STOREFRONT_DB_PASSWORD"`
	Name     string `envconfig:"STOREFRONT_DB_NAME"`
	SSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"STOREFRONT_DB_SLOW_QUERY" default:"250ms"`
	TxRetries       int           `envconfig:"STOREFRONT_DB_TX_RETRIES" default:"2"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// JWTConfig describes how bearer credentials issued by the identity service are verified.
type JWTConfig struct {
	Secret          string        `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer          string        `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
	RequireSessions bool          `envconfig:"STOREFRONT_JWT_REQUIRE_SESSIONS" default:"false"`
	Leeway          time.Duration `envconfig:"STOREFRONT_JWT_LEEWAY" default:"30s"`
}

type RateLimitConfig struct {
	CheckoutWindow time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutLimit  int           `envconfig:"STOREFRONT_RATE_LIMIT_CHECKOUT_LIMIT" default:"10"`
	DownloadWindow time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_DOWNLOAD_WINDOW" default:"1m"`
	DownloadLimit  int           `envconfig:"STOREFRONT_RATE_LIMIT_DOWNLOAD_LIMIT" default:"60"`
}

type CSRFConfig struct {
	AllowedOrigins []string `envconfig:"STOREFRONT_CSRF_ALLOWED_ORIGINS"`
}

// CheckoutConfig carries the storefront URLs the payment session redirects back to.
type CheckoutConfig struct {
	SuccessURL string `envconfig:"STOREFRONT_CHECKOUT_SUCCESS_URL" required:"true"`
	CancelURL  string `envconfig:"STOREFRONT_CHECKOUT_CANCEL_URL" required:"true"`

	IdempotencyTTL time.Duration `envconfig:"STOREFRONT_CHECKOUT_IDEMPOTENCY_TTL" default:"24h"`
}

func (c CheckoutConfig) validate() error {
	for name, raw := range map[string]string{EnvCheckoutSuccessURL: c.SuccessURL, EnvCheckoutCancelURL: c.CancelURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute url", name)
		}
	}
	return nil
}

type StripeConfig struct {
	APIKey           string        `envconfig:"STOREFRONT_STRIPE_API_KEY" required:"true"`
	WebhookSecret    string        `envconfig:"STOREFRONT_STRIPE_WEBHOOK_SECRET" required:"true"`
	Env              string        `envconfig:"STOREFRONT_STRIPE_ENV" default:"test"`
	Timeout          time.Duration `envconfig:"STOREFRONT_STRIPE_TIMEOUT" default:"10s"`
	BreakerFailures  uint32        `envconfig:"STOREFRONT_STRIPE_BREAKER_FAILURES" default:"5"`
	BreakerCooldown  time.Duration `envconfig:"STOREFRONT_STRIPE_BREAKER_COOLDOWN" default:"30s"`
	WebhookDedupeTTL time.Duration `envconfig:"STOREFRONT_STRIPE_WEBHOOK_DEDUPE_TTL" default:"72h"`
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
	ProjectID              string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"STOREFRONT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"STOREFRONT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName string        `envconfig:"STOREFRONT_GCS_BUCKET_NAME" required:"true"`
	Timeout    time.Duration `envconfig:"STOREFRONT_GCS_TIMEOUT" default:"60s"`
}

type PubSubConfig struct {
	OrderEventsTopic string `envconfig:"STOREFRONT_PUBSUB_ORDER_EVENTS_TOPIC" default:"storefront-order-events"`
	// CreateTopics creates missing topics at startup; meant for the emulator.
	CreateTopics bool `envconfig:"STOREFRONT_PUBSUB_CREATE_TOPICS" default:"false"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"STOREFRONT_OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval   time.Duration `envconfig:"STOREFRONT_OUTBOX_POLL_INTERVAL" default:"1s"`
	MaxAttempts    int           `envconfig:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
	PublishTimeout time.Duration `envconfig:"STOREFRONT_OUTBOX_PUBLISH_TIMEOUT" default:"15s"`
	MetricsAddr    string        `envconfig:"STOREFRONT_OUTBOX_METRICS_ADDR" default:":9103"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"STOREFRONT_CRON_INTERVAL" default:"15m"`
	PendingOrderTTL time.Duration `envconfig:"STOREFRONT_PENDING_ORDER_TTL" default:"48h"`
	OutboxRetention time.Duration `envconfig:"STOREFRONT_OUTBOX_RETENTION" default:"720h"`
	JobTimeout      time.Duration `envconfig:"STOREFRONT_CRON_JOB_TIMEOUT" default:"5m"`
	LockTTL         time.Duration `envconfig:"STOREFRONT_CRON_LOCK_TTL" default:"10m"`
	MetricsAddr     string        `envconfig:"STOREFRONT_CRON_METRICS_ADDR" default:":9102"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
