package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	Ledger        LedgerConfig
	Drafts        DraftsConfig
	QRCode        QRCodeConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

// Load reads the environment and reports every invalid setting at once.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	return multierr.Combine(
		c.DB.resolveDSN(),
		c.JWT.validate(),
		c.Ledger.validate(),
		c.Outbox.validate(),
	)
}

type AppConfig struct {
	Env          string   `envconfig:"SEALCARD_APP_ENV" required:"true"`
	Port         string   `envconfig:"SEALCARD_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"SEALCARD_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"SEALCARD_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"SEALCARD_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SEALCARD_SERVICE_KIND" default:"api"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SEALCARD_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SEALCARD_REDIS_ADDR"`
	Password     string        `envconfig:"SEALCARD_REDIS_PASSWORD"`
	DB           int           `envconfig:"SEALCARD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SEALCARD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SEALCARD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SEALCARD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SEALCARD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SEALCARD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SEALCARD_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SEALCARD_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"SEALCARD_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"SEALCARD_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL is zero when unset or negative.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(max(j.RefreshTokenTTLMinutes, 0)) * time.Minute
}

func (j JWTConfig) validate() error {
	if j.ExpirationMinutes < 1 {
		return fmt.Errorf("%s must be at least 1", EnvJWTExpMins)
	}
	if j.RefreshTokenTTLMinutes <= j.ExpirationMinutes {
		return fmt.Errorf("%s must exceed %s", EnvRefreshTokenTTLMinutes, EnvJWTExpMins)
	}
	return nil
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SEALCARD_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SEALCARD_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SEALCARD_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SEALCARD_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SEALCARD_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"SEALCARD_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"SEALCARD_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"SEALCARD_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"SEALCARD_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"SEALCARD_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"SEALCARD_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	PublicWindow       time.Duration `envconfig:"SEALCARD_RATE_LIMIT_PUBLIC_WINDOW" default:"1m"`
	PublicIPLimit      int           `envconfig:"SEALCARD_RATE_LIMIT_PUBLIC_IP_LIMIT" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SEALCARD_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SEALCARD_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"SEALCARD_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

// LedgerConfig bounds the retry loops on the seal ledger write path.
type LedgerConfig struct {
	MaxCASRetries int `envconfig:"SEALCARD_LEDGER_MAX_CAS_RETRIES" default:"3"`
	CodeAttempts  int `envconfig:"SEALCARD_LEDGER_CODE_ATTEMPTS" default:"5"`
	CodeLength    int `envconfig:"SEALCARD_LEDGER_CODE_LENGTH" default:"8"`
}

func (l LedgerConfig) validate() error {
	return multierr.Combine(
		atLeast(EnvLedgerMaxCASRetries, l.MaxCASRetries, 1),
		atLeast(EnvLedgerCodeAttempts, l.CodeAttempts, 1),
		atLeast(EnvLedgerCodeLength, l.CodeLength, 4),
	)
}

type DraftsConfig struct {
	TTL time.Duration `envconfig:"SEALCARD_DRAFTS_TTL" default:"720h"`
}

type QRCodeConfig struct {
	BaseURL           string        `envconfig:"SEALCARD_QRCODE_BASE_URL" default:"https://api.qrserver.com/v1/create-qr-code/"`
	Size              int           `envconfig:"SEALCARD_QRCODE_SIZE" default:"300"`
	PublicCardBaseURL string        `envconfig:"SEALCARD_PUBLIC_CARD_BASE_URL" default:"http://localhost:3000/c"`
	Timeout           time.Duration `envconfig:"SEALCARD_QRCODE_TIMEOUT" default:"3s"`
	Verify            bool          `envconfig:"SEALCARD_QRCODE_VERIFY" default:"true"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SEALCARD_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"SEALCARD_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SEALCARD_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	LoyaltyTopic          string `envconfig:"SEALCARD_PUBSUB_LOYALTY_TOPIC" default:"sc-loyalty-events"`
	AnalyticsSubscription string `envconfig:"SEALCARD_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"sc-loyalty-analytics"`
}

type BigQueryConfig struct {
	Dataset         string `envconfig:"SEALCARD_BIGQUERY_DATASET" default:"sealcard"`
	SealEventsTable string `envconfig:"SEALCARD_BIGQUERY_SEAL_EVENTS_TABLE" default:"seal_events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SEALCARD_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SEALCARD_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SEALCARD_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (o OutboxConfig) validate() error {
	return multierr.Combine(
		atLeast(EnvOutboxBatchSize, o.BatchSize, 1),
		atLeast(EnvOutboxMaxAttempts, o.MaxAttempts, 1),
	)
}

type CronConfig struct {
	Interval          time.Duration `envconfig:"SEALCARD_CRON_INTERVAL" default:"24h"`
	OutboxRetention   time.Duration `envconfig:"SEALCARD_CRON_OUTBOX_RETENTION" default:"720h"`
	ReconcileLookback time.Duration `envconfig:"SEALCARD_CRON_RECONCILE_LOOKBACK" default:"48h"`
	ReconcileRepair   bool          `envconfig:"SEALCARD_CRON_RECONCILE_REPAIR" default:"false"`
	ReconcileBatch    int           `envconfig:"SEALCARD_CRON_RECONCILE_BATCH" default:"500"`
	Jobs              []string      `envconfig:"SEALCARD_CRON_JOBS"`
}

func atLeast(name string, value, floor int) error {
	if value < floor {
		return fmt.Errorf("%s must be at least %d, got %d", name, floor, value)
	}
	return nil
}
