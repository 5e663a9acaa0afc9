package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Economy      EconomyConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express and reports all of them at once.
func (c *Config) Validate() error {
	var err error
	err = multierr.Append(err, c.Economy.validate())
	err = multierr.Append(err, c.Outbox.validate())
	err = multierr.Append(err, c.Cron.validate())
	err = multierr.Append(err, c.RateLimit.validate())
	if c.JWT.ExpirationMinutes <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvJWTExpMins))
	}
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"HEROVAULT_APP_ENV" required:"true"`
	Port         string `envconfig:"HEROVAULT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"HEROVAULT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"HEROVAULT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"HEROVAULT_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"HEROVAULT_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"HEROVAULT_DB_DSN"`
	Driver string `envconfig:"HEROVAULT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HEROVAULT_DB_HOST"`
	LegacyPort     int    `envconfig:"HEROVAULT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HEROVAULT_DB_USER"`
	LegacyPassword string `envconfig:"HEROVAULT_DB_PASSWORD"`
	LegacyName     string `envconfig:"HEROVAULT_DB_NAME"`
	LegacySSLMode  string `envconfig:"HEROVAULT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HEROVAULT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HEROVAULT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HEROVAULT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HEROVAULT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL            string        `envconfig:"HEROVAULT_REDIS_URL" required:"true"`
	Address        string        `envconfig:"HEROVAULT_REDIS_ADDR"`
	Password       string        `envconfig:"HEROVAULT_REDIS_PASSWORD"`
	DB             int           `envconfig:"HEROVAULT_REDIS_DB" default:"0"`
	PoolSize       int           `envconfig:"HEROVAULT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns   int           `envconfig:"HEROVAULT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout    time.Duration `envconfig:"HEROVAULT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout    time.Duration `envconfig:"HEROVAULT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout   time.Duration `envconfig:"HEROVAULT_REDIS_WRITE_TIMEOUT" default:"5s"`
	IdempotencyTTL time.Duration `envconfig:"HEROVAULT_IDEMPOTENCY_TTL" default:"24h"`
}

// JWTConfig only covers verification; tokens are minted by the identity service.
type JWTConfig struct {
	Secret            string `envconfig:"HEROVAULT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"HEROVAULT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"HEROVAULT_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"HEROVAULT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"HEROVAULT_AUTO_MIGRATE" default:"false"`
}

// EconomyConfig tunes the unit-of-work retry budget and reward generation.
type EconomyConfig struct {
	UOWMaxAttempts     int           `envconfig:"HEROVAULT_UOW_MAX_ATTEMPTS" default:"5"`
	UOWRetryBaseDelay  time.Duration `envconfig:"HEROVAULT_UOW_RETRY_BASE_DELAY" default:"5ms"`
	UOWRetryMaxDelay   time.Duration `envconfig:"HEROVAULT_UOW_RETRY_MAX_DELAY" default:"200ms"`
	RewardSeed         int64         `envconfig:"HEROVAULT_REWARD_SEED" default:"0"`
	StartingCredits    string        `envconfig:"HEROVAULT_STARTING_CREDITS" default:"0"`
	RetireLockTTL      time.Duration `envconfig:"HEROVAULT_RETIRE_LOCK_TTL" default:"10m"`
	FeaturedWindowDays int           `envconfig:"HEROVAULT_FEATURED_WINDOW_DAYS" default:"30"`
}

func (e EconomyConfig) validate() error {
	var err error
	if e.UOWMaxAttempts < 1 {
		err = multierr.Append(err, fmt.Errorf("%s must be at least 1", EnvUOWMaxAttempts))
	}
	if e.UOWRetryBaseDelay < 0 || e.UOWRetryMaxDelay < e.UOWRetryBaseDelay {
		err = multierr.Append(err, fmt.Errorf("%s must be between 0 and %s", EnvUOWRetryBaseDelay, EnvUOWRetryMaxDelay))
	}
	if e.RetireLockTTL <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvRetireLockTTL))
	}
	if e.FeaturedWindowDays < 1 {
		err = multierr.Append(err, fmt.Errorf("%s must be at least 1", EnvFeaturedWindowDays))
	}
	if credits, parseErr := e.StartingCreditsAmount(); parseErr != nil || credits.IsNegative() {
		err = multierr.Append(err, fmt.Errorf("%s must be a non-negative amount", EnvStartingCredits))
	}
	return err
}

// StartingCreditsAmount parses the balance granted on account provisioning.
func (e EconomyConfig) StartingCreditsAmount() (decimal.Decimal, error) {
	raw := strings.TrimSpace(e.StartingCredits)
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

// FeaturedWindow is how far back a definition counts as featured.
func (e EconomyConfig) FeaturedWindow() time.Duration {
	return time.Duration(e.FeaturedWindowDays) * 24 * time.Hour
}

type GCPConfig struct {
	ProjectID              string `envconfig:"HEROVAULT_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"HEROVAULT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"HEROVAULT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	EconomyTopic        string `envconfig:"HEROVAULT_PUBSUB_ECONOMY_TOPIC" default:"hv-economy-events"`
	EconomySubscription string `envconfig:"HEROVAULT_PUBSUB_ECONOMY_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"HEROVAULT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"HEROVAULT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"HEROVAULT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (o OutboxConfig) validate() error {
	var err error
	if o.BatchSize < 1 {
		err = multierr.Append(err, fmt.Errorf("%s must be at least 1", EnvOutboxBatchSize))
	}
	if o.MaxAttempts < 1 {
		err = multierr.Append(err, fmt.Errorf("%s must be at least 1", EnvOutboxMaxAttempts))
	}
	return err
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"HEROVAULT_CRON_INTERVAL" default:"1h"`
	LockTTL         time.Duration `envconfig:"HEROVAULT_CRON_LOCK_TTL" default:"50m"`
	OutboxRetention time.Duration `envconfig:"HEROVAULT_OUTBOX_RETENTION" default:"720h"`
}

func (c CronConfig) validate() error {
	var err error
	if c.Interval <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvCronInterval))
	}
	if c.LockTTL <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvCronLockTTL))
	}
	if c.OutboxRetention <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvOutboxRetention))
	}
	return err
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = "file:herovault.db?cache=shared"
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

// RateLimitConfig throttles economy mutations per account. A zero limit disables it.
type RateLimitConfig struct {
	Window        time.Duration `envconfig:"HEROVAULT_RATE_LIMIT_WINDOW" default:"1m"`
	MutationLimit int           `envconfig:"HEROVAULT_RATE_LIMIT_MUTATIONS" default:"120"`
}

func (r RateLimitConfig) validate() error {
	var err error
	if r.Window <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvRateLimitWindow))
	}
	if r.MutationLimit < 0 {
		err = multierr.Append(err, fmt.Errorf("%s must not be negative", EnvRateLimitMutations))
	}
	return err
}
