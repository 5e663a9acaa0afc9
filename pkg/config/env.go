package config

const (
	EnvPrefix = "HEROVAULT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "HEROVAULT_APP_ENV"
	EnvPort     = "HEROVAULT_APP_PORT"
	EnvLogLevel = "HEROVAULT_LOG_LEVEL"

	EnvDBDSN  = "HEROVAULT_DB_DSN"
	EnvDBHost = "HEROVAULT_DB_HOST"
	EnvDBUser = "HEROVAULT_DB_USER"
	EnvDBName = "HEROVAULT_DB_NAME"

	EnvRedisURL = "HEROVAULT_REDIS_URL"

	EnvJWTSecret  = "HEROVAULT_JWT_SECRET"
	EnvJWTIssuer  = "HEROVAULT_JWT_ISSUER"
	EnvJWTExpMins = "HEROVAULT_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite = "HEROVAULT_USE_SQLITE"

	EnvUOWMaxAttempts     = "HEROVAULT_UOW_MAX_ATTEMPTS"
	EnvUOWRetryBaseDelay  = "HEROVAULT_UOW_RETRY_BASE_DELAY"
	EnvUOWRetryMaxDelay   = "HEROVAULT_UOW_RETRY_MAX_DELAY"
	EnvStartingCredits    = "HEROVAULT_STARTING_CREDITS"
	EnvRetireLockTTL      = "HEROVAULT_RETIRE_LOCK_TTL"
	EnvFeaturedWindowDays = "HEROVAULT_FEATURED_WINDOW_DAYS"

	EnvPubSubEconomyTopic = "HEROVAULT_PUBSUB_ECONOMY_TOPIC"

	EnvOutboxBatchSize   = "HEROVAULT_OUTBOX_PUBLISH_BATCH_SIZE"
	EnvOutboxMaxAttempts = "HEROVAULT_OUTBOX_MAX_ATTEMPTS"

	EnvCronInterval    = "HEROVAULT_CRON_INTERVAL"
	EnvCronLockTTL     = "HEROVAULT_CRON_LOCK_TTL"
	EnvOutboxRetention = "HEROVAULT_OUTBOX_RETENTION"

	EnvRateLimitWindow    = "HEROVAULT_RATE_LIMIT_WINDOW"
	EnvRateLimitMutations = "HEROVAULT_RATE_LIMIT_MUTATIONS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
