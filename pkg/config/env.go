package config

const (
	EnvPrefix = "SEALCARD"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv      = "SEALCARD_APP_ENV"
	EnvPort        = "SEALCARD_APP_PORT"
	EnvLogLevel    = "SEALCARD_LOG_LEVEL"
	EnvServiceKind = "SEALCARD_SERVICE_KIND"

	EnvDBDSN  = "SEALCARD_DB_DSN"
	EnvDBHost = "SEALCARD_DB_HOST"
	EnvDBUser = "SEALCARD_DB_USER"
	EnvDBName = "SEALCARD_DB_NAME"

	EnvRedisURL = "SEALCARD_REDIS_URL"

	EnvJWTSecret              = "SEALCARD_JWT_SECRET"
	EnvJWTIssuer              = "SEALCARD_JWT_ISSUER"
	EnvJWTExpMins             = "SEALCARD_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "SEALCARD_REFRESH_TOKEN_TTL_MINUTES"

	EnvGCPProjectID = "SEALCARD_GCP_PROJECT_ID"

	EnvPubSubLoyaltyTopic          = "SEALCARD_PUBSUB_LOYALTY_TOPIC"
	EnvPubSubAnalyticsSubscription = "SEALCARD_PUBSUB_ANALYTICS_SUBSCRIPTION"

	EnvLedgerMaxCASRetries = "SEALCARD_LEDGER_MAX_CAS_RETRIES"
	EnvLedgerCodeAttempts  = "SEALCARD_LEDGER_CODE_ATTEMPTS"
	EnvLedgerCodeLength    = "SEALCARD_LEDGER_CODE_LENGTH"
	EnvOutboxBatchSize     = "SEALCARD_OUTBOX_PUBLISH_BATCH_SIZE"
	EnvOutboxMaxAttempts   = "SEALCARD_OUTBOX_MAX_ATTEMPTS"
	EnvQRCodeBaseURL       = "SEALCARD_QRCODE_BASE_URL"
)
