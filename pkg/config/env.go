package config

const EnvPrefix = "KINFORTUNE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv      = "KINFORTUNE_APP_ENV"
	EnvPort        = "KINFORTUNE_APP_PORT"
	EnvLogLevel    = "KINFORTUNE_LOG_LEVEL"
	EnvLogFormat   = "KINFORTUNE_LOG_FORMAT"
	EnvServiceKind = "KINFORTUNE_SERVICE_KIND"

	EnvDBDSN      = "KINFORTUNE_DB_DSN"
	EnvDBHost     = "KINFORTUNE_DB_HOST"
	EnvDBUser     = "KINFORTUNE_DB_USER"
	EnvDBPassword = "KINFORTUNE_DB_PASSWORD"
	EnvDBName     = "KINFORTUNE_DB_NAME"

	EnvRedisURL = "KINFORTUNE_REDIS_URL"

	EnvJWTSecret               = "KINFORTUNE_JWT_SECRET"
	EnvJWTIssuer               = "KINFORTUNE_JWT_ISSUER"
	EnvJWTExpMins              = "KINFORTUNE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes  = "KINFORTUNE_REFRESH_TOKEN_TTL_MINUTES"
	EnvStripeSecretKey         = "KINFORTUNE_STRIPE_SECRET_KEY"
	EnvStripePublishableKey    = "KINFORTUNE_STRIPE_PUBLISHABLE_KEY"
	EnvStripeWebhookSecret     = "KINFORTUNE_STRIPE_WEBHOOK_SECRET"
	EnvSquareAccessToken       = "KINFORTUNE_SQUARE_ACCESS_TOKEN"
	EnvSquareWebhookSigningKey = "KINFORTUNE_SQUARE_WEBHOOK_SIGNATURE_KEY"
	EnvBillingTrialDays        = "KINFORTUNE_BILLING_TRIAL_DAYS"
	EnvBillingDefaultOrigin    = "KINFORTUNE_BILLING_DEFAULT_ORIGIN"
)

// legacyDBEnvVars must all be set when no DSN is provided.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
