package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
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
	CORS          CORSConfig
	Stripe        StripeConfig
	Square        SquareConfig
	Billing       BillingConfig
	Webhooks      WebhooksConfig
	Cron          CronConfig
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
	Env          string `envconfig:"KINFORTUNE_APP_ENV" required:"true"`
	Port         string `envconfig:"KINFORTUNE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"KINFORTUNE_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"KINFORTUNE_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"KINFORTUNE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"KINFORTUNE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"KINFORTUNE_DB_DSN"`
	Driver string `envconfig:"KINFORTUNE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KINFORTUNE_DB_HOST"`
	LegacyPort     int    `envconfig:"KINFORTUNE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KINFORTUNE_DB_USER"`
	LegacyPassword string `envconfig:"KINFORTUNE_DB_PASSWORD"`
	LegacyName     string `envconfig:"KINFORTUNE_DB_NAME"`
	LegacySSLMode  string `envconfig:"KINFORTUNE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KINFORTUNE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KINFORTUNE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KINFORTUNE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KINFORTUNE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KINFORTUNE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"KINFORTUNE_REDIS_ADDR"`
	Password     string        `envconfig:"KINFORTUNE_REDIS_PASSWORD"`
	DB           int           `envconfig:"KINFORTUNE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KINFORTUNE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KINFORTUNE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KINFORTUNE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KINFORTUNE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KINFORTUNE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"KINFORTUNE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"KINFORTUNE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"KINFORTUNE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"KINFORTUNE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"KINFORTUNE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"KINFORTUNE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"KINFORTUNE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"KINFORTUNE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"KINFORTUNE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"KINFORTUNE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"KINFORTUNE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"KINFORTUNE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"KINFORTUNE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"KINFORTUNE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"KINFORTUNE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"KINFORTUNE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"KINFORTUNE_AUTO_MIGRATE" default:"false"`
	// WebhookSimulator exposes /api/webhooks/test outside production.
	WebhookSimulator bool `envconfig:"KINFORTUNE_FEATURE_WEBHOOK_SIMULATOR" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"KINFORTUNE_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type StripeConfig struct {
	SecretKey      string `envconfig:"KINFORTUNE_STRIPE_SECRET_KEY"`
	PublishableKey string `envconfig:"KINFORTUNE_STRIPE_PUBLISHABLE_KEY"`
	WebhookSecret  string `envconfig:"KINFORTUNE_STRIPE_WEBHOOK_SECRET"`
	Env            string `envconfig:"KINFORTUNE_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SquareConfig struct {
	AccessToken            string `envconfig:"KINFORTUNE_SQUARE_ACCESS_TOKEN"`
	Env                    string `envconfig:"KINFORTUNE_SQUARE_ENV" default:"sandbox"`
	WebhookSignatureKey    string `envconfig:"KINFORTUNE_SQUARE_WEBHOOK_SIGNATURE_KEY"`
	WebhookNotificationURL string `envconfig:"KINFORTUNE_SQUARE_WEBHOOK_NOTIFICATION_URL"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type BillingConfig struct {
	TrialDays     int64  `envconfig:"KINFORTUNE_BILLING_TRIAL_DAYS" default:"7"`
	DefaultOrigin string `envconfig:"KINFORTUNE_BILLING_DEFAULT_ORIGIN" default:"http://localhost:3000"`
	DefaultPlan   string `envconfig:"KINFORTUNE_BILLING_DEFAULT_PLAN" default:"BASIC"`
	Currency      string `envconfig:"KINFORTUNE_BILLING_CURRENCY" default:"jpy"`
	// IdempotencyTTL bounds how long Idempotency-Key responses are replayed.
	IdempotencyTTL time.Duration `envconfig:"KINFORTUNE_BILLING_IDEMPOTENCY_TTL" default:"24h"`
}

type WebhooksConfig struct {
	IdempotencyTTL time.Duration `envconfig:"KINFORTUNE_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
	// SkipSignatureInDev disables webhook signature checks for both providers when the app env is not production.
	SkipSignatureInDev bool `envconfig:"KINFORTUNE_WEBHOOK_SKIP_SIGNATURE_IN_DEV" default:"false"`
}

type CronConfig struct {
	Interval       time.Duration `envconfig:"KINFORTUNE_CRON_INTERVAL" default:"24h"`
	ReconcileLimit int           `envconfig:"KINFORTUNE_CRON_RECONCILE_LIMIT" default:"250"`
	// StripeRPS caps outbound Stripe calls made by the reconcile job.
	StripeRPS float64 `envconfig:"KINFORTUNE_CRON_STRIPE_RPS" default:"5"`
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
