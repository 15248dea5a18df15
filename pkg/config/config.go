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
	RateLimit     RateLimitConfig
	Payment       PaymentConfig
	CORS          CORSConfig
	FeatureFlags  FeatureFlagsConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
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
	if err := cfg.Payment.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"APP_ENV" required:"true"`
	Port         string `envconfig:"PORT" default:"8080"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"DB_DSN"`

	LegacyHost     string `envconfig:"DB_HOST"`
	LegacyPort     int    `envconfig:"DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DB_USER"`
	LegacyPassword string `envconfig:"DB_PASSWORD"`
	LegacyName     string `envconfig:"DB_NAME"`
	LegacySSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"REDIS_URL"`
	Address      string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"REDIS_PASSWORD"`
	DB           int           `envconfig:"REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"JWT_ISSUER" default:"parcelhub"`
	ExpirationMinutes      int    `envconfig:"JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// RateLimitConfig drives the in-process per-IP limiter on public endpoints.
type RateLimitConfig struct {
	PublicRPS   float64 `envconfig:"RATE_LIMIT_PUBLIC_RPS" default:"5"`
	PublicBurst int     `envconfig:"RATE_LIMIT_PUBLIC_BURST" default:"10"`
}

type PaymentConfig struct {
	GatewaySecret     string        `envconfig:"PAYMENT_GATEWAY_SECRET" required:"true"`
	GatewayBaseURL    string        `envconfig:"PAYMENT_GATEWAY_BASE_URL" default:"http://localhost:8080"`
	ExpirationMinutes int           `envconfig:"PAYMENT_EXPIRATION_MINUTES" default:"15"`
	Currency          string        `envconfig:"PAYMENT_CURRENCY" default:"VND"`
	MockEnabled       bool          `envconfig:"PAYMENT_MOCK_ENABLED" default:"false"`
	WebhookReplayTTL  time.Duration `envconfig:"PAYMENT_WEBHOOK_REPLAY_TTL" default:"24h"`
}

// Expiration returns how long a pending transaction stays usable.
func (p PaymentConfig) Expiration() time.Duration {
	return time.Duration(p.ExpirationMinutes) * time.Minute
}

func (p PaymentConfig) validate() error {
	if p.ExpirationMinutes <= 0 {
		return fmt.Errorf("%s must be positive", EnvPaymentTTL)
	}
	if _, err := url.Parse(p.GatewayBaseURL); err != nil {
		return fmt.Errorf("invalid %s: %w", EnvGatewayURL, err)
	}
	return nil
}

type CORSConfig struct {
	Origin string `envconfig:"CORS_ORIGIN" default:"*"`
}

// AllowedOrigins splits the comma separated origin list.
func (c CORSConfig) AllowedOrigins() []string {
	var out []string
	for _, origin := range strings.Split(c.Origin, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"AUTO_MIGRATE" default:"false"`
}

type PubSubConfig struct {
	ProjectID                 string `envconfig:"PUBSUB_PROJECT_ID"`
	OrdersTopic               string `envconfig:"PUBSUB_ORDERS_TOPIC" default:"parcelhub-order-events"`
	NotificationsSubscription string `envconfig:"PUBSUB_NOTIFICATIONS_SUBSCRIPTION" default:"parcelhub-order-notifications"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"OUTBOX_RETENTION" default:"720h"`
}

type CronConfig struct {
	Interval    time.Duration `envconfig:"CRON_INTERVAL" default:"1m"`
	LockTTL     time.Duration `envconfig:"CRON_LOCK_TTL" default:"5m"`
	ExpiryBatch int           `envconfig:"CRON_PAYMENT_EXPIRY_BATCH" default:"200"`
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
