package config

// Environment variable names read by Load.
const (
	EnvAppEnv       = "APP_ENV"
	EnvPort         = "PORT"
	EnvLogLevel     = "LOG_LEVEL"
	EnvAutoMigrate  = "AUTO_MIGRATE"
	EnvCORSOrigin   = "CORS_ORIGIN"
	EnvDBDSN        = "DB_DSN"
	EnvDBHost       = "DB_HOST"
	EnvDBPort       = "DB_PORT"
	EnvDBUser       = "DB_USER"
	EnvDBPassword   = "DB_PASSWORD"
	EnvDBName       = "DB_NAME"
	EnvDBSSLMode    = "DB_SSLMODE"
	EnvRedisURL     = "REDIS_URL"
	EnvJWTSecret    = "JWT_SECRET"
	EnvJWTIssuer    = "JWT_ISSUER"
	EnvJWTExpMins   = "JWT_EXPIRATION_MINUTES"
	EnvRefreshTTL   = "REFRESH_TOKEN_TTL_MINUTES"
	EnvGatewaySec   = "PAYMENT_GATEWAY_SECRET"
	EnvGatewayURL   = "PAYMENT_GATEWAY_BASE_URL"
	EnvPaymentTTL   = "PAYMENT_EXPIRATION_MINUTES"
	EnvPaymentMock  = "PAYMENT_MOCK_ENABLED"
	EnvPubSubProj   = "PUBSUB_PROJECT_ID"
	EnvPubSubTopic  = "PUBSUB_ORDERS_TOPIC"
	EnvServiceKind  = "SERVICE_KIND"
	EnvCronInterval = "CRON_INTERVAL"
)

// EnvPrefix is empty: the deployment exports unprefixed names.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
