package config

// EnvPrefix is passed to envconfig; every field carries its full variable name.
const EnvPrefix = "FRESHCART"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "FRESHCART_APP_ENV"
	EnvPort                   = "FRESHCART_APP_PORT"
	EnvDBDSN                  = "FRESHCART_DB_DSN"
	EnvDBHost                 = "FRESHCART_DB_HOST"
	EnvDBUser                 = "FRESHCART_DB_USER"
	EnvDBName                 = "FRESHCART_DB_NAME"
	EnvRedisURL               = "FRESHCART_REDIS_URL"
	EnvJWTSecret              = "FRESHCART_JWT_SECRET"
	EnvJWTIssuer              = "FRESHCART_JWT_ISSUER"
	EnvJWTExpMins             = "FRESHCART_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "FRESHCART_REFRESH_TOKEN_TTL_MINUTES"
	EnvUseSQLite              = "FRESHCART_USE_SQLITE"
	EnvRestockOnCancel        = "FRESHCART_POLICY_RESTOCK_ON_CANCEL"
	EnvExclusiveAssignment    = "FRESHCART_POLICY_EXCLUSIVE_PARTNER_ASSIGNMENT"
	EnvDeliveryETA            = "FRESHCART_POLICY_DELIVERY_ETA"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

const defaultSQLiteDSN = "file:freshcart.db?_foreign_keys=on"
