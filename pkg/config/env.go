package config

const EnvPrefix = "RVSTORE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv = "RVSTORE_APP_ENV"
	EnvPort   = "RVSTORE_APP_PORT"

	EnvDBDSN    = "RVSTORE_DB_DSN"
	EnvDBDriver = "RVSTORE_DB_DRIVER"
	EnvDBHost   = "RVSTORE_DB_HOST"
	EnvDBUser   = "RVSTORE_DB_USER"
	EnvDBName   = "RVSTORE_DB_NAME"

	EnvRedisURL = "RVSTORE_REDIS_URL"

	EnvJWTSecret              = "RVSTORE_JWT_SECRET"
	EnvJWTAdminSecret         = "RVSTORE_JWT_ADMIN_SECRET"
	EnvJWTIssuer              = "RVSTORE_JWT_ISSUER"
	EnvJWTExpMins             = "RVSTORE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "RVSTORE_REFRESH_TOKEN_TTL_MINUTES"

	EnvMaxPurchaseCount = "RVSTORE_MAX_PURCHASE_COUNT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
