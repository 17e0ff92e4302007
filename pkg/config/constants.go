package config

// EnvPrefix is passed to envconfig; individual fields carry fully qualified
// variable names, so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv         = "BRIGHTBASKET_APP_ENV"
	EnvPort           = "BRIGHTBASKET_APP_PORT"
	EnvDBDSN          = "BRIGHTBASKET_DB_DSN"
	EnvDBHost         = "BRIGHTBASKET_DB_HOST"
	EnvDBUser         = "BRIGHTBASKET_DB_USER"
	EnvDBName         = "BRIGHTBASKET_DB_NAME"
	EnvRedisURL       = "BRIGHTBASKET_REDIS_URL"
	EnvSessionSecret  = "BRIGHTBASKET_SESSION_SECRET"
	EnvSessionIssuer  = "BRIGHTBASKET_SESSION_ISSUER"
	EnvSessionExpMins = "BRIGHTBASKET_SESSION_EXPIRATION_MINUTES"
	EnvAdminSecret    = "BRIGHTBASKET_ADMIN_TOKEN_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
