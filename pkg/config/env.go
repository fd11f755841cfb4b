package config

// EnvPrefix is passed to envconfig; keys carry the full WYCENA_ prefix.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	EnvAppEnv        = "WYCENA_APP_ENV"
	EnvPort          = "WYCENA_APP_PORT"
	EnvDBDriver      = "WYCENA_DB_DRIVER"
	EnvDBDSN         = "WYCENA_DB_DSN"
	EnvDBPath        = "WYCENA_DB_PATH"
	EnvRemoteBaseURL = "WYCENA_REMOTE_BASE_URL"
	EnvOwnerID       = "WYCENA_OWNER_ID"
)
