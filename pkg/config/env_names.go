package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names.
const EnvPrefix = "FEIRAHUB"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "FEIRAHUB_APP_ENV"
	EnvDBDSN  = "FEIRAHUB_DB_DSN"
	EnvDBHost = "FEIRAHUB_DB_HOST"
	EnvDBUser = "FEIRAHUB_DB_USER"
	EnvDBName = "FEIRAHUB_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
