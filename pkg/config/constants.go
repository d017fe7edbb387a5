package config

// EnvPrefix is passed to envconfig; individual tags carry the full name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "SILKROUTE_DB_DSN"
	EnvDBHost = "SILKROUTE_DB_HOST"
	EnvDBUser = "SILKROUTE_DB_USER"
	EnvDBName = "SILKROUTE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
