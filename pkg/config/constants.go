package config

// EnvPrefix is empty because every field names its variable explicitly.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "MBPRO_DB_DSN"
	EnvDBHost = "MBPRO_DB_HOST"
	EnvDBUser = "MBPRO_DB_USER"
	EnvDBName = "MBPRO_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
