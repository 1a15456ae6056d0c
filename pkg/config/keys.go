package config

const (
	EnvPrefix = "CARBUILD"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres   = "postgres"
	DriverSQLite     = "sqlite"
	DefaultSQLiteDSN = "file:carbuild.db?cache=shared&_fk=1"

	EnvAppEnv               = "CARBUILD_APP_ENV"
	EnvPort                 = "CARBUILD_APP_PORT"
	EnvGatewayBaseURL       = "CARBUILD_GATEWAY_BASE_URL"
	EnvPricingDebounce      = "CARBUILD_PRICING_DEBOUNCE"
	EnvPolicyMaxQuantity    = "CARBUILD_POLICY_MAX_QUANTITY"
	EnvPolicyMaxChassis     = "CARBUILD_POLICY_MAX_QUANTITY_CHASSIS"
	EnvPolicyChassisKeyword = "CARBUILD_POLICY_CHASSIS_KEYWORD"
	EnvDBDSN                = "CARBUILD_DB_DSN"
	EnvDBHost               = "CARBUILD_DB_HOST"
	EnvDBUser               = "CARBUILD_DB_USER"
	EnvDBName               = "CARBUILD_DB_NAME"
	EnvDBPassword           = "CARBUILD_DB_PASSWORD"
	EnvRedisURL             = "CARBUILD_REDIS_URL"
	EnvUseSQLite            = "CARBUILD_USE_SQLITE"
)

var dbPartsEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
