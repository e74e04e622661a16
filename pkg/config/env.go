package config

const (
	EnvPrefix = "ASSIGNMENTPOINT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
	DefaultSQLiteDSN = "file:assignmentpoint.db?cache=shared&_foreign_keys=on"

	EnvAppEnv   = "ASSIGNMENTPOINT_APP_ENV"
	EnvPort     = "ASSIGNMENTPOINT_APP_PORT"
	EnvLogLevel = "ASSIGNMENTPOINT_LOG_LEVEL"

	EnvDBDSN    = "ASSIGNMENTPOINT_DB_DSN"
	EnvDBDriver = "ASSIGNMENTPOINT_DB_DRIVER"
	EnvDBHost   = "ASSIGNMENTPOINT_DB_HOST"
	EnvDBUser   = "ASSIGNMENTPOINT_DB_USER"
	EnvDBName   = "ASSIGNMENTPOINT_DB_NAME"

	EnvRedisURL  = "ASSIGNMENTPOINT_REDIS_URL"
	EnvJWTSecret = "ASSIGNMENTPOINT_JWT_SECRET"
	EnvJWTIssuer = "ASSIGNMENTPOINT_JWT_ISSUER"

	EnvBidDefaultPercent = "ASSIGNMENTPOINT_BID_DEFAULT_PERCENT"

	EnvSettlementAllowDefault = "ASSIGNMENTPOINT_SETTLEMENT_ALLOW_DEFAULT_SPLIT"
	EnvSettlementWriterPct    = "ASSIGNMENTPOINT_SETTLEMENT_DEFAULT_WRITER_PCT"
	EnvSettlementAgentPct     = "ASSIGNMENTPOINT_SETTLEMENT_DEFAULT_SALES_AGENT_PCT"
	EnvSettlementManagerPct   = "ASSIGNMENTPOINT_SETTLEMENT_DEFAULT_MANAGER_PCT"
	EnvSettlementEditorPct    = "ASSIGNMENTPOINT_SETTLEMENT_DEFAULT_EDITOR_PCT"

	EnvPubSubDomainTopic = "ASSIGNMENTPOINT_PUBSUB_DOMAIN_TOPIC"
	EnvStripeEnv         = "ASSIGNMENTPOINT_STRIPE_ENV"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
