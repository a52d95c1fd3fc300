package config

const (
	EnvPrefix = "INVCORE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EnvAppEnv     = "INVCORE_APP_ENV"
	EnvPort       = "INVCORE_APP_PORT"
	EnvDBDSN      = "INVCORE_DB_DSN"
	EnvDBDriver   = "INVCORE_DB_DRIVER"
	EnvDBHost     = "INVCORE_DB_HOST"
	EnvDBUser     = "INVCORE_DB_USER"
	EnvDBName     = "INVCORE_DB_NAME"
	EnvDBPassword = "INVCORE_DB_PASSWORD"
	EnvRedisURL   = "INVCORE_REDIS_URL"

	EnvPubSubOrdersTopic       = "INVCORE_PUBSUB_ORDERS_TOPIC"
	EnvPubSubBillingTopic      = "INVCORE_PUBSUB_BILLING_TOPIC"
	EnvPubSubNotificationTopic = "INVCORE_PUBSUB_NOTIFICATION_TOPIC"
	EnvGCPProjectID            = "INVCORE_GCP_PROJECT_ID"
	EnvCronInterval            = "INVCORE_CRON_INTERVAL"
	EnvOutboxPollMS            = "INVCORE_OUTBOX_PUBLISH_POLL_MS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
