package config

// EnvPrefix namespaces every environment variable the platform reads.
const EnvPrefix = "printmitra"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Canonical env var names, shared with tests and deploy manifests.
const (
	EnvAppEnv   = "PRINTMITRA_APP_ENV"
	EnvPort     = "PRINTMITRA_APP_PORT"
	EnvDBDSN    = "PRINTMITRA_DB_DSN"
	EnvDBHost   = "PRINTMITRA_DB_HOST"
	EnvDBUser   = "PRINTMITRA_DB_USER"
	EnvDBName   = "PRINTMITRA_DB_NAME"
	EnvRedisURL = "PRINTMITRA_REDIS_URL"

	EnvPubSubOrdersTopic  = "PRINTMITRA_PUBSUB_ORDERS_TOPIC"
	EnvPubSubPayoutsTopic = "PRINTMITRA_PUBSUB_PAYOUTS_TOPIC"
	EnvGCPProjectID       = "PRINTMITRA_GCP_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
