package config

const (
	EnvPrefix = "SHOP4U"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	ReviewQuotaScopeProduct = "product"
	ReviewQuotaScopeOrder   = "order"
)

// Environment variable names, kept in one place so tests and deploy manifests
// reference the same strings.
const (
	EnvAppEnv   = "SHOP4U_APP_ENV"
	EnvPort     = "SHOP4U_APP_PORT"
	EnvLogLevel = "SHOP4U_LOG_LEVEL"

	EnvDBDSN    = "SHOP4U_DB_DSN"
	EnvDBDriver = "SHOP4U_DB_DRIVER"
	EnvDBHost   = "SHOP4U_DB_HOST"
	EnvDBPort   = "SHOP4U_DB_PORT"
	EnvDBUser   = "SHOP4U_DB_USER"
	EnvDBName   = "SHOP4U_DB_NAME"

	EnvRedisURL = "SHOP4U_REDIS_URL"

	EnvJWTSecret  = "SHOP4U_JWT_SECRET"
	EnvJWTIssuer  = "SHOP4U_JWT_ISSUER"
	EnvJWTExpMins = "SHOP4U_JWT_EXPIRATION_MINUTES"

	EnvCheckoutProcessingOffset = "SHOP4U_CHECKOUT_PROCESSING_OFFSET"
	EnvCheckoutShippedOffset    = "SHOP4U_CHECKOUT_SHIPPED_OFFSET"
	EnvCheckoutDeliveredOffset  = "SHOP4U_CHECKOUT_DELIVERED_OFFSET"
	EnvCheckoutIdempotencyTTL   = "SHOP4U_CHECKOUT_IDEMPOTENCY_TTL"

	EnvReviewsQuotaScope = "SHOP4U_REVIEWS_QUOTA_SCOPE"
	EnvReviewsQuotaLimit = "SHOP4U_REVIEWS_QUOTA_LIMIT"

	EnvGCPProjectID = "SHOP4U_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic = "SHOP4U_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub   = "SHOP4U_PUBSUB_ORDERS_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
