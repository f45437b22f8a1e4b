package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv             = "STOREFRONT_APP_ENV"
	EnvDBDSN              = "STOREFRONT_DB_DSN"
	EnvDBHost             = "STOREFRONT_DB_HOST"
	EnvDBUser             = "STOREFRONT_DB_USER"
	EnvDBName             = "STOREFRONT_DB_NAME"
	EnvRedisURL           = "STOREFRONT_REDIS_URL"
	EnvJWTSecret          = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer          = "STOREFRONT_JWT_ISSUER"
	EnvCheckoutSuccessURL = "STOREFRONT_CHECKOUT_SUCCESS_URL"
	EnvCheckoutCancelURL  = "STOREFRONT_CHECKOUT_CANCEL_URL"
	EnvStripeAPIKey       = "STOREFRONT_STRIPE_API_KEY"
	EnvStripeWebhookKey   = "STOREFRONT_STRIPE_WEBHOOK_SECRET"
	EnvGCSBucket          = "STOREFRONT_GCS_BUCKET_NAME"
	EnvCSRFOrigins        = "STOREFRONT_CSRF_ALLOWED_ORIGINS"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
