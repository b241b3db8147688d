package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	BrokerPubSub = "pubsub"
	BrokerKafka  = "kafka"
)

const (
	EnvAppEnv                 = "STOREFRONT_APP_ENV"
	EnvPort                   = "STOREFRONT_APP_PORT"
	EnvDBDSN                  = "STOREFRONT_DB_DSN"
	EnvDBHost                 = "STOREFRONT_DB_HOST"
	EnvDBUser                 = "STOREFRONT_DB_USER"
	EnvDBName                 = "STOREFRONT_DB_NAME"
	EnvDBPassword             = "STOREFRONT_DB_PASSWORD"
	EnvRedisURL               = "STOREFRONT_REDIS_URL"
	EnvJWTSecret              = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer              = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins             = "STOREFRONT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "STOREFRONT_REFRESH_TOKEN_TTL_MINUTES"
	EnvEventBroker            = "STOREFRONT_EVENT_BROKER"
	EnvCheckoutPriceConfirm   = "STOREFRONT_CHECKOUT_REQUIRE_PRICE_CONFIRMATION"
	EnvKafkaBrokers           = "STOREFRONT_KAFKA_BROKERS"
	EnvCORSOrigins            = "STOREFRONT_CORS_ORIGINS"
)
