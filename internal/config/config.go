package config

// Header constants.
const (
	HEADER_KEY_X_API_KEY   = "X-Api-Key"
	HEADER_KEY_X_CLIENT_ID = "X-Client-Id"
	HEADER_KEY_X_UID       = "X-Uid"
)

// Environment variable keys.
const (
	ENV_KEY_APP_ENV   = "APP_ENV"
	ENV_KEY_PORT      = "PORT"
	ENV_KEY_LOG_LEVEL = "LOG_LEVEL"
	ENV_KEY_API_KEY   = "API_KEY"
	ENV_KEY_CLIENT_ID = "CLIENT_ID"

	ENV_KEY_DB_DATABASE             = "DB_DATABASE"
	ENV_KEY_DB_PASSWORD             = "DB_PASSWORD"
	ENV_KEY_DB_USER                 = "DB_USER"
	ENV_KEY_DB_PORT                 = "DB_PORT"
	ENV_KEY_DB_HOST                 = "DB_HOST"
	ENV_KEY_DB_MAX_OPEN_CONNECTIONS = "DB_MAX_OPEN_CONNECTIONS"

	ENV_KEY_REDIS_HOST     = "REDIS_HOST"
	ENV_KEY_REDIS_PORT     = "REDIS_PORT"
	ENV_KEY_REDIS_PASSWORD = "REDIS_PASSWORD"

	ENV_KEY_FIREBASE_PROJECT_ID               = "FIREBASE_PROJECT_ID"
	ENV_KEY_FIREBASE_SERVICE_ACCOUNT_KEY_PATH = "FIREBASE_SERVICE_ACCOUNT_KEY_PATH"

	ENV_KEY_FANOUT_LIMIT         = "FANOUT_LIMIT"
	ENV_KEY_STOCK_ALERT_COOLDOWN = "STOCK_ALERT_COOLDOWN"
	ENV_KEY_WORKER_CONCURRENCY   = "WORKER_CONCURRENCY"

	ENV_KEY_SMTP_HOST        = "SMTP_HOST"
	ENV_KEY_SMTP_PORT        = "SMTP_PORT"
	ENV_KEY_SMTP_USERNAME    = "SMTP_USERNAME"
	ENV_KEY_SMTP_PASSWORD    = "SMTP_PASSWORD"
	ENV_KEY_ALERT_EMAIL_FROM = "ALERT_EMAIL_FROM"
	ENV_KEY_ALERT_EMAIL_TO   = "ALERT_EMAIL_TO"

	ENV_KEY_OTEL_ENDPOINT = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

type ContextKey uint

const (
	_ ContextKey = iota
	CTX_KEY_USER_ID
)
