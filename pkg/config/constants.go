package config

// #nosec
const (
	EnvironmentVariableNotDefined = "%s variable is not defined"

	IsAtRemote = "IS_AT_REMOTE"
	ServerPort = "SERVER_PORT"

	UpstreamBaseUrl        = "UPSTREAM_BASE_URL"
	UpstreamRefreshTimeout = "UPSTREAM_REFRESH_TIMEOUT"

	MongodbUri               = "MONGODB_URI"
	MongodbUsername          = "MONGODB_USERNAME"
	MongodbPassword          = "MONGODB_PASSWORD"
	MongodbDatabase          = "MONGODB_DATABASE"
	MongodbSessionCollection = "MONGODB_SESSION_COLLECTION"

	SessionSealKey     = "SESSION_SEAL_KEY"
	SessionRememberTtl = "SESSION_REMEMBER_TTL"
)
