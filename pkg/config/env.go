package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvTimezone        = "RESERVATION_TIMEZONE"
	EnvStartWindow     = "START_WINDOW"
	EnvExpiryGrace     = "EXPIRY_GRACE"
	EnvExtensionBuffer = "EXTENSION_CONFLICT_BUFFER"
	EnvRoomLockTTL     = "ROOM_LOCK_TTL"
	EnvSweepInterval   = "SWEEP_INTERVAL"

	EnvEventsTopic    = "RESERVATION_EVENTS_TOPIC"
	EnvEventsDLQTopic = "RESERVATION_EVENTS_DLQ_TOPIC"
)
