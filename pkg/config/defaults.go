package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "roomres"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultTimezone = "Asia/Manila"

	// Staff may start a reservation this long before its scheduled start.
	DefaultStartWindow = 15 * time.Minute

	// Pending/Approved reservations not started within this grace after
	// their scheduled start are expired by the sweeper.
	DefaultExpiryGrace = 15 * time.Minute

	// An extension is capped this far before the next reservation's start.
	DefaultExtensionBuffer = 5 * time.Minute

	DefaultRoomLockTTL   = 10 * time.Second
	DefaultSweepInterval = 1 * time.Minute

	DefaultEventsTopic    = "reservation-events"
	DefaultEventsDLQTopic = "reservation-events-dlq"

	DefaultPaginationLimit = 100
)
