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

	EnvReservationMaxDays      = "RESERVATION_MAX_DAYS"
	EnvReservationMinDaysAhead = "RESERVATION_MIN_DAYS_AHEAD"
	EnvReservationMaxDaysAhead = "RESERVATION_MAX_DAYS_AHEAD"

	EnvAvailabilityRangeDays = "AVAILABILITY_RANGE_DAYS"

	EnvCalendarRefreshInterval = "CALENDAR_REFRESH_INTERVAL"

	EnvEventsEnabled = "RESERVATION_EVENTS_ENABLED"
	EnvEventsTopic   = "RESERVATION_EVENTS_TOPIC"
)
