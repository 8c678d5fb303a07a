package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "basecamp"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// A stay may span at most this many nights.
	DefaultReservationMaxDays = 3
	// Check-in must be at least this many days after today.
	DefaultReservationMinDaysAhead = 1
	// Check-in must be at most this many days after today.
	DefaultReservationMaxDaysAhead = 30

	// Availability display windows are clamped to this many days.
	DefaultAvailabilityRangeDays = 30

	// How often the background task re-extends every campsite's calendar.
	DefaultCalendarRefreshInterval = 24 * time.Hour

	DefaultEventsTopic = "campsites.reservations"

	DefaultPaginationLimit = 100
)
