package errors

import "errors"

var (
	ErrCampsiteNotFound = errors.New("campsite not found")

	ErrReservationNotFound = errors.New("reservation not found")

	ErrAvailabilityNotFound = errors.New("availability record not found")

	ErrInvalidID = errors.New("invalid ID format")

	// ErrStaleVersion means a ledger mutation targeted a version that has
	// since moved: the writer lost an optimistic-concurrency race.
	ErrStaleVersion = errors.New("availability record version is stale")

	// ErrInvariantViolation means a decrement found zero remaining sites or
	// an increment would exceed capacity. Callers are required to go through
	// the conflict check first, so hitting this indicates a logic bug.
	ErrInvariantViolation = errors.New("availability counter invariant violated")
)
