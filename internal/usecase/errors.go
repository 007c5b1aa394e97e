package usecase

import "errors"

// Booking failure taxonomy. Handlers translate these with errors.Is; every
// seat-affecting failure has already run compensation by the time it
// surfaces here.
var (
	// ErrSeatUnavailable: the requested seats are gone. Not retryable for
	// the same seats; the caller should pick different ones.
	ErrSeatUnavailable = errors.New("seats unavailable")

	// ErrCapacityExceeded: the advisory capacity check failed before any
	// lock was taken. Cheap rejection, nothing to compensate.
	ErrCapacityExceeded = errors.New("not enough seats available")

	// ErrHoldExpired: the booking's hold window elapsed before
	// confirmation arrived. The seats were (or are being) reclaimed.
	ErrHoldExpired = errors.New("booking hold expired")

	// ErrPaymentRejected: the payment collaborator declined. The booking
	// was released and the seats may already be gone.
	ErrPaymentRejected = errors.New("payment rejected")

	// ErrNotConfirmable: confirm or cancel was called on a booking whose
	// status does not permit it (confirming a cancelled booking and so on).
	ErrNotConfirmable = errors.New("booking cannot be confirmed in its current state")

	ErrBookingNotFound = errors.New("booking not found")
	ErrEventNotFound   = errors.New("event not found")
	ErrNotOwner        = errors.New("booking belongs to another user")
)
