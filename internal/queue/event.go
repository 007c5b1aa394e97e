// Package queue defines the lifecycle events emitted by the booking
// engine and the publisher contract for delivering them to downstream
// consumers (notification fan-out, analytics).
package queue

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventSeatHeld         = "seat.held"
	EventSeatReleased     = "seat.released"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingExpired   = "booking.expired"
	EventWaitlistPromoted = "waitlist.promoted"
)

// Event is the payload published on every lifecycle transition. Delivery
// is fire-and-forget; consumers get enough to notify or aggregate without
// querying the primary database.
type Event struct {
	Name      string      `json:"name"`
	EventID   uuid.UUID   `json:"event_id"`
	BookingID uuid.UUID   `json:"booking_id,omitempty"`
	UserID    uuid.UUID   `json:"user_id"`
	SeatIDs   []uuid.UUID `json:"seat_ids,omitempty"`
	Timestamp time.Time   `json:"timestamp"`

	// ClaimUntil is set on waitlist.promoted only: the end of the
	// promoted user's priority window for attempting a booking.
	ClaimUntil time.Time `json:"claim_until,omitempty"`
}
