package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusReserved  BookingStatus = "reserved"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusExpired   BookingStatus = "expired"
	BookingStatusFailed    BookingStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
// CONFIRMED is not terminal: an explicit post-confirmation cancellation
// may still move it to CANCELLED.
func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingStatusCancelled, BookingStatusExpired, BookingStatusFailed:
		return true
	}
	return false
}

type Booking struct {
	Base
	BookingCode string        `db:"booking_code"`
	UserID      uuid.UUID     `db:"user_id"`
	EventID     uuid.UUID     `db:"event_id"`
	TotalAmount float64       `db:"total_amount"`
	Status      BookingStatus `db:"status"`
	ExpiresAt   *time.Time    `db:"expires_at"`
	ConfirmedAt *time.Time    `db:"confirmed_at"`
	CancelledAt *time.Time    `db:"cancelled_at"`
	PaymentRef  *string       `db:"payment_ref"`
}
