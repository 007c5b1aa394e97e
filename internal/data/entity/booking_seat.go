package entity

import "github.com/google/uuid"

// BookingSeat pins the price each seat was sold at; seat prices may change
// between events but a booking keeps what the buyer saw.
type BookingSeat struct {
	BaseSimple
	BookingID uuid.UUID `db:"booking_id"`
	SeatID    uuid.UUID `db:"seat_id"`
	Price     float64   `db:"price"`
}
