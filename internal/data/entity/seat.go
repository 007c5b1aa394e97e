package entity

import "github.com/google/uuid"

type SeatStatus string

const (
	SeatStatusAvailable SeatStatus = "available"
	SeatStatusHeld      SeatStatus = "held"
	SeatStatusBooked    SeatStatus = "booked"
	SeatStatusBlocked   SeatStatus = "blocked"
)

// Seat is the unit of inventory. Version increases by one on every
// successful status change; a write only lands when the caller's observed
// version matches the stored one. FencingToken records the newest lock
// grant that wrote the row, so a write on behalf of a lapsed grant is
// rejected even after the lock key itself expired.
type Seat struct {
	Base
	EventID      uuid.UUID  `db:"event_id"`
	Section      string     `db:"section"`     // e.g. "GA", "VIP"
	SeatRow      string     `db:"seat_row"`    // A, B, C
	SeatNumber   string     `db:"seat_number"` // 1, 2, 3 within the row
	Price        float64    `db:"price"`
	Status       SeatStatus `db:"status"`
	Version      int64      `db:"version"`
	FencingToken int64      `db:"fencing_token"`
	HeldBy       *uuid.UUID `db:"held_by"`
}

// Label renders the human-facing seat identifier, e.g. "VIP-A12".
func (s *Seat) Label() string {
	return s.Section + "-" + s.SeatRow + s.SeatNumber
}
