package repository

import (
	"github.com/sriman99/Evently-Challenge/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	Event       EventRepository
	Seat        SeatRepository
	Booking     BookingRepository
	BookingSeat BookingSeatRepository
	Waitlist    WaitlistRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Event:       NewEventRepository(db, log),
		Seat:        NewSeatRepository(db, log),
		Booking:     NewBookingRepository(db, log),
		BookingSeat: NewBookingSeatRepository(db, log),
		Waitlist:    NewWaitlistRepository(db, log),
	}
}
