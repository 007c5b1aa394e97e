package adaptor

import (
	"github.com/sriman99/Evently-Challenge/internal/usecase"

	"go.uber.org/zap"
)

type Handler struct {
	Booking  *BookingHandler
	Event    *EventHandler
	Waitlist *WaitlistHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Booking:  NewBookingHandler(service.Booking, log),
		Event:    NewEventHandler(service.Capacity, log),
		Waitlist: NewWaitlistHandler(service.Waitlist, log),
	}
}
