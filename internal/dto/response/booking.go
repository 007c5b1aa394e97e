package response

import (
	"time"

	"github.com/sriman99/Evently-Challenge/internal/data/entity"
)

type BookingResponse struct {
	ID          string               `json:"id"`
	BookingCode string               `json:"booking_code"`
	UserID      string               `json:"user_id"`
	EventID     string               `json:"event_id"`
	TotalAmount float64              `json:"total_amount"`
	Status      entity.BookingStatus `json:"status"`
	Seats       []SeatResponse       `json:"seats,omitempty"`
	ExpiresAt   *time.Time           `json:"expires_at,omitempty"`
	ConfirmedAt *time.Time           `json:"confirmed_at,omitempty"`
	CancelledAt *time.Time           `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

func BookingToResponse(booking *entity.Booking, seats []*entity.Seat) *BookingResponse {
	seatResponses := make([]SeatResponse, len(seats))
	for i, seat := range seats {
		seatResponses[i] = SeatToResponse(seat)
	}

	return &BookingResponse{
		ID:          booking.ID.String(),
		BookingCode: booking.BookingCode,
		UserID:      booking.UserID.String(),
		EventID:     booking.EventID.String(),
		TotalAmount: booking.TotalAmount,
		Status:      booking.Status,
		Seats:       seatResponses,
		ExpiresAt:   booking.ExpiresAt,
		ConfirmedAt: booking.ConfirmedAt,
		CancelledAt: booking.CancelledAt,
		CreatedAt:   booking.CreatedAt,
	}
}
