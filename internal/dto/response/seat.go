package response

import (
	"github.com/sriman99/Evently-Challenge/internal/data/entity"
)

type SeatResponse struct {
	ID         string            `json:"id"`
	Section    string            `json:"section"`
	SeatRow    string            `json:"seat_row"`
	SeatNumber string            `json:"seat_number"`
	Label      string            `json:"label"`
	Price      float64           `json:"price"`
	Status     entity.SeatStatus `json:"status"`
}

func SeatToResponse(seat *entity.Seat) SeatResponse {
	return SeatResponse{
		ID:         seat.ID.String(),
		Section:    seat.Section,
		SeatRow:    seat.SeatRow,
		SeatNumber: seat.SeatNumber,
		Label:      seat.Label(),
		Price:      seat.Price,
		Status:     seat.Status,
	}
}

type AvailabilityResponse struct {
	EventID    string `json:"event_id"`
	Available  int    `json:"available"`
	Waitlisted int    `json:"waitlisted"`
}
