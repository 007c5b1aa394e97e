package request

type CreateBookingRequest struct {
	EventID string   `json:"event_id" validate:"required,uuid4"`
	SeatIDs []string `json:"seat_ids" validate:"required,min=1,dive,uuid4"`
}

type ConfirmBookingRequest struct {
	PaymentRef string `json:"payment_ref" validate:"required,min=1,max=255"`
}
