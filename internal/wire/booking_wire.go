package wire

import (
	"github.com/sriman99/Evently-Challenge/internal/adaptor"
	"github.com/sriman99/Evently-Challenge/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBooking(
	r chi.Router,
	bookingHandler *adaptor.BookingHandler,
	log *zap.Logger,
) {
	// ==================== PROTECTED ROUTES (require identity) ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity(log))

		// POST /api/bookings - Reserve seats (runs the booking saga)
		r.Post("/api/bookings", bookingHandler.CreateBooking)

		// POST /api/bookings/{id}/confirm - Pay for and commit a reservation
		r.Post("/api/bookings/{id}/confirm", bookingHandler.ConfirmBooking)

		// POST /api/bookings/{id}/cancel - Cancel a reservation or a confirmed booking
		r.Post("/api/bookings/{id}/cancel", bookingHandler.CancelBooking)

		// GET /api/bookings/{id} - Booking detail with seats (owner only)
		r.Get("/api/bookings/{id}", bookingHandler.GetBookingByID)

		// GET /api/users/me/bookings - Booking history
		r.Get("/api/users/me/bookings", bookingHandler.GetUserBookings)
	})
}
