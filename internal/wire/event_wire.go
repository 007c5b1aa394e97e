package wire

import (
	"github.com/sriman99/Evently-Challenge/internal/adaptor"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireEvent(
	r chi.Router,
	eventHandler *adaptor.EventHandler,
	log *zap.Logger,
) {
	// ==================== PUBLIC ROUTES ====================
	// GET /api/events/{id}/availability - Derived available seat count
	r.Get("/api/events/{id}/availability", eventHandler.GetAvailability)

	// GET /api/events/{id}/seats - Seat map with statuses
	r.Get("/api/events/{id}/seats", eventHandler.GetSeats)
}
