package wire

import (
	"github.com/sriman99/Evently-Challenge/internal/adaptor"
	"github.com/sriman99/Evently-Challenge/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireWaitlist(
	r chi.Router,
	waitlistHandler *adaptor.WaitlistHandler,
	log *zap.Logger,
) {
	// ==================== PROTECTED ROUTES (require identity) ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity(log))

		// POST /api/events/{id}/waitlist - Join the queue for a sold-out event
		r.Post("/api/events/{id}/waitlist", waitlistHandler.Join)

		// GET /api/events/{id}/waitlist - Own position in the queue
		r.Get("/api/events/{id}/waitlist", waitlistHandler.Position)

		// DELETE /api/events/{id}/waitlist - Leave the queue
		r.Delete("/api/events/{id}/waitlist", waitlistHandler.Leave)
	})
}
