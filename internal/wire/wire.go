// internal/wire/wire.go
package wire

import (
	"net/http"

	"github.com/sriman99/Evently-Challenge/internal/adaptor"
	"github.com/sriman99/Evently-Challenge/internal/data/repository"
	"github.com/sriman99/Evently-Challenge/internal/lock"
	"github.com/sriman99/Evently-Challenge/internal/queue"
	"github.com/sriman99/Evently-Challenge/internal/usecase"
	"github.com/sriman99/Evently-Challenge/pkg/middleware"
	"github.com/sriman99/Evently-Challenge/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// App holds the wired dependencies.
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring initializes services, handlers and routes.
func Wiring(
	repo *repository.Repository,
	locks lock.Manager,
	payments usecase.PaymentGateway,
	events queue.Publisher,
	config *utils.Config,
	logger *zap.Logger,
) *App {
	service := usecase.NewService(repo, locks, payments, events, config, logger)
	handler := adaptor.NewHandler(service, logger)

	router := setupRouter(handler, config, logger)

	return &App{
		Router:  router,
		Service: service,
	}
}

// setupRouter configures the Chi router.
func setupRouter(
	handler *adaptor.Handler,
	config *utils.Config,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS())

	// Apply routes
	wireBooking(r, handler.Booking, logger)
	wireEvent(r, handler.Event, logger)
	wireWaitlist(r, handler.Waitlist, logger)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
