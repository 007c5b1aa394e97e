package adaptor

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sriman99/Evently-Challenge/internal/usecase"
	"github.com/sriman99/Evently-Challenge/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type EventHandler struct {
	service usecase.CapacityService
	log     *zap.Logger
}

func NewEventHandler(service usecase.CapacityService, log *zap.Logger) *EventHandler {
	return &EventHandler{
		service: service,
		log:     log.With(zap.String("handler", "event")),
	}
}

// GetAvailability handles GET /api/events/{id}/availability (public)
func (h *EventHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	if eventID == "" {
		utils.ResponseBadRequest(w, "Event ID is required", nil)
		return
	}

	availability, err := h.service.AvailableCount(r.Context(), eventID)
	if err != nil {
		h.handleServiceError(w, err, "get availability")
		return
	}

	utils.ResponseSuccess(w, "success", availability)
}

// GetSeats handles GET /api/events/{id}/seats (public)
func (h *EventHandler) GetSeats(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	if eventID == "" {
		utils.ResponseBadRequest(w, "Event ID is required", nil)
		return
	}

	seats, err := h.service.GetEventSeats(r.Context(), eventID)
	if err != nil {
		h.handleServiceError(w, err, "get seats")
		return
	}

	utils.ResponseSuccess(w, "success", seats)
}

func (h *EventHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, usecase.ErrEventNotFound):
		h.log.Warn(operation+" failed - not found", zap.Error(err))
		utils.ResponseNotFound(w, err.Error())

	case strings.Contains(err.Error(), "invalid"):
		h.log.Warn(operation+" failed - bad request", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	default:
		h.log.Error("Failed to "+operation, zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
