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

type WaitlistHandler struct {
	service usecase.WaitlistService
	log     *zap.Logger
}

func NewWaitlistHandler(service usecase.WaitlistService, log *zap.Logger) *WaitlistHandler {
	return &WaitlistHandler{
		service: service,
		log:     log.With(zap.String("handler", "waitlist")),
	}
}

// Join handles POST /api/events/{id}/waitlist (protected)
func (h *WaitlistHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	eventID := chi.URLParam(r, "id")
	if eventID == "" {
		utils.ResponseBadRequest(w, "Event ID is required", nil)
		return
	}

	entry, err := h.service.Join(r.Context(), userID.String(), eventID)
	if err != nil {
		h.handleServiceError(w, err, "join waitlist")
		return
	}

	utils.ResponseCreated(w, "success", entry)
}

// Leave handles DELETE /api/events/{id}/waitlist (protected)
func (h *WaitlistHandler) Leave(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	eventID := chi.URLParam(r, "id")
	if eventID == "" {
		utils.ResponseBadRequest(w, "Event ID is required", nil)
		return
	}

	if err := h.service.Leave(r.Context(), userID.String(), eventID); err != nil {
		h.handleServiceError(w, err, "leave waitlist")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}

// Position handles GET /api/events/{id}/waitlist (protected)
func (h *WaitlistHandler) Position(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	eventID := chi.URLParam(r, "id")
	if eventID == "" {
		utils.ResponseBadRequest(w, "Event ID is required", nil)
		return
	}

	entry, err := h.service.Position(r.Context(), userID.String(), eventID)
	if err != nil {
		h.handleServiceError(w, err, "get waitlist position")
		return
	}

	utils.ResponseSuccess(w, "success", entry)
}

func (h *WaitlistHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, usecase.ErrAlreadyWaitlisted):
		h.log.Warn(operation+" failed - duplicate", zap.Error(err))
		utils.ResponseConflict(w, err.Error())

	case errors.Is(err, usecase.ErrSeatsStillAvailable):
		h.log.Warn(operation+" failed - seats open", zap.Error(err))
		utils.ResponseUnprocessable(w, err.Error())

	case errors.Is(err, usecase.ErrNotWaitlisted), errors.Is(err, usecase.ErrEventNotFound):
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
