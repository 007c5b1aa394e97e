package usecase

import (
	"context"
	"fmt"

	"github.com/sriman99/Evently-Challenge/internal/data/entity"
	"github.com/sriman99/Evently-Challenge/internal/data/repository"
	"github.com/sriman99/Evently-Challenge/internal/dto/response"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CapacityService interface {
	// CheckCapacity is the advisory pre-check run before any lock is
	// taken. It can be stale by the time the CAS runs; it only exists to
	// reject hopeless requests cheaply.
	CheckCapacity(ctx context.Context, eventID uuid.UUID, requested int) error

	// AvailableCount derives availability by counting AVAILABLE seat rows.
	// Both HELD and BOOKED seats count as unavailable.
	AvailableCount(ctx context.Context, eventID string) (*response.AvailabilityResponse, error)

	GetEventSeats(ctx context.Context, eventID string) ([]response.SeatResponse, error)
}

type capacityService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewCapacityService(repo *repository.Repository, log *zap.Logger) CapacityService {
	return &capacityService{
		repo: repo,
		log:  log.With(zap.String("service", "capacity")),
	}
}

func (s *capacityService) CheckCapacity(ctx context.Context, eventID uuid.UUID, requested int) error {
	available, err := s.repo.Seat.CountByStatus(ctx, eventID, entity.SeatStatusAvailable)
	if err != nil {
		return fmt.Errorf("count available seats: %w", err)
	}

	if available < requested {
		s.log.Info("capacity check rejected request",
			zap.String("event_id", eventID.String()),
			zap.Int("requested", requested),
			zap.Int("available", available),
		)
		return fmt.Errorf("%d seat(s) requested, %d available: %w", requested, available, ErrCapacityExceeded)
	}

	return nil
}

func (s *capacityService) AvailableCount(ctx context.Context, eventID string) (*response.AvailabilityResponse, error) {
	eventUUID, err := uuid.Parse(eventID)
	if err != nil {
		return nil, fmt.Errorf("invalid event ID format %s: %w", eventID, err)
	}

	event, err := s.repo.Event.FindByID(ctx, eventUUID)
	if err != nil {
		return nil, fmt.Errorf("find event %s: %w", eventID, err)
	}
	if event == nil {
		return nil, ErrEventNotFound
	}

	available, err := s.repo.Seat.CountByStatus(ctx, eventUUID, entity.SeatStatusAvailable)
	if err != nil {
		return nil, fmt.Errorf("count available seats: %w", err)
	}

	waitlisted, err := s.repo.Waitlist.CountByEvent(ctx, eventUUID)
	if err != nil {
		return nil, fmt.Errorf("count waitlist: %w", err)
	}

	return &response.AvailabilityResponse{
		EventID:    eventID,
		Available:  available,
		Waitlisted: waitlisted,
	}, nil
}

func (s *capacityService) GetEventSeats(ctx context.Context, eventID string) ([]response.SeatResponse, error) {
	eventUUID, err := uuid.Parse(eventID)
	if err != nil {
		return nil, fmt.Errorf("invalid event ID format %s: %w", eventID, err)
	}

	event, err := s.repo.Event.FindByID(ctx, eventUUID)
	if err != nil {
		return nil, fmt.Errorf("find event %s: %w", eventID, err)
	}
	if event == nil {
		return nil, ErrEventNotFound
	}

	seats, err := s.repo.Seat.FindByEventID(ctx, eventUUID)
	if err != nil {
		return nil, fmt.Errorf("list seats for event %s: %w", eventID, err)
	}

	out := make([]response.SeatResponse, len(seats))
	for i, seat := range seats {
		out[i] = response.SeatToResponse(seat)
	}
	return out, nil
}
