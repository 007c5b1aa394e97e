package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/sriman99/Evently-Challenge/internal/data/entity"
	"github.com/sriman99/Evently-Challenge/internal/data/repository"
	"github.com/sriman99/Evently-Challenge/internal/dto/response"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrAlreadyWaitlisted is returned when a user joins the same event's
// waitlist twice. Their original position is preserved.
var ErrAlreadyWaitlisted = errors.New("already on the waitlist")

// ErrSeatsStillAvailable rejects joining the waitlist for an event that
// still has open seats.
var ErrSeatsStillAvailable = errors.New("event still has available seats")

// ErrNotWaitlisted is returned when querying or leaving a position the
// user does not hold.
var ErrNotWaitlisted = errors.New("not on the waitlist")

type WaitlistService interface {
	Join(ctx context.Context, userID, eventID string) (*response.WaitlistResponse, error)
	Leave(ctx context.Context, userID, eventID string) error
	Position(ctx context.Context, userID, eventID string) (*response.WaitlistResponse, error)
}

type waitlistService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewWaitlistService(repo *repository.Repository, log *zap.Logger) WaitlistService {
	return &waitlistService{
		repo: repo,
		log:  log.With(zap.String("service", "waitlist")),
	}
}

func (s *waitlistService) Join(ctx context.Context, userID, eventID string) (*response.WaitlistResponse, error) {
	userUUID, eventUUID, err := s.parseIDs(userID, eventID)
	if err != nil {
		return nil, err
	}

	event, err := s.repo.Event.FindByID(ctx, eventUUID)
	if err != nil {
		return nil, fmt.Errorf("find event %s: %w", eventID, err)
	}
	if event == nil {
		return nil, ErrEventNotFound
	}

	// Waitlists are for sold-out events. The check is advisory, the same
	// way the capacity check is: a seat freed between this read and the
	// insert just means the user joined a queue that promotes quickly.
	available, err := s.repo.Seat.CountByStatus(ctx, eventUUID, entity.SeatStatusAvailable)
	if err != nil {
		return nil, fmt.Errorf("count available seats: %w", err)
	}
	if available > 0 {
		return nil, fmt.Errorf("event %s has %d seat(s) open: %w", eventID, available, ErrSeatsStillAvailable)
	}

	position, err := s.repo.Waitlist.Join(ctx, userUUID, eventUUID)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyWaitlisted
		}
		return nil, err
	}

	s.log.Info("user joined waitlist",
		zap.String("user_id", userID),
		zap.String("event_id", eventID),
		zap.Int("position", position),
	)

	return &response.WaitlistResponse{EventID: eventID, Position: position}, nil
}

func (s *waitlistService) Leave(ctx context.Context, userID, eventID string) error {
	userUUID, eventUUID, err := s.parseIDs(userID, eventID)
	if err != nil {
		return err
	}
	return s.repo.Waitlist.Leave(ctx, userUUID, eventUUID)
}

func (s *waitlistService) Position(ctx context.Context, userID, eventID string) (*response.WaitlistResponse, error) {
	userUUID, eventUUID, err := s.parseIDs(userID, eventID)
	if err != nil {
		return nil, err
	}

	position, err := s.repo.Waitlist.FindPosition(ctx, userUUID, eventUUID)
	if err != nil {
		return nil, err
	}
	if position == 0 {
		return nil, fmt.Errorf("user %s for event %s: %w", userID, eventID, ErrNotWaitlisted)
	}

	return &response.WaitlistResponse{EventID: eventID, Position: position}, nil
}

func (s *waitlistService) parseIDs(userID, eventID string) (uuid.UUID, uuid.UUID, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid user ID format %s: %w", userID, err)
	}
	eventUUID, err := uuid.Parse(eventID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid event ID format %s: %w", eventID, err)
	}
	return userUUID, eventUUID, nil
}
