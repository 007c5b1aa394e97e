package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sriman99/Evently-Challenge/internal/data/entity"
	"github.com/sriman99/Evently-Challenge/internal/data/repository"
	"github.com/sriman99/Evently-Challenge/internal/queue"
	"github.com/sriman99/Evently-Challenge/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// sweepBatchSize bounds how many lapsed holds one sweep pass drains so a
// backlog cannot pin a worker indefinitely.
const sweepBatchSize = 100

type SweeperService interface {
	// SweepOnce reclaims every RESERVED booking whose hold deadline has
	// passed and reports how many it expired. Bookings that resolve
	// concurrently (a confirm or cancel winning the row CAS first) are
	// skipped, not errors. It then repairs seats an interrupted release
	// or commit left HELD under an already-resolved booking.
	SweepOnce(ctx context.Context) (int, error)
}

type sweeperService struct {
	repo   *repository.Repository
	events queue.Publisher
	comp   *compensator
	grace  time.Duration
	log    *zap.Logger
}

func NewSweeperService(repo *repository.Repository, events queue.Publisher, cfg utils.BookingConfig, log *zap.Logger) SweeperService {
	return &sweeperService{
		repo:   repo,
		events: events,
		comp:   &compensator{repo: repo, events: events, promoteWindow: cfg.PromoteWindow, log: log.With(zap.String("service", "compensation"))},
		grace:  cfg.ReconcileGrace,
		log:    log.With(zap.String("service", "sweeper")),
	}
}

func (s *sweeperService) SweepOnce(ctx context.Context) (int, error) {
	expired, err := s.sweepExpired(ctx)
	if err != nil {
		return expired, err
	}
	if err := s.reconcileHeld(ctx); err != nil {
		s.log.Error("held-seat reconciliation incomplete", zap.Error(err))
	}
	return expired, nil
}

func (s *sweeperService) sweepExpired(ctx context.Context) (int, error) {
	expired := 0
	for {
		lapsed, err := s.repo.Booking.FindExpired(ctx, time.Now(), sweepBatchSize)
		if err != nil {
			return expired, fmt.Errorf("find lapsed holds: %w", err)
		}
		if len(lapsed) == 0 {
			return expired, nil
		}

		progressed := false
		for _, booking := range lapsed {
			if err := ctx.Err(); err != nil {
				return expired, err
			}

			won, err := s.comp.release(ctx, booking, entity.BookingStatusReserved, entity.BookingStatusExpired, entity.SeatStatusHeld)
			if err != nil {
				// Partial releases are safe to re-run; the next pass picks
				// up whatever this one left behind.
				s.log.Error("expiry compensation incomplete",
					zap.Error(err),
					zap.String("booking_id", booking.ID.String()),
				)
				continue
			}
			if !won {
				progressed = true
				continue
			}

			expired++
			progressed = true
			s.events.Publish(ctx, queue.Event{
				Name:      queue.EventBookingExpired,
				EventID:   booking.EventID,
				BookingID: booking.ID,
				UserID:    booking.UserID,
				Timestamp: time.Now(),
			})
			s.log.Info("expired lapsed booking",
				zap.String("booking_id", booking.ID.String()),
				zap.String("booking_code", booking.BookingCode),
			)
		}

		// A full batch where nothing resolved means every booking in it is
		// failing compensation; stop instead of spinning on the same rows.
		if len(lapsed) < sweepBatchSize || !progressed {
			return expired, nil
		}
	}
}

// reconcileHeld repairs seats stuck in HELD after their booking already
// resolved. The row CAS in a release or confirm can win and then crash
// before the seat writes land; nothing revisits those seats through the
// expiry scan because the booking is no longer RESERVED. A terminal
// owner gets its seats back to AVAILABLE, a CONFIRMED owner gets the
// interrupted HELD to BOOKED commit finished. In-flight owners
// (PENDING, RESERVED) are left alone, as are holds younger than the
// grace window, which may not have attached their seats yet.
func (s *sweeperService) reconcileHeld(ctx context.Context) error {
	owners, err := s.repo.BookingSeat.FindHeldSeatOwners(ctx, time.Now().Add(-s.grace), sweepBatchSize)
	if err != nil {
		return fmt.Errorf("find held seat owners: %w", err)
	}

	type orphaned struct {
		eventID uuid.UUID
		userID  uuid.UUID
		seats   []uuid.UUID
	}
	released := make(map[uuid.UUID]*orphaned)

	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return err
		}

		var to entity.SeatStatus
		switch {
		case owner.BookingStatus.Terminal():
			to = entity.SeatStatusAvailable
		case owner.BookingStatus == entity.BookingStatusConfirmed:
			to = entity.SeatStatusBooked
		default:
			continue
		}

		_, err := s.repo.Seat.Transition(ctx, repository.Transition{
			SeatID:          owner.SeatID,
			ExpectedVersion: owner.SeatVersion,
			From:            entity.SeatStatusHeld,
			To:              to,
		})
		if err != nil {
			if errors.Is(err, repository.ErrVersionConflict) || errors.Is(err, repository.ErrInvalidState) {
				continue
			}
			return fmt.Errorf("reconcile seat %s: %w", owner.SeatID, err)
		}
		s.log.Info("repaired stranded held seat",
			zap.String("seat_id", owner.SeatID.String()),
			zap.String("booking_id", owner.BookingID.String()),
			zap.String("seat_status", string(to)),
		)

		if to != entity.SeatStatusAvailable {
			continue
		}
		o := released[owner.BookingID]
		if o == nil {
			o = &orphaned{eventID: owner.EventID, userID: owner.UserID}
			released[owner.BookingID] = o
		}
		o.seats = append(o.seats, owner.SeatID)
	}

	for bookingID, o := range released {
		s.events.Publish(ctx, queue.Event{
			Name:      queue.EventSeatReleased,
			EventID:   o.eventID,
			BookingID: bookingID,
			UserID:    o.userID,
			SeatIDs:   o.seats,
			Timestamp: time.Now(),
		})
		s.comp.promoteNext(ctx, o.eventID)
	}
	return nil
}
