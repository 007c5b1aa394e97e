package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sriman99/Evently-Challenge/internal/data/entity"
	"github.com/sriman99/Evently-Challenge/internal/data/repository"
	"github.com/sriman99/Evently-Challenge/internal/queue"
)

// compensator rolls a booking back and returns its seats to the pool. It
// is shared between the booking orchestrator (cancellation, payment
// failure) and the expiry sweeper, and every path through it is safe to
// re-run: the booking-row status CAS decides a single winner, and each
// seat release tolerates having already been applied by someone else.
type compensator struct {
	repo          *repository.Repository
	events        queue.Publisher
	promoteWindow time.Duration
	log           *zap.Logger
}

// release moves a booking from `from` to the terminal status `to` and
// frees its seats. Returns false when the booking-row CAS lost, meaning
// another actor (a confirm, a cancel, or a sweep) already resolved this
// booking; in that case nothing else is touched.
func (c *compensator) release(ctx context.Context, booking *entity.Booking, from, to entity.BookingStatus, seatFrom entity.SeatStatus) (bool, error) {
	won, err := c.repo.Booking.Finalize(ctx, booking.ID, from, to, time.Now())
	if err != nil {
		return false, fmt.Errorf("finalize booking: %w", err)
	}
	if !won {
		return false, nil
	}

	released, err := c.releaseSeats(ctx, booking.ID, seatFrom)
	if err != nil {
		return true, err
	}

	if len(released) > 0 {
		c.events.Publish(ctx, queue.Event{
			Name:      queue.EventSeatReleased,
			EventID:   booking.EventID,
			BookingID: booking.ID,
			UserID:    booking.UserID,
			SeatIDs:   released,
			Timestamp: time.Now(),
		})
		c.promoteNext(ctx, booking.EventID)
	}
	return true, nil
}

// releaseSeats returns every seat of the booking still in `from` back to
// AVAILABLE. Releases carry fencing token zero: they act on behalf of no
// grant, so the version guard alone decides. A seat whose CAS is rejected
// has already moved on (typically released by an earlier partial run) and
// is skipped.
func (c *compensator) releaseSeats(ctx context.Context, bookingID uuid.UUID, from entity.SeatStatus) ([]uuid.UUID, error) {
	rows, err := c.repo.BookingSeat.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("load booking seats: %w", err)
	}

	released := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		seat, err := c.repo.Seat.FindByID(ctx, row.SeatID)
		if err != nil {
			return released, fmt.Errorf("load seat %s: %w", row.SeatID, err)
		}
		if seat == nil || seat.Status != from {
			continue
		}

		_, err = c.repo.Seat.Transition(ctx, repository.Transition{
			SeatID:          seat.ID,
			ExpectedVersion: seat.Version,
			From:            from,
			To:              entity.SeatStatusAvailable,
		})
		if err != nil {
			if errors.Is(err, repository.ErrVersionConflict) || errors.Is(err, repository.ErrInvalidState) {
				c.log.Warn("seat already moved during release",
					zap.String("seat_id", seat.ID.String()),
					zap.String("booking_id", bookingID.String()))
				continue
			}
			return released, fmt.Errorf("release seat %s: %w", seat.ID, err)
		}
		released = append(released, seat.ID)
	}
	return released, nil
}

// promoteNext pops the head of the event's waitlist now that a seat is
// back in the pool. The promoted user gets a priority window to attempt
// a booking through the normal flow; promotion itself never books.
// Promotion failures never fail the release that triggered them.
func (c *compensator) promoteNext(ctx context.Context, eventID uuid.UUID) {
	now := time.Now()
	entry, err := c.repo.Waitlist.PromoteNext(ctx, eventID)
	if err != nil {
		c.log.Error("waitlist promotion failed", zap.String("event_id", eventID.String()), zap.Error(err))
		return
	}
	if entry == nil {
		return
	}

	claimUntil := now.Add(c.promoteWindow)
	c.events.Publish(ctx, queue.Event{
		Name:       queue.EventWaitlistPromoted,
		EventID:    eventID,
		UserID:     entry.UserID,
		Timestamp:  now,
		ClaimUntil: claimUntil,
	})
	c.log.Info("waitlist entry promoted",
		zap.String("event_id", eventID.String()),
		zap.String("user_id", entry.UserID.String()),
		zap.Time("claim_until", claimUntil))
}
