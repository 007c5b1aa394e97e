package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sriman99/Evently-Challenge/internal/data/entity"
	"github.com/sriman99/Evently-Challenge/internal/data/repository"
	"github.com/sriman99/Evently-Challenge/internal/dto/request"
	"github.com/sriman99/Evently-Challenge/internal/dto/response"
	"github.com/sriman99/Evently-Challenge/internal/lock"
	"github.com/sriman99/Evently-Challenge/internal/queue"
	"github.com/sriman99/Evently-Challenge/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingService interface {
	// CreateBooking runs the reservation saga: advisory capacity check,
	// lock acquisition, atomic seat CAS into HELD, then RESERVED with a
	// hold deadline. Any failure after the booking row exists resolves it
	// to FAILED with the seats released.
	CreateBooking(ctx context.Context, userID string, req *request.CreateBookingRequest) (*response.BookingResponse, error)

	// ConfirmBooking charges the payment collaborator and commits the
	// seats. The booking-row CAS inside decides the race against the
	// expiry sweeper: exactly one of them wins.
	ConfirmBooking(ctx context.Context, userID, bookingID string, req *request.ConfirmBookingRequest) (*response.BookingResponse, error)

	// CancelBooking is idempotent. Cancelling a RESERVED booking releases
	// its hold; cancelling a CONFIRMED booking returns the seats and
	// issues a refund; cancelling an already-resolved booking is a no-op.
	CancelBooking(ctx context.Context, userID, bookingID string) (*response.BookingResponse, error)

	GetBookingByID(ctx context.Context, userID, bookingID string) (*response.BookingResponse, error)
	GetUserBookings(ctx context.Context, userID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)
}

type bookingService struct {
	repo     *repository.Repository
	locks    lock.Manager
	capacity CapacityService
	payments PaymentGateway
	events   queue.Publisher
	comp     *compensator
	cfg      utils.BookingConfig
	log      *zap.Logger
}

func NewBookingService(
	repo *repository.Repository,
	locks lock.Manager,
	capacity CapacityService,
	payments PaymentGateway,
	events queue.Publisher,
	cfg utils.BookingConfig,
	log *zap.Logger,
) BookingService {
	return &bookingService{
		repo:     repo,
		locks:    locks,
		capacity: capacity,
		payments: payments,
		events:   events,
		comp:     &compensator{repo: repo, events: events, promoteWindow: cfg.PromoteWindow, log: log.With(zap.String("service", "compensation"))},
		cfg:      cfg,
		log:      log.With(zap.String("service", "booking")),
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, userID string, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format %s: %w", userID, err)
	}

	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		return nil, fmt.Errorf("invalid event ID format %s: %w", req.EventID, err)
	}

	seatIDs, err := parseSeatIDs(req.SeatIDs)
	if err != nil {
		return nil, err
	}
	if s.cfg.MaxSeatsPerReq > 0 && len(seatIDs) > s.cfg.MaxSeatsPerReq {
		return nil, fmt.Errorf("at most %d seats per booking", s.cfg.MaxSeatsPerReq)
	}

	event, err := s.repo.Event.FindByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("find event %s: %w", req.EventID, err)
	}
	if event == nil {
		return nil, ErrEventNotFound
	}

	if err := s.capacity.CheckCapacity(ctx, eventID, len(seatIDs)); err != nil {
		return nil, err
	}

	seats, err := s.loadBookableSeats(ctx, eventID, seatIDs)
	if err != nil {
		return nil, err
	}

	totalAmount := 0.0
	for _, seat := range seats {
		totalAmount += seat.Price
	}

	now := time.Now()
	booking := &entity.Booking{
		Base: entity.Base{
			ID:        utils.GenerateUUID(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingCode: utils.GenerateBookingCode(),
		UserID:      userUUID,
		EventID:     eventID,
		TotalAmount: totalAmount,
		Status:      entity.BookingStatusPending,
	}
	if err := s.repo.Booking.Create(ctx, booking); err != nil {
		return nil, err
	}

	grant, err := s.locks.Acquire(ctx, seatIDs, s.cfg.HoldTTL)
	if err != nil {
		s.resolveFailed(ctx, booking)
		if errors.Is(err, lock.ErrDenied) {
			s.log.Info("lock acquisition denied",
				zap.String("booking_id", booking.ID.String()),
				zap.String("event_id", eventID.String()),
			)
			return nil, fmt.Errorf("%v: %w", err, ErrSeatUnavailable)
		}
		return nil, fmt.Errorf("acquire seat locks: %w", err)
	}

	seats, err = s.holdSeats(ctx, grant, userUUID, eventID, seatIDs, seats)
	if err != nil {
		s.releaseLocks(ctx, grant)
		s.resolveFailed(ctx, booking)
		return nil, err
	}

	if err := s.attachSeats(ctx, booking, seats); err != nil {
		s.rollbackHold(ctx, booking, seats)
		s.releaseLocks(ctx, grant)
		s.resolveFailed(ctx, booking)
		return nil, err
	}

	expiresAt := now.Add(s.cfg.HoldTTL)
	reserved, err := s.repo.Booking.MarkReserved(ctx, booking.ID, expiresAt)
	if err != nil || !reserved {
		s.rollbackHold(ctx, booking, seats)
		s.releaseLocks(ctx, grant)
		s.resolveFailed(ctx, booking)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("booking %s left pending state concurrently", booking.ID.String())
	}
	booking.Status = entity.BookingStatusReserved
	booking.ExpiresAt = &expiresAt

	// From here the HELD seat status is what protects the reservation
	// while the user completes payment, so the advisory locks can go.
	s.releaseLocks(ctx, grant)

	s.events.Publish(ctx, queue.Event{
		Name:      queue.EventSeatHeld,
		EventID:   eventID,
		BookingID: booking.ID,
		UserID:    userUUID,
		SeatIDs:   seatIDs,
		Timestamp: time.Now(),
	})

	s.log.Info("booking reserved",
		zap.String("booking_id", booking.ID.String()),
		zap.String("booking_code", booking.BookingCode),
		zap.Int("seats", len(seats)),
		zap.Time("expires_at", expiresAt),
	)

	return response.BookingToResponse(booking, seats), nil
}

// holdSeats moves every requested seat AVAILABLE -> HELD in one atomic
// batch, stamping the grant's fencing token. A version conflict re-reads
// the seats and retries a bounded number of times while still holding the
// locks; any other rejection, or retry exhaustion, surfaces as
// ErrSeatUnavailable.
func (s *bookingService) holdSeats(ctx context.Context, grant *lock.Grant, userID, eventID uuid.UUID, seatIDs []uuid.UUID, seats []*entity.Seat) ([]*entity.Seat, error) {
	attempts := s.cfg.CommitRetries
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; ; attempt++ {
		trs := make([]repository.Transition, len(seats))
		for i, seat := range seats {
			trs[i] = repository.Transition{
				SeatID:          seat.ID,
				ExpectedVersion: seat.Version,
				From:            entity.SeatStatusAvailable,
				To:              entity.SeatStatusHeld,
				FencingToken:    grant.Token,
				HeldBy:          &userID,
			}
		}

		err := s.repo.Seat.TransitionAll(ctx, trs)
		if err == nil {
			held := make([]*entity.Seat, len(seats))
			for i, seat := range seats {
				copied := *seat
				copied.Status = entity.SeatStatusHeld
				copied.Version = seat.Version + 1
				copied.HeldBy = &userID
				held[i] = &copied
			}
			return held, nil
		}

		if !errors.Is(err, repository.ErrVersionConflict) || attempt >= attempts {
			s.log.Info("seat hold rejected",
				zap.Error(err),
				zap.Int("attempt", attempt),
			)
			return nil, fmt.Errorf("%v: %w", err, ErrSeatUnavailable)
		}

		seats, err = s.loadBookableSeats(ctx, eventID, seatIDs)
		if err != nil {
			return nil, err
		}
	}
}

// loadBookableSeats fetches the requested seats and checks they all exist,
// belong to the event and are currently AVAILABLE. The check is advisory;
// the CAS is what actually enforces it.
func (s *bookingService) loadBookableSeats(ctx context.Context, eventID uuid.UUID, seatIDs []uuid.UUID) ([]*entity.Seat, error) {
	seats, err := s.repo.Seat.FindByIDs(ctx, seatIDs)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*entity.Seat, len(seats))
	for _, seat := range seats {
		byID[seat.ID] = seat
	}

	ordered := make([]*entity.Seat, 0, len(seatIDs))
	for _, id := range seatIDs {
		seat, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("seat %s not found: %w", id.String(), ErrSeatUnavailable)
		}
		if seat.EventID != eventID {
			return nil, fmt.Errorf("seat %s does not belong to event %s: %w", id.String(), eventID.String(), ErrSeatUnavailable)
		}
		if seat.Status != entity.SeatStatusAvailable {
			return nil, fmt.Errorf("seat %s is %s: %w", id.String(), seat.Status, ErrSeatUnavailable)
		}
		ordered = append(ordered, seat)
	}
	return ordered, nil
}

func (s *bookingService) attachSeats(ctx context.Context, booking *entity.Booking, seats []*entity.Seat) error {
	rows := make([]*entity.BookingSeat, len(seats))
	for i, seat := range seats {
		rows[i] = &entity.BookingSeat{
			BaseSimple: entity.BaseSimple{
				ID:        utils.GenerateUUID(),
				CreatedAt: time.Now(),
			},
			BookingID: booking.ID,
			SeatID:    seat.ID,
			Price:     seat.Price,
		}
	}
	return s.repo.BookingSeat.CreateBatch(ctx, rows)
}

// rollbackHold undoes a successful HELD batch when a later saga step
// fails, announcing the freed seats the same way every other release
// path does so waiting users hear about them. Seat failures here are
// logged and left to the sweeper's reconciliation pass.
func (s *bookingService) rollbackHold(ctx context.Context, booking *entity.Booking, seats []*entity.Seat) {
	released := make([]uuid.UUID, 0, len(seats))
	for _, seat := range seats {
		_, err := s.repo.Seat.Transition(ctx, repository.Transition{
			SeatID:          seat.ID,
			ExpectedVersion: seat.Version,
			From:            entity.SeatStatusHeld,
			To:              entity.SeatStatusAvailable,
		})
		if err != nil {
			if !errors.Is(err, repository.ErrVersionConflict) && !errors.Is(err, repository.ErrInvalidState) {
				s.log.Error("failed to roll back seat hold",
					zap.Error(err),
					zap.String("seat_id", seat.ID.String()),
				)
			}
			continue
		}
		released = append(released, seat.ID)
	}

	if len(released) == 0 {
		return
	}
	s.events.Publish(ctx, queue.Event{
		Name:      queue.EventSeatReleased,
		EventID:   booking.EventID,
		BookingID: booking.ID,
		UserID:    booking.UserID,
		SeatIDs:   released,
		Timestamp: time.Now(),
	})
	s.comp.promoteNext(ctx, booking.EventID)
}

func (s *bookingService) releaseLocks(ctx context.Context, grant *lock.Grant) {
	if err := s.locks.Release(ctx, grant); err != nil {
		s.log.Warn("failed to release seat locks", zap.Error(err), zap.String("grant_id", grant.ID))
	}
}

func (s *bookingService) resolveFailed(ctx context.Context, booking *entity.Booking) {
	won, err := s.repo.Booking.Finalize(ctx, booking.ID, entity.BookingStatusPending, entity.BookingStatusFailed, time.Now())
	if err != nil {
		s.log.Error("failed to mark booking failed", zap.Error(err), zap.String("booking_id", booking.ID.String()))
		return
	}
	if won {
		booking.Status = entity.BookingStatusFailed
	}
}

func (s *bookingService) ConfirmBooking(ctx context.Context, userID, bookingID string, req *request.ConfirmBookingRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Confirm booking validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	booking, err := s.loadOwnedBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}

	switch booking.Status {
	case entity.BookingStatusReserved:
		// proceed
	case entity.BookingStatusConfirmed:
		// Idempotent: a retried confirm of an already-confirmed booking
		// succeeds without touching the gateway again.
		return s.toResponse(ctx, booking)
	case entity.BookingStatusExpired:
		return nil, ErrHoldExpired
	default:
		return nil, fmt.Errorf("booking %s is %s: %w", bookingID, booking.Status, ErrNotConfirmable)
	}

	now := time.Now()
	if booking.ExpiresAt != nil && now.After(*booking.ExpiresAt) {
		// The hold lapsed but the sweeper has not visited yet. Expire it
		// here rather than confirming a dead hold.
		won, err := s.comp.release(ctx, booking, entity.BookingStatusReserved, entity.BookingStatusExpired, entity.SeatStatusHeld)
		if err != nil {
			s.log.Error("failed to expire lapsed booking", zap.Error(err), zap.String("booking_id", bookingID))
		}
		if won {
			s.publishLifecycle(ctx, queue.EventBookingExpired, booking)
		}
		return nil, ErrHoldExpired
	}

	if err := s.payments.Authorize(ctx, booking.ID, booking.TotalAmount, req.PaymentRef); err != nil {
		if _, cerr := s.comp.release(ctx, booking, entity.BookingStatusReserved, entity.BookingStatusCancelled, entity.SeatStatusHeld); cerr != nil {
			s.log.Error("compensation after payment failure incomplete", zap.Error(cerr), zap.String("booking_id", bookingID))
		}
		return nil, fmt.Errorf("payment for booking %s: %w", bookingID, err)
	}

	// Single winner point against the sweeper: whoever flips the booking
	// row first owns the seats' fate.
	won, err := s.repo.Booking.Confirm(ctx, booking.ID, req.PaymentRef, now)
	if err != nil {
		return nil, err
	}
	if !won {
		// The sweeper expired this booking between our checks and the CAS.
		// The payment was authorized against a lost hold, so hand it back.
		if rerr := s.payments.Refund(ctx, booking.ID, booking.TotalAmount, req.PaymentRef); rerr != nil {
			s.log.Error("refund after lost confirm race failed", zap.Error(rerr), zap.String("booking_id", bookingID))
		}
		return nil, ErrHoldExpired
	}
	booking.Status = entity.BookingStatusConfirmed
	booking.ConfirmedAt = &now
	booking.PaymentRef = &req.PaymentRef

	seats, err := s.bookingSeats(ctx, booking.ID)
	if err != nil {
		return nil, err
	}

	trs := make([]repository.Transition, len(seats))
	for i, seat := range seats {
		trs[i] = repository.Transition{
			SeatID:          seat.ID,
			ExpectedVersion: seat.Version,
			From:            entity.SeatStatusHeld,
			To:              entity.SeatStatusBooked,
		}
	}
	if err := s.repo.Seat.TransitionAll(ctx, trs); err != nil {
		// The sweeper's reconciliation finishes interrupted commits for
		// confirmed bookings, so the batch may have landed already. Only a
		// batch that is genuinely not BOOKED is a failure.
		committed, lerr := s.bookingSeats(ctx, booking.ID)
		if lerr != nil || !allBooked(committed, len(seats)) {
			s.log.Error("seat commit failed after booking confirmation",
				zap.Error(err),
				zap.String("booking_id", bookingID),
			)
			return nil, fmt.Errorf("commit seats for booking %s: %w", bookingID, err)
		}
		seats = committed
	} else {
		for _, seat := range seats {
			seat.Status = entity.SeatStatusBooked
			seat.Version++
		}
	}

	s.publishLifecycle(ctx, queue.EventBookingConfirmed, booking)
	s.log.Info("booking confirmed",
		zap.String("booking_id", bookingID),
		zap.String("booking_code", booking.BookingCode),
	)

	return response.BookingToResponse(booking, seats), nil
}

func (s *bookingService) CancelBooking(ctx context.Context, userID, bookingID string) (*response.BookingResponse, error) {
	booking, err := s.loadOwnedBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	switch booking.Status {
	case entity.BookingStatusPending:
		// No seats committed yet; just resolve the row.
		won, err := s.repo.Booking.Finalize(ctx, booking.ID, entity.BookingStatusPending, entity.BookingStatusCancelled, now)
		if err != nil {
			return nil, err
		}
		if won {
			booking.Status = entity.BookingStatusCancelled
			booking.CancelledAt = &now
		}

	case entity.BookingStatusReserved:
		won, err := s.comp.release(ctx, booking, entity.BookingStatusReserved, entity.BookingStatusCancelled, entity.SeatStatusHeld)
		if err != nil {
			return nil, err
		}
		if won {
			booking.Status = entity.BookingStatusCancelled
			booking.CancelledAt = &now
		}

	case entity.BookingStatusConfirmed:
		won, err := s.comp.release(ctx, booking, entity.BookingStatusConfirmed, entity.BookingStatusCancelled, entity.SeatStatusBooked)
		if err != nil {
			return nil, err
		}
		if won {
			booking.Status = entity.BookingStatusCancelled
			booking.CancelledAt = &now
			ref := ""
			if booking.PaymentRef != nil {
				ref = *booking.PaymentRef
			}
			if rerr := s.payments.Refund(ctx, booking.ID, booking.TotalAmount, ref); rerr != nil {
				s.log.Error("refund for cancelled booking failed", zap.Error(rerr), zap.String("booking_id", bookingID))
			}
		}

	default:
		// Already resolved; cancelling again changes nothing.
	}

	if booking.Status.Terminal() {
		s.log.Info("booking cancelled", zap.String("booking_id", bookingID), zap.String("status", string(booking.Status)))
	}
	return s.toResponse(ctx, booking)
}

func (s *bookingService) GetBookingByID(ctx context.Context, userID, bookingID string) (*response.BookingResponse, error) {
	booking, err := s.loadOwnedBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, booking)
}

func (s *bookingService) GetUserBookings(ctx context.Context, userID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format %s: %w", userID, err)
	}

	bookings, err := s.repo.Booking.FindByUserID(ctx, userUUID, req.Limit(), req.Offset())
	if err != nil {
		return nil, err
	}

	total, err := s.repo.Booking.CountByUserID(ctx, userUUID)
	if err != nil {
		return nil, err
	}

	items := make([]response.BookingResponse, 0, len(bookings))
	for _, booking := range bookings {
		seats, err := s.bookingSeats(ctx, booking.ID)
		if err != nil {
			return nil, err
		}
		items = append(items, *response.BookingToResponse(booking, seats))
	}

	return response.NewPaginatedResponse(items, req.Page, req.Limit(), total), nil
}

func (s *bookingService) loadOwnedBooking(ctx context.Context, userID, bookingID string) (*entity.Booking, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format %s: %w", userID, err)
	}
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("invalid booking ID format %s: %w", bookingID, err)
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if booking.UserID != userUUID {
		return nil, ErrNotOwner
	}
	return booking, nil
}

func (s *bookingService) bookingSeats(ctx context.Context, bookingID uuid.UUID) ([]*entity.Seat, error) {
	rows, err := s.repo.BookingSeat.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.SeatID
	}
	return s.repo.Seat.FindByIDs(ctx, ids)
}

func (s *bookingService) toResponse(ctx context.Context, booking *entity.Booking) (*response.BookingResponse, error) {
	seats, err := s.bookingSeats(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	return response.BookingToResponse(booking, seats), nil
}

func (s *bookingService) publishLifecycle(ctx context.Context, name string, booking *entity.Booking) {
	s.events.Publish(ctx, queue.Event{
		Name:      name,
		EventID:   booking.EventID,
		BookingID: booking.ID,
		UserID:    booking.UserID,
		Timestamp: time.Now(),
	})
}

func allBooked(seats []*entity.Seat, want int) bool {
	if len(seats) != want {
		return false
	}
	for _, seat := range seats {
		if seat.Status != entity.SeatStatusBooked {
			return false
		}
	}
	return true
}

func parseSeatIDs(raw []string) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{}, len(raw))
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid seat ID format %s: %w", s, err)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
