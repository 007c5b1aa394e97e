package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sriman99/Evently-Challenge/internal/data/entity"
	"github.com/sriman99/Evently-Challenge/internal/data/repository"
	"github.com/sriman99/Evently-Challenge/internal/queue"

	"github.com/google/uuid"
)

// memStore backs in-memory fakes of every repository with the same CAS
// semantics the SQL implementations enforce, so the orchestrator's
// concurrency behavior can be exercised without a database.
type memStore struct {
	mu           sync.Mutex
	events       map[uuid.UUID]*entity.Event
	seats        map[uuid.UUID]*entity.Seat
	bookings     map[uuid.UUID]*entity.Booking
	bookingSeats []*entity.BookingSeat
	waitlist     map[uuid.UUID][]*entity.WaitlistEntry
}

func newMemStore() *memStore {
	return &memStore{
		events:   make(map[uuid.UUID]*entity.Event),
		seats:    make(map[uuid.UUID]*entity.Seat),
		bookings: make(map[uuid.UUID]*entity.Booking),
		waitlist: make(map[uuid.UUID][]*entity.WaitlistEntry),
	}
}

func (s *memStore) repository() *repository.Repository {
	return &repository.Repository{
		Event:       &memEventRepo{s},
		Seat:        &memSeatRepo{s},
		Booking:     &memBookingRepo{s},
		BookingSeat: &memBookingSeatRepo{s},
		Waitlist:    &memWaitlistRepo{s},
	}
}

func (s *memStore) seedEvent(seatCount int) (*entity.Event, []*entity.Seat) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	event := &entity.Event{
		Base:     entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name:     "Test Event",
		Venue:    "Test Venue",
		StartsAt: now.Add(24 * time.Hour),
	}
	s.events[event.ID] = event

	seats := make([]*entity.Seat, seatCount)
	for i := range seats {
		seat := &entity.Seat{
			Base:       entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
			EventID:    event.ID,
			Section:    "GA",
			SeatRow:    "A",
			SeatNumber: fmt.Sprintf("%d", i+1),
			Price:      50,
			Status:     entity.SeatStatusAvailable,
		}
		s.seats[seat.ID] = seat
		seats[i] = seat
	}
	return event, seats
}

func (s *memStore) seat(id uuid.UUID) *entity.Seat {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *s.seats[id]
	return &copied
}

func (s *memStore) booking(id uuid.UUID) *entity.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *s.bookings[id]
	return &copied
}

// enqueueWaitlist appends a waitlist entry directly, bypassing the
// sold-out precondition the service enforces.
func (s *memStore) enqueueWaitlist(eventID, userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waitlist[eventID] = append(s.waitlist[eventID], &entity.WaitlistEntry{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: time.Now()},
		UserID:     userID,
		EventID:    eventID,
		Position:   len(s.waitlist[eventID]) + 1,
	})
}

// grabSeat flips a seat to HELD directly, standing in for a concurrent
// writer that won the seat after another request loaded it.
func (s *memStore) grabSeat(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat := s.seats[id]
	seat.Status = entity.SeatStatusHeld
	seat.Version++
}

func (s *memStore) bookingsWithStatus(status entity.BookingStatus) []*entity.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Booking
	for _, booking := range s.bookings {
		if booking.Status == status {
			copied := *booking
			out = append(out, &copied)
		}
	}
	return out
}

func (s *memStore) expireBooking(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	past := time.Now().Add(-time.Minute)
	s.bookings[id].ExpiresAt = &past
}

// ==================== event repo ====================

type memEventRepo struct{ s *memStore }

func (r *memEventRepo) Create(ctx context.Context, event *entity.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	copied := *event
	r.s.events[event.ID] = &copied
	return nil
}

func (r *memEventRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	event, ok := r.s.events[id]
	if !ok {
		return nil, nil
	}
	copied := *event
	return &copied, nil
}

// ==================== seat repo ====================

type memSeatRepo struct{ s *memStore }

func (r *memSeatRepo) CreateBatch(ctx context.Context, seats []*entity.Seat) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, seat := range seats {
		copied := *seat
		r.s.seats[seat.ID] = &copied
	}
	return nil
}

func (r *memSeatRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Seat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seat, ok := r.s.seats[id]
	if !ok {
		return nil, nil
	}
	copied := *seat
	return &copied, nil
}

func (r *memSeatRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Seat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Seat
	for _, id := range ids {
		if seat, ok := r.s.seats[id]; ok {
			copied := *seat
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memSeatRepo) FindByEventID(ctx context.Context, eventID uuid.UUID) ([]*entity.Seat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Seat
	for _, seat := range r.s.seats {
		if seat.EventID == eventID {
			copied := *seat
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatNumber < out[j].SeatNumber })
	return out, nil
}

func (r *memSeatRepo) CountByStatus(ctx context.Context, eventID uuid.UUID, status entity.SeatStatus) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, seat := range r.s.seats {
		if seat.EventID == eventID && seat.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *memSeatRepo) Transition(ctx context.Context, tr repository.Transition) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.apply(tr)
}

func (r *memSeatRepo) TransitionAll(ctx context.Context, trs []repository.Transition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	// Validate the whole batch before mutating anything, mirroring the
	// transactional all-or-nothing behavior.
	for _, tr := range trs {
		if err := r.check(tr); err != nil {
			return err
		}
	}
	for _, tr := range trs {
		if _, err := r.apply(tr); err != nil {
			return err
		}
	}
	return nil
}

func (r *memSeatRepo) check(tr repository.Transition) error {
	seat, ok := r.s.seats[tr.SeatID]
	if !ok {
		return fmt.Errorf("seat %s does not exist: %w", tr.SeatID, repository.ErrInvalidState)
	}
	if seat.Status != tr.From {
		return fmt.Errorf("seat %s is %s, expected %s: %w", tr.SeatID, seat.Status, tr.From, repository.ErrInvalidState)
	}
	if tr.FencingToken > 0 && seat.FencingToken > tr.FencingToken {
		return fmt.Errorf("seat %s already written by token %d: %w", tr.SeatID, seat.FencingToken, repository.ErrStaleGrant)
	}
	if seat.Version != tr.ExpectedVersion {
		return fmt.Errorf("seat %s at version %d, expected %d: %w", tr.SeatID, seat.Version, tr.ExpectedVersion, repository.ErrVersionConflict)
	}
	return nil
}

func (r *memSeatRepo) apply(tr repository.Transition) (int64, error) {
	if err := r.check(tr); err != nil {
		return 0, err
	}
	seat := r.s.seats[tr.SeatID]
	seat.Status = tr.To
	seat.Version++
	if tr.FencingToken > seat.FencingToken {
		seat.FencingToken = tr.FencingToken
	}
	seat.HeldBy = tr.HeldBy
	seat.UpdatedAt = time.Now()
	return seat.Version, nil
}

// ==================== booking repo ====================

type memBookingRepo struct{ s *memStore }

func (r *memBookingRepo) Create(ctx context.Context, booking *entity.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	copied := *booking
	r.s.bookings[booking.ID] = &copied
	return nil
}

func (r *memBookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	booking, ok := r.s.bookings[id]
	if !ok {
		return nil, nil
	}
	copied := *booking
	return &copied, nil
}

func (r *memBookingRepo) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Booking
	for _, booking := range r.s.bookings {
		if booking.UserID == userID {
			copied := *booking
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memBookingRepo) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for _, booking := range r.s.bookings {
		if booking.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *memBookingRepo) MarkReserved(ctx context.Context, id uuid.UUID, expiresAt time.Time) (bool, error) {
	return r.cas(id, entity.BookingStatusPending, func(b *entity.Booking) {
		b.Status = entity.BookingStatusReserved
		b.ExpiresAt = &expiresAt
	})
}

func (r *memBookingRepo) Confirm(ctx context.Context, id uuid.UUID, paymentRef string, at time.Time) (bool, error) {
	return r.cas(id, entity.BookingStatusReserved, func(b *entity.Booking) {
		b.Status = entity.BookingStatusConfirmed
		b.ConfirmedAt = &at
		b.PaymentRef = &paymentRef
	})
}

func (r *memBookingRepo) Finalize(ctx context.Context, id uuid.UUID, from, to entity.BookingStatus, at time.Time) (bool, error) {
	return r.cas(id, from, func(b *entity.Booking) {
		b.Status = to
		b.CancelledAt = &at
	})
}

func (r *memBookingRepo) cas(id uuid.UUID, from entity.BookingStatus, mutate func(*entity.Booking)) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	booking, ok := r.s.bookings[id]
	if !ok || booking.Status != from {
		return false, nil
	}
	mutate(booking)
	booking.UpdatedAt = time.Now()
	return true, nil
}

func (r *memBookingRepo) FindExpired(ctx context.Context, before time.Time, limit int) ([]*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Booking
	for _, booking := range r.s.bookings {
		if booking.Status == entity.BookingStatusReserved && booking.ExpiresAt != nil && booking.ExpiresAt.Before(before) {
			copied := *booking
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// ==================== booking seat repo ====================

type memBookingSeatRepo struct{ s *memStore }

func (r *memBookingSeatRepo) CreateBatch(ctx context.Context, bookingSeats []*entity.BookingSeat) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, bs := range bookingSeats {
		copied := *bs
		r.s.bookingSeats = append(r.s.bookingSeats, &copied)
	}
	return nil
}

func (r *memBookingSeatRepo) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.BookingSeat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.BookingSeat
	for _, bs := range r.s.bookingSeats {
		if bs.BookingID == bookingID {
			copied := *bs
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memBookingSeatRepo) FindHeldSeatOwners(ctx context.Context, heldBefore time.Time, limit int) ([]*repository.HeldSeatOwner, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	// Rows are appended in creation order, so the last match per seat is
	// the newest booking referencing it.
	latest := make(map[uuid.UUID]uuid.UUID)
	for _, bs := range r.s.bookingSeats {
		latest[bs.SeatID] = bs.BookingID
	}

	var out []*repository.HeldSeatOwner
	for seatID, bookingID := range latest {
		seat, ok := r.s.seats[seatID]
		if !ok || seat.Status != entity.SeatStatusHeld || !seat.UpdatedAt.Before(heldBefore) {
			continue
		}
		booking, ok := r.s.bookings[bookingID]
		if !ok {
			continue
		}
		out = append(out, &repository.HeldSeatOwner{
			SeatID:        seat.ID,
			SeatVersion:   seat.Version,
			BookingID:     booking.ID,
			EventID:       booking.EventID,
			UserID:        booking.UserID,
			BookingStatus: booking.Status,
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// ==================== waitlist repo ====================

type memWaitlistRepo struct{ s *memStore }

func (r *memWaitlistRepo) Join(ctx context.Context, userID, eventID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, entry := range r.s.waitlist[eventID] {
		if entry.UserID == userID {
			return 0, repository.ErrDuplicate
		}
	}
	position := len(r.s.waitlist[eventID]) + 1
	r.s.waitlist[eventID] = append(r.s.waitlist[eventID], &entity.WaitlistEntry{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: time.Now()},
		UserID:     userID,
		EventID:    eventID,
		Position:   position,
	})
	return position, nil
}

func (r *memWaitlistRepo) Leave(ctx context.Context, userID, eventID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entries := r.s.waitlist[eventID]
	for i, entry := range entries {
		if entry.UserID == userID {
			r.s.waitlist[eventID] = append(entries[:i], entries[i+1:]...)
			r.resequence(eventID)
			return nil
		}
	}
	return nil
}

func (r *memWaitlistRepo) PromoteNext(ctx context.Context, eventID uuid.UUID) (*entity.WaitlistEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entries := r.s.waitlist[eventID]
	if len(entries) == 0 {
		return nil, nil
	}
	head := entries[0]
	r.s.waitlist[eventID] = entries[1:]
	r.resequence(eventID)
	copied := *head
	return &copied, nil
}

func (r *memWaitlistRepo) resequence(eventID uuid.UUID) {
	for i, entry := range r.s.waitlist[eventID] {
		entry.Position = i + 1
	}
}

func (r *memWaitlistRepo) FindPosition(ctx context.Context, userID, eventID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, entry := range r.s.waitlist[eventID] {
		if entry.UserID == userID {
			return entry.Position, nil
		}
	}
	return 0, nil
}

func (r *memWaitlistRepo) CountByEvent(ctx context.Context, eventID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.waitlist[eventID]), nil
}

// ==================== fault injection ====================

// flakySeatRepo wraps the seat fake so tests can make seat writes fail,
// simulating a crash between the booking-row CAS and the seat CAS, or
// run a callback just before a batch commit to model a concurrent
// writer slipping in between load and CAS.
type flakySeatRepo struct {
	repository.SeatRepository
	mu          sync.Mutex
	failWrites  bool
	beforeBatch func()
}

func (f *flakySeatRepo) setFailWrites(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrites = fail
}

func (f *flakySeatRepo) setBeforeBatch(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.beforeBatch = fn
}

func (f *flakySeatRepo) Transition(ctx context.Context, tr repository.Transition) (int64, error) {
	f.mu.Lock()
	fail := f.failWrites
	f.mu.Unlock()
	if fail {
		return 0, fmt.Errorf("seat store unavailable")
	}
	return f.SeatRepository.Transition(ctx, tr)
}

func (f *flakySeatRepo) TransitionAll(ctx context.Context, trs []repository.Transition) error {
	f.mu.Lock()
	fail := f.failWrites
	before := f.beforeBatch
	f.beforeBatch = nil
	f.mu.Unlock()
	if before != nil {
		before()
	}
	if fail {
		return fmt.Errorf("seat store unavailable")
	}
	return f.SeatRepository.TransitionAll(ctx, trs)
}

// flakyBookingSeatRepo lets tests fail the booking_seats insert that
// runs after the seats were already moved to HELD.
type flakyBookingSeatRepo struct {
	repository.BookingSeatRepository
	mu         sync.Mutex
	failCreate bool
}

func (f *flakyBookingSeatRepo) setFailCreate(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failCreate = fail
}

func (f *flakyBookingSeatRepo) CreateBatch(ctx context.Context, bookingSeats []*entity.BookingSeat) error {
	f.mu.Lock()
	fail := f.failCreate
	f.mu.Unlock()
	if fail {
		return fmt.Errorf("booking seat store unavailable")
	}
	return f.BookingSeatRepository.CreateBatch(ctx, bookingSeats)
}

// ==================== event capture ====================

// capturePublisher records published lifecycle events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []queue.Event
}

func (p *capturePublisher) Publish(ctx context.Context, event queue.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) named(name string) []queue.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []queue.Event
	for _, e := range p.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}
