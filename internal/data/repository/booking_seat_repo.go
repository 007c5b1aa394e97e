package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/sriman99/Evently-Challenge/internal/data/entity"
	"github.com/sriman99/Evently-Challenge/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HeldSeatOwner pairs a HELD seat with the most recent booking that
// references it. The sweeper uses it to find seats a half-finished
// compensation or commit left behind.
type HeldSeatOwner struct {
	SeatID        uuid.UUID
	SeatVersion   int64
	BookingID     uuid.UUID
	EventID       uuid.UUID
	UserID        uuid.UUID
	BookingStatus entity.BookingStatus
}

type BookingSeatRepository interface {
	CreateBatch(ctx context.Context, bookingSeats []*entity.BookingSeat) error
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.BookingSeat, error)

	// FindHeldSeatOwners lists every seat HELD since before `heldBefore`
	// together with the newest booking that references it. A HELD seat is
	// only legitimate while that booking is still in flight (PENDING or
	// RESERVED); any other owning status means a release or commit was
	// interrupted. The cutoff keeps holds that have not attached their
	// booking_seats rows yet out of the scan.
	FindHeldSeatOwners(ctx context.Context, heldBefore time.Time, limit int) ([]*HeldSeatOwner, error)
}

type bookingSeatRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingSeatRepository(db database.PgxIface, log *zap.Logger) BookingSeatRepository {
	return &bookingSeatRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking_seat")),
	}
}

func (r *bookingSeatRepository) CreateBatch(ctx context.Context, bookingSeats []*entity.BookingSeat) error {
	if len(bookingSeats) == 0 {
		return nil
	}

	query := `INSERT INTO booking_seats (id, booking_id, seat_id, price, created_at) VALUES `
	args := []interface{}{}

	for i, bs := range bookingSeats {
		if i > 0 {
			query += ", "
		}
		query += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)",
			i*5+1, i*5+2, i*5+3, i*5+4, i*5+5)

		args = append(args,
			bs.ID,
			bs.BookingID,
			bs.SeatID,
			bs.Price,
			bs.CreatedAt,
		)
	}

	_, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to create booking seats",
			zap.Error(err),
			zap.Int("count", len(bookingSeats)),
		)
		return fmt.Errorf("create booking seats: %w", err)
	}

	return nil
}

func (r *bookingSeatRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.BookingSeat, error) {
	query := `
		SELECT id, booking_id, seat_id, price, created_at
		FROM booking_seats
		WHERE booking_id = $1
	`

	rows, err := r.db.Query(ctx, query, bookingID)
	if err != nil {
		r.log.Error("Failed to find booking seats",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find seats for booking %s: %w", bookingID.String(), err)
	}
	defer rows.Close()

	var bookingSeats []*entity.BookingSeat
	for rows.Next() {
		var bs entity.BookingSeat
		err := rows.Scan(
			&bs.ID,
			&bs.BookingID,
			&bs.SeatID,
			&bs.Price,
			&bs.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan booking seat row", zap.Error(err))
			return nil, fmt.Errorf("scan booking seat row: %w", err)
		}
		bookingSeats = append(bookingSeats, &bs)
	}

	return bookingSeats, rows.Err()
}

func (r *bookingSeatRepository) FindHeldSeatOwners(ctx context.Context, heldBefore time.Time, limit int) ([]*HeldSeatOwner, error) {
	query := `
		SELECT DISTINCT ON (s.id)
			s.id, s.version, b.id, b.event_id, b.user_id, b.status
		FROM seats s
		JOIN booking_seats bs ON bs.seat_id = s.id
		JOIN bookings b ON b.id = bs.booking_id
		WHERE s.status = $1 AND s.updated_at < $2
		ORDER BY s.id, bs.created_at DESC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, entity.SeatStatusHeld, heldBefore, limit)
	if err != nil {
		r.log.Error("Failed to find held seat owners", zap.Error(err))
		return nil, fmt.Errorf("find held seat owners: %w", err)
	}
	defer rows.Close()

	var owners []*HeldSeatOwner
	for rows.Next() {
		var o HeldSeatOwner
		err := rows.Scan(
			&o.SeatID,
			&o.SeatVersion,
			&o.BookingID,
			&o.EventID,
			&o.UserID,
			&o.BookingStatus,
		)
		if err != nil {
			r.log.Error("Failed to scan held seat owner row", zap.Error(err))
			return nil, fmt.Errorf("scan held seat owner row: %w", err)
		}
		owners = append(owners, &o)
	}

	return owners, rows.Err()
}
