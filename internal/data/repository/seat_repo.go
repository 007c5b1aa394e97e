package repository

import (
	"context"
	"fmt"

	"github.com/sriman99/Evently-Challenge/internal/data/entity"
	"github.com/sriman99/Evently-Challenge/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Transition describes one CAS status change. FencingToken is the lock
// grant token backing the write, or 0 when the write is not performed on
// behalf of a grant (compensation and sweeps carry 0 and rely on the
// version guard alone). HeldBy records the holding user for writes into
// HELD and must be nil otherwise.
type Transition struct {
	SeatID          uuid.UUID
	ExpectedVersion int64
	From            entity.SeatStatus
	To              entity.SeatStatus
	FencingToken    int64
	HeldBy          *uuid.UUID
}

type SeatRepository interface {
	CreateBatch(ctx context.Context, seats []*entity.Seat) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Seat, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Seat, error)
	FindByEventID(ctx context.Context, eventID uuid.UUID) ([]*entity.Seat, error)
	CountByStatus(ctx context.Context, eventID uuid.UUID, status entity.SeatStatus) (int, error)

	// Transition performs a single CAS status change. It returns the new
	// version on success, ErrVersionConflict / ErrInvalidState / ErrStaleGrant
	// on rejection.
	Transition(ctx context.Context, tr Transition) (int64, error)

	// TransitionAll applies every transition inside one database transaction:
	// either all seats move together or none do. The first rejection aborts
	// and rolls back the batch.
	TransitionAll(ctx context.Context, trs []Transition) error
}

type seatRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewSeatRepository(db database.PgxIface, log *zap.Logger) SeatRepository {
	return &seatRepository{
		db:  db,
		log: log.With(zap.String("repository", "seat")),
	}
}

func (r *seatRepository) CreateBatch(ctx context.Context, seats []*entity.Seat) error {
	if len(seats) == 0 {
		return nil
	}

	query := `INSERT INTO seats (id, event_id, section, seat_row, seat_number, price, status, version, fencing_token, created_at, updated_at) VALUES `
	args := []interface{}{}

	for i, seat := range seats {
		if i > 0 {
			query += ", "
		}
		query += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			i*11+1, i*11+2, i*11+3, i*11+4, i*11+5, i*11+6, i*11+7, i*11+8, i*11+9, i*11+10, i*11+11)

		args = append(args,
			seat.ID,
			seat.EventID,
			seat.Section,
			seat.SeatRow,
			seat.SeatNumber,
			seat.Price,
			seat.Status,
			seat.Version,
			seat.FencingToken,
			seat.CreatedAt,
			seat.UpdatedAt,
		)
	}

	_, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to create batch seats",
			zap.Error(err),
			zap.Int("count", len(seats)),
		)
		return fmt.Errorf("create batch seats: %w", err)
	}

	return nil
}

const seatColumns = `id, event_id, section, seat_row, seat_number, price, status, version, fencing_token, held_by, created_at, updated_at`

func scanSeat(row pgx.Row) (*entity.Seat, error) {
	var seat entity.Seat
	err := row.Scan(
		&seat.ID,
		&seat.EventID,
		&seat.Section,
		&seat.SeatRow,
		&seat.SeatNumber,
		&seat.Price,
		&seat.Status,
		&seat.Version,
		&seat.FencingToken,
		&seat.HeldBy,
		&seat.CreatedAt,
		&seat.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &seat, nil
}

func (r *seatRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Seat, error) {
	query := `SELECT ` + seatColumns + ` FROM seats WHERE id = $1`

	seat, err := scanSeat(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find seat by ID",
			zap.Error(err),
			zap.String("seat_id", id.String()),
		)
		return nil, fmt.Errorf("find seat %s: %w", id.String(), err)
	}

	return seat, nil
}

func (r *seatRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Seat, error) {
	if len(ids) == 0 {
		return []*entity.Seat{}, nil
	}

	query := `SELECT ` + seatColumns + ` FROM seats WHERE id = ANY($1) ORDER BY section, seat_row, seat_number`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		r.log.Error("Failed to find seats by IDs",
			zap.Error(err),
			zap.Int("seat_count", len(ids)),
		)
		return nil, fmt.Errorf("find seats: %w", err)
	}
	defer rows.Close()

	return collectSeats(rows)
}

func (r *seatRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) ([]*entity.Seat, error) {
	query := `SELECT ` + seatColumns + ` FROM seats WHERE event_id = $1 ORDER BY section, seat_row, seat_number`

	rows, err := r.db.Query(ctx, query, eventID)
	if err != nil {
		r.log.Error("Failed to find seats by event ID",
			zap.Error(err),
			zap.String("event_id", eventID.String()),
		)
		return nil, fmt.Errorf("find seats for event %s: %w", eventID.String(), err)
	}
	defer rows.Close()

	return collectSeats(rows)
}

func collectSeats(rows pgx.Rows) ([]*entity.Seat, error) {
	var seats []*entity.Seat
	for rows.Next() {
		seat, err := scanSeat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan seat row: %w", err)
		}
		seats = append(seats, seat)
	}
	return seats, rows.Err()
}

// CountByStatus is the derived read path: availability is always counted
// from seat rows, never kept as a separate counter that could drift.
func (r *seatRepository) CountByStatus(ctx context.Context, eventID uuid.UUID, status entity.SeatStatus) (int, error) {
	query := `SELECT COUNT(*) FROM seats WHERE event_id = $1 AND status = $2`

	var count int
	err := r.db.QueryRow(ctx, query, eventID, status).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count seats by status",
			zap.Error(err),
			zap.String("event_id", eventID.String()),
			zap.String("status", string(status)),
		)
		return 0, fmt.Errorf("count seats for event %s: %w", eventID.String(), err)
	}

	return count, nil
}

// queryer covers both the pool and an open pgx.Tx.
type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *seatRepository) Transition(ctx context.Context, tr Transition) (int64, error) {
	return r.transition(ctx, r.db, tr)
}

func (r *seatRepository) TransitionAll(ctx context.Context, trs []Transition) error {
	if len(trs) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin seat transition batch: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, tr := range trs {
		if _, err := r.transition(ctx, tx, tr); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit seat transition batch: %w", err)
	}

	return nil
}

// transition runs one guarded UPDATE. When zero rows match, the current row
// is re-read to classify the rejection: wrong status beats wrong version,
// because an illegal transition must never be reported as a retryable
// conflict.
func (r *seatRepository) transition(ctx context.Context, q queryer, tr Transition) (int64, error) {
	// Writes without a grant (token 0) skip the fencing guard and leave the
	// stored token untouched via GREATEST.
	query := `
		UPDATE seats
		SET status = $4, version = version + 1,
		    fencing_token = GREATEST(fencing_token, $5),
		    held_by = $6, updated_at = NOW()
		WHERE id = $1 AND version = $2 AND status = $3
		  AND ($5 = 0 OR fencing_token <= $5)
	`

	result, err := q.Exec(ctx, query, tr.SeatID, tr.ExpectedVersion, tr.From, tr.To, tr.FencingToken, tr.HeldBy)
	if err != nil {
		r.log.Error("Seat transition failed",
			zap.Error(err),
			zap.String("seat_id", tr.SeatID.String()),
			zap.String("from", string(tr.From)),
			zap.String("to", string(tr.To)),
		)
		return 0, fmt.Errorf("transition seat %s: %w", tr.SeatID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return 0, r.classifyRejection(ctx, q, tr)
	}

	return tr.ExpectedVersion + 1, nil
}

func (r *seatRepository) classifyRejection(ctx context.Context, q queryer, tr Transition) error {
	var status entity.SeatStatus
	var version, fencingToken int64

	err := q.QueryRow(ctx, `SELECT status, version, fencing_token FROM seats WHERE id = $1`, tr.SeatID).
		Scan(&status, &version, &fencingToken)
	if err == pgx.ErrNoRows {
		return fmt.Errorf("seat %s does not exist: %w", tr.SeatID.String(), ErrInvalidState)
	}
	if err != nil {
		return fmt.Errorf("classify rejected transition for seat %s: %w", tr.SeatID.String(), err)
	}

	if status != tr.From {
		return fmt.Errorf("seat %s is %s, expected %s: %w", tr.SeatID.String(), status, tr.From, ErrInvalidState)
	}
	if tr.FencingToken > 0 && fencingToken > tr.FencingToken {
		return fmt.Errorf("seat %s already written by token %d: %w", tr.SeatID.String(), fencingToken, ErrStaleGrant)
	}
	return fmt.Errorf("seat %s at version %d, expected %d: %w", tr.SeatID.String(), version, tr.ExpectedVersion, ErrVersionConflict)
}
