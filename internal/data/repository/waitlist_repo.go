package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/sriman99/Evently-Challenge/internal/data/entity"
	"github.com/sriman99/Evently-Challenge/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type WaitlistRepository interface {
	// Join appends the user at the tail of the event's queue and returns
	// the assigned position. A second join for the same (user, event)
	// returns ErrDuplicate.
	Join(ctx context.Context, userID, eventID uuid.UUID) (int, error)

	// Leave removes the user's entry and closes the gap in the positions
	// behind it. Leaving a waitlist you are not on is a no-op.
	Leave(ctx context.Context, userID, eventID uuid.UUID) error

	// PromoteNext pops the head of the queue and resequences the
	// remainder. Returns nil when the queue is empty.
	PromoteNext(ctx context.Context, eventID uuid.UUID) (*entity.WaitlistEntry, error)

	FindPosition(ctx context.Context, userID, eventID uuid.UUID) (int, error)
	CountByEvent(ctx context.Context, eventID uuid.UUID) (int, error)
}

type waitlistRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewWaitlistRepository(db database.PgxIface, log *zap.Logger) WaitlistRepository {
	return &waitlistRepository{
		db:  db,
		log: log.With(zap.String("repository", "waitlist")),
	}
}

func (r *waitlistRepository) Join(ctx context.Context, userID, eventID uuid.UUID) (int, error) {
	// Position assignment and insert run in one transaction so two joiners
	// cannot claim the same tail slot; the unique (user_id, event_id)
	// constraint rejects double joins.
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin waitlist join: %w", err)
	}
	defer tx.Rollback(ctx)

	var position int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM waitlist WHERE event_id = $1 FOR UPDATE`,
		eventID,
	).Scan(&position)
	if err != nil {
		return 0, fmt.Errorf("next waitlist position for event %s: %w", eventID.String(), err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO waitlist (id, user_id, event_id, position, created_at) VALUES ($1, $2, $3, $4, NOW())`,
		uuid.New(), userID, eventID, position,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("user %s already on waitlist for event %s: %w", userID.String(), eventID.String(), ErrDuplicate)
		}
		r.log.Error("Failed to join waitlist",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.String("event_id", eventID.String()),
		)
		return 0, fmt.Errorf("join waitlist for event %s: %w", eventID.String(), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit waitlist join: %w", err)
	}

	return position, nil
}

func (r *waitlistRepository) Leave(ctx context.Context, userID, eventID uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin waitlist leave: %w", err)
	}
	defer tx.Rollback(ctx)

	var position int
	err = tx.QueryRow(ctx,
		`DELETE FROM waitlist WHERE user_id = $1 AND event_id = $2 RETURNING position`,
		userID, eventID,
	).Scan(&position)
	if err == pgx.ErrNoRows {
		return nil
	}
	if err != nil {
		r.log.Error("Failed to leave waitlist",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.String("event_id", eventID.String()),
		)
		return fmt.Errorf("leave waitlist for event %s: %w", eventID.String(), err)
	}

	if err := r.resequence(ctx, tx, eventID, position); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit waitlist leave: %w", err)
	}

	return nil
}

func (r *waitlistRepository) PromoteNext(ctx context.Context, eventID uuid.UUID) (*entity.WaitlistEntry, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin waitlist promote: %w", err)
	}
	defer tx.Rollback(ctx)

	var entry entity.WaitlistEntry
	err = tx.QueryRow(ctx, `
		DELETE FROM waitlist
		WHERE id = (
			SELECT id FROM waitlist
			WHERE event_id = $1
			ORDER BY position
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, user_id, event_id, position, created_at
	`, eventID).Scan(&entry.ID, &entry.UserID, &entry.EventID, &entry.Position, &entry.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to promote waitlist head",
			zap.Error(err),
			zap.String("event_id", eventID.String()),
		)
		return nil, fmt.Errorf("promote waitlist for event %s: %w", eventID.String(), err)
	}

	if err := r.resequence(ctx, tx, eventID, entry.Position); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit waitlist promote: %w", err)
	}

	return &entry, nil
}

// resequence closes the gap left by a removed entry so positions stay
// sequential with no holes.
func (r *waitlistRepository) resequence(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, removedPosition int) error {
	_, err := tx.Exec(ctx,
		`UPDATE waitlist SET position = position - 1 WHERE event_id = $1 AND position > $2`,
		eventID, removedPosition,
	)
	if err != nil {
		return fmt.Errorf("resequence waitlist for event %s: %w", eventID.String(), err)
	}
	return nil
}

func (r *waitlistRepository) FindPosition(ctx context.Context, userID, eventID uuid.UUID) (int, error) {
	var position int
	err := r.db.QueryRow(ctx,
		`SELECT position FROM waitlist WHERE user_id = $1 AND event_id = $2`,
		userID, eventID,
	).Scan(&position)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("find waitlist position for event %s: %w", eventID.String(), err)
	}
	return position, nil
}

func (r *waitlistRepository) CountByEvent(ctx context.Context, eventID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM waitlist WHERE event_id = $1`, eventID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count waitlist for event %s: %w", eventID.String(), err)
	}
	return count, nil
}
