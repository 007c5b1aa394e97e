// Package lock implements the reservation lock manager: short-lived,
// TTL-bounded exclusive holds over seat IDs used as a fast first line of
// defense before any durable write. Locks here are advisory — the seat
// store's CAS is the system of record for ownership.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ErrDenied is the sentinel behind DeniedError; callers branch with
// errors.Is and inspect the conflicting seats via errors.As.
var ErrDenied = errors.New("lock denied")

// ErrNotHeld is returned by Renew when the grant no longer owns every seat
// it was issued for (TTL lapsed and at least one lock was reassigned).
var ErrNotHeld = errors.New("lock no longer held")

// DeniedError reports which seats blocked an all-or-nothing acquisition.
type DeniedError struct {
	Conflicting []uuid.UUID
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("lock denied: %d seat(s) already held", len(e.Conflicting))
}

func (e *DeniedError) Unwrap() error { return ErrDenied }

// Grant is an active hold over a set of seats. Token is the fencing token:
// monotonically issued, attached to every durable write performed on behalf
// of this grant so the seat store can reject writes from a grant that is no
// longer current.
type Grant struct {
	ID        string
	Token     int64
	SeatIDs   []uuid.UUID
	ExpiresAt time.Time
}

// Manager is the lock manager contract. Acquire is all-or-nothing: if any
// seat in the set is already held the whole request is denied and partial
// locks taken during the attempt are released before returning.
type Manager interface {
	Acquire(ctx context.Context, seatIDs []uuid.UUID, ttl time.Duration) (*Grant, error)
	Release(ctx context.Context, grant *Grant) error
	Renew(ctx context.Context, grant *Grant, ttl time.Duration) error
}

// sortSeatIDs orders seat IDs deterministically so two requests contending
// for overlapping sets acquire sub-locks in the same order, which prevents
// deadlock between them.
func sortSeatIDs(seatIDs []uuid.UUID) []uuid.UUID {
	sorted := make([]uuid.UUID, len(seatIDs))
	copy(sorted, seatIDs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})
	return sorted
}
