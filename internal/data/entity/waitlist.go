package entity

import (
	"github.com/google/uuid"
)

// WaitlistEntry queues a user for a sold-out event. Positions are
// sequential with no gaps; removal resequences the remaining entries.
// Promotion removes the entry; the claim window travels on the
// promotion event, not the row.
type WaitlistEntry struct {
	BaseSimple
	UserID   uuid.UUID `db:"user_id"`
	EventID  uuid.UUID `db:"event_id"`
	Position int       `db:"position"`
}
