// Package repository defines error values shared across repositories so the
// usecase layer can branch on failure modes with errors.Is instead of
// matching message strings.
package repository

import "errors"

// ErrVersionConflict is returned when a compare-and-swap write observed a
// version older than the stored one. Another writer got there first; the
// caller may retry the whole batch with fresh reads.
var ErrVersionConflict = errors.New("version conflict")

// ErrInvalidState is returned when the stored status does not match the
// transition's from-status, regardless of version. This marks an illegal
// transition (e.g. booked to held) as an explicit error rather than a
// silent overwrite.
var ErrInvalidState = errors.New("invalid state transition")

// ErrStaleGrant is returned when a write carries a fencing token older than
// one already applied to the row. The grant expired and the lock was handed
// to someone else.
var ErrStaleGrant = errors.New("stale lock grant")

// ErrDuplicate is returned when a unique constraint rejects an insert, such
// as joining a waitlist twice for the same event.
var ErrDuplicate = errors.New("duplicate entry")
