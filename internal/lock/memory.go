package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryHold struct {
	grantID   string
	expiresAt time.Time
}

// MemoryManager is the in-process lock manager used for single-node
// deployments and tests. Expiry is checked lazily on every operation, so
// no janitor goroutine is needed.
type MemoryManager struct {
	mu        sync.Mutex
	holds     map[uuid.UUID]memoryHold
	nextToken int64
}

func NewMemoryManager() *MemoryManager {
	return &MemoryManager{
		holds: make(map[uuid.UUID]memoryHold),
	}
}

func (m *MemoryManager) Acquire(ctx context.Context, seatIDs []uuid.UUID, ttl time.Duration) (*Grant, error) {
	sorted := sortSeatIDs(seatIDs)
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var conflicting []uuid.UUID
	for _, seatID := range sorted {
		if hold, ok := m.holds[seatID]; ok && hold.expiresAt.After(now) {
			conflicting = append(conflicting, seatID)
		}
	}
	if len(conflicting) > 0 {
		return nil, &DeniedError{Conflicting: conflicting}
	}

	m.nextToken++
	grant := &Grant{
		ID:        uuid.New().String(),
		Token:     m.nextToken,
		SeatIDs:   sorted,
		ExpiresAt: now.Add(ttl),
	}

	for _, seatID := range sorted {
		m.holds[seatID] = memoryHold{grantID: grant.ID, expiresAt: grant.ExpiresAt}
	}

	return grant, nil
}

func (m *MemoryManager) Release(ctx context.Context, grant *Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, seatID := range grant.SeatIDs {
		if hold, ok := m.holds[seatID]; ok && hold.grantID == grant.ID {
			delete(m.holds, seatID)
		}
	}

	return nil
}

func (m *MemoryManager) Renew(ctx context.Context, grant *Grant, ttl time.Duration) error {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Verify full ownership before extending anything: a grant that lost
	// even one seat must not sneak its TTL forward on the rest.
	for _, seatID := range grant.SeatIDs {
		hold, ok := m.holds[seatID]
		if !ok || hold.grantID != grant.ID || !hold.expiresAt.After(now) {
			return ErrNotHeld
		}
	}

	expiresAt := now.Add(ttl)
	for _, seatID := range grant.SeatIDs {
		m.holds[seatID] = memoryHold{grantID: grant.ID, expiresAt: expiresAt}
	}
	grant.ExpiresAt = expiresAt

	return nil
}
