package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seatSet(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func TestMemoryManager_AcquireAndRelease(t *testing.T) {
	m := NewMemoryManager()
	ctx := context.Background()
	seats := seatSet(3)

	grant, err := m.Acquire(ctx, seats, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, grant)
	assert.Len(t, grant.SeatIDs, 3)
	assert.Positive(t, grant.Token)

	// Overlapping set is denied while the grant lives.
	_, err = m.Acquire(ctx, seats[1:2], time.Minute)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDenied)

	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, []uuid.UUID{seats[1]}, denied.Conflicting)

	require.NoError(t, m.Release(ctx, grant))

	_, err = m.Acquire(ctx, seats, time.Minute)
	assert.NoError(t, err)
}

func TestMemoryManager_AcquireAllOrNothing(t *testing.T) {
	m := NewMemoryManager()
	ctx := context.Background()
	seats := seatSet(4)

	_, err := m.Acquire(ctx, seats[2:3], time.Minute)
	require.NoError(t, err)

	// One blocked seat denies the whole request and leaves the other
	// three unclaimed.
	_, err = m.Acquire(ctx, seats, time.Minute)
	require.ErrorIs(t, err, ErrDenied)

	_, err = m.Acquire(ctx, seats[:2], time.Minute)
	assert.NoError(t, err)
	_, err = m.Acquire(ctx, seats[3:], time.Minute)
	assert.NoError(t, err)
}

func TestMemoryManager_TokensAreMonotonic(t *testing.T) {
	m := NewMemoryManager()
	ctx := context.Background()

	var last int64
	for i := 0; i < 5; i++ {
		grant, err := m.Acquire(ctx, seatSet(1), time.Minute)
		require.NoError(t, err)
		assert.Greater(t, grant.Token, last)
		last = grant.Token
	}
}

func TestMemoryManager_ExpiredHoldIsReacquirable(t *testing.T) {
	m := NewMemoryManager()
	ctx := context.Background()
	seats := seatSet(1)

	stale, err := m.Acquire(ctx, seats, -time.Second)
	require.NoError(t, err)

	fresh, err := m.Acquire(ctx, seats, time.Minute)
	require.NoError(t, err)
	assert.Greater(t, fresh.Token, stale.Token)

	// The lapsed grant cannot renew its way back in.
	assert.ErrorIs(t, m.Renew(ctx, stale, time.Minute), ErrNotHeld)
}

func TestMemoryManager_ReleaseDoesNotTouchNewOwner(t *testing.T) {
	m := NewMemoryManager()
	ctx := context.Background()
	seats := seatSet(1)

	stale, err := m.Acquire(ctx, seats, -time.Second)
	require.NoError(t, err)
	fresh, err := m.Acquire(ctx, seats, time.Minute)
	require.NoError(t, err)

	// The stale grant releasing must not free the seat out from under
	// the new owner.
	require.NoError(t, m.Release(ctx, stale))
	_, err = m.Acquire(ctx, seats, time.Minute)
	assert.ErrorIs(t, err, ErrDenied)

	require.NoError(t, m.Release(ctx, fresh))
	_, err = m.Acquire(ctx, seats, time.Minute)
	assert.NoError(t, err)
}

func TestMemoryManager_Renew(t *testing.T) {
	m := NewMemoryManager()
	ctx := context.Background()

	grant, err := m.Acquire(ctx, seatSet(2), time.Minute)
	require.NoError(t, err)

	before := grant.ExpiresAt
	require.NoError(t, m.Renew(ctx, grant, time.Hour))
	assert.True(t, grant.ExpiresAt.After(before))
}

func TestMemoryManager_ConcurrentContention(t *testing.T) {
	m := NewMemoryManager()
	ctx := context.Background()
	seats := seatSet(5)

	// Many goroutines race for overlapping subsets; exactly the winners
	// whose full sets were free may hold, never two holders per seat.
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			subset := seats[i%len(seats):]
			grant, err := m.Acquire(ctx, subset, time.Minute)
			if err != nil {
				var denied *DeniedError
				if !errors.As(err, &denied) {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			mu.Lock()
			winners++
			mu.Unlock()
			_ = grant
		}(i)
	}
	wg.Wait()

	// Every subset includes the tail seat, so exactly one goroutine can
	// have won.
	assert.Equal(t, 1, winners)
	_, err := m.Acquire(ctx, seats[len(seats)-1:], time.Minute)
	assert.ErrorIs(t, err, ErrDenied)
}
