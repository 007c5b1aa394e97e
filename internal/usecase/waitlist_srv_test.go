package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitlistJoin_RequiresSoldOutEvent(t *testing.T) {
	env := newTestEnv(t)
	event, _ := env.store.seedEvent(2)

	_, err := env.svc.Waitlist.Join(context.Background(), uuid.New().String(), event.ID.String())
	assert.ErrorIs(t, err, ErrSeatsStillAvailable)
}

func TestWaitlistJoin_AssignsSequentialPositions(t *testing.T) {
	env := newTestEnv(t)
	event, seats := env.store.seedEvent(1)
	env.reserve(t, uuid.New(), event, seats)

	first, err := env.svc.Waitlist.Join(context.Background(), uuid.New().String(), event.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Position)

	second, err := env.svc.Waitlist.Join(context.Background(), uuid.New().String(), event.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 2, second.Position)
}

func TestWaitlistJoin_DuplicateKeepsPosition(t *testing.T) {
	env := newTestEnv(t)
	event, seats := env.store.seedEvent(1)
	env.reserve(t, uuid.New(), event, seats)
	userID := uuid.New()

	_, err := env.svc.Waitlist.Join(context.Background(), userID.String(), event.ID.String())
	require.NoError(t, err)

	_, err = env.svc.Waitlist.Join(context.Background(), userID.String(), event.ID.String())
	assert.ErrorIs(t, err, ErrAlreadyWaitlisted)

	pos, err := env.svc.Waitlist.Position(context.Background(), userID.String(), event.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, pos.Position)
}

func TestWaitlistLeave_ClosesTheGap(t *testing.T) {
	env := newTestEnv(t)
	event, seats := env.store.seedEvent(1)
	env.reserve(t, uuid.New(), event, seats)

	first := uuid.New()
	second := uuid.New()
	third := uuid.New()
	for _, u := range []uuid.UUID{first, second, third} {
		_, err := env.svc.Waitlist.Join(context.Background(), u.String(), event.ID.String())
		require.NoError(t, err)
	}

	require.NoError(t, env.svc.Waitlist.Leave(context.Background(), second.String(), event.ID.String()))

	pos, err := env.svc.Waitlist.Position(context.Background(), third.String(), event.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 2, pos.Position)

	// Leaving a waitlist you are not on is a no-op.
	assert.NoError(t, env.svc.Waitlist.Leave(context.Background(), second.String(), event.ID.String()))
}

func TestWaitlistPosition_NotJoined(t *testing.T) {
	env := newTestEnv(t)
	event, _ := env.store.seedEvent(1)

	_, err := env.svc.Waitlist.Position(context.Background(), uuid.New().String(), event.ID.String())
	assert.ErrorIs(t, err, ErrNotWaitlisted)
}

func TestWaitlistJoin_UnknownEvent(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Waitlist.Join(context.Background(), uuid.New().String(), uuid.New().String())
	assert.ErrorIs(t, err, ErrEventNotFound)
}
