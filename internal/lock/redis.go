package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const tokenCounterKey = "seatlock:token"

// releaseScript deletes a seat lock only when it is still owned by the
// releasing grant, so a grant whose TTL lapsed cannot free a lock that was
// reassigned to someone else.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// renewScript extends a seat lock only while the grant still owns it.
var renewScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// RedisManager distributes seat locks across instances with one Redis key
// per seat (SET NX PX). Fencing tokens come from a shared INCR counter, so
// later grants always carry larger tokens.
type RedisManager struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisManager(client *redis.Client, log *zap.Logger) *RedisManager {
	return &RedisManager{
		client: client,
		log:    log.With(zap.String("component", "seat_lock")),
	}
}

func seatKey(seatID uuid.UUID) string {
	return "seatlock:" + seatID.String()
}

func (m *RedisManager) Acquire(ctx context.Context, seatIDs []uuid.UUID, ttl time.Duration) (*Grant, error) {
	sorted := sortSeatIDs(seatIDs)

	token, err := m.client.Incr(ctx, tokenCounterKey).Result()
	if err != nil {
		return nil, fmt.Errorf("issue fencing token: %w", err)
	}

	grant := &Grant{
		ID:        uuid.New().String(),
		Token:     token,
		SeatIDs:   sorted,
		ExpiresAt: time.Now().Add(ttl),
	}

	var acquired []uuid.UUID
	for _, seatID := range sorted {
		ok, err := m.client.SetNX(ctx, seatKey(seatID), grant.ID, ttl).Result()
		if err != nil {
			m.rollback(ctx, grant, acquired)
			return nil, fmt.Errorf("acquire lock for seat %s: %w", seatID.String(), err)
		}
		if !ok {
			m.rollback(ctx, grant, acquired)
			return nil, &DeniedError{Conflicting: []uuid.UUID{seatID}}
		}
		acquired = append(acquired, seatID)
	}

	return grant, nil
}

// rollback releases partial locks taken during a failed all-or-nothing
// attempt. Best effort: anything missed expires with the TTL.
func (m *RedisManager) rollback(ctx context.Context, grant *Grant, acquired []uuid.UUID) {
	for _, seatID := range acquired {
		if err := releaseScript.Run(ctx, m.client, []string{seatKey(seatID)}, grant.ID).Err(); err != nil {
			m.log.Warn("Failed to roll back partial seat lock",
				zap.Error(err),
				zap.String("seat_id", seatID.String()),
			)
		}
	}
}

func (m *RedisManager) Release(ctx context.Context, grant *Grant) error {
	for _, seatID := range grant.SeatIDs {
		if err := releaseScript.Run(ctx, m.client, []string{seatKey(seatID)}, grant.ID).Err(); err != nil {
			return fmt.Errorf("release lock for seat %s: %w", seatID.String(), err)
		}
	}
	return nil
}

func (m *RedisManager) Renew(ctx context.Context, grant *Grant, ttl time.Duration) error {
	for _, seatID := range grant.SeatIDs {
		extended, err := renewScript.Run(ctx, m.client, []string{seatKey(seatID)}, grant.ID, ttl.Milliseconds()).Int()
		if err != nil {
			return fmt.Errorf("renew lock for seat %s: %w", seatID.String(), err)
		}
		if extended == 0 {
			return ErrNotHeld
		}
	}
	grant.ExpiresAt = time.Now().Add(ttl)
	return nil
}
