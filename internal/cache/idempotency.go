package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache key patterns
const (
	IdempotencyKey = "submission:idempotency:%s:%s" // submission:idempotency:userID:clientKey
)

const (
	pendingMarker = "pending"
	donePrefix    = "done:"
)

// DefaultIdempotencyTTL bounds how long a submission key is remembered.
const DefaultIdempotencyTTL = 24 * time.Hour

var ErrInProgress = errors.New("submission with this key is still in progress")

// Reservation is the state of a submission key at reserve time. Completed
// means an earlier submission with the same key already created a record.
type Reservation struct {
	Completed bool
	RecordID  string
}

// IdempotencyGuard remembers client submission keys in Redis so a repeated
// submit neither uploads nor creates twice.
type IdempotencyGuard struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewIdempotencyGuard(redisClient *redis.Client, ttl time.Duration) *IdempotencyGuard {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyGuard{
		redis: redisClient,
		ttl:   ttl,
	}
}

// Reserve claims key for userID. A fresh claim returns a zero Reservation;
// a key still being processed returns ErrInProgress.
func (g *IdempotencyGuard) Reserve(ctx context.Context, userID, key string) (Reservation, error) {
	redisKey := fmt.Sprintf(IdempotencyKey, userID, key)

	ok, err := g.redis.SetNX(ctx, redisKey, pendingMarker, g.ttl).Result()
	if err != nil {
		return Reservation{}, fmt.Errorf("reserve submission key: %w", err)
	}
	if ok {
		return Reservation{}, nil
	}

	val, err := g.redis.Get(ctx, redisKey).Result()
	switch {
	case errors.Is(err, redis.Nil):
		// expired between SETNX and GET; try once more
		return g.reserveAgain(ctx, redisKey)
	case err != nil:
		return Reservation{}, fmt.Errorf("read submission key: %w", err)
	}

	if id, ok := strings.CutPrefix(val, donePrefix); ok {
		return Reservation{Completed: true, RecordID: id}, nil
	}
	return Reservation{}, ErrInProgress
}

func (g *IdempotencyGuard) reserveAgain(ctx context.Context, redisKey string) (Reservation, error) {
	ok, err := g.redis.SetNX(ctx, redisKey, pendingMarker, g.ttl).Result()
	if err != nil {
		return Reservation{}, fmt.Errorf("reserve submission key: %w", err)
	}
	if !ok {
		return Reservation{}, ErrInProgress
	}
	return Reservation{}, nil
}

// Complete records the created record id so later duplicates replay it.
// recordID may be empty when the backend did not report one.
func (g *IdempotencyGuard) Complete(ctx context.Context, userID, key, recordID string) error {
	redisKey := fmt.Sprintf(IdempotencyKey, userID, key)
	if err := g.redis.Set(ctx, redisKey, donePrefix+recordID, g.ttl).Err(); err != nil {
		return fmt.Errorf("complete submission key: %w", err)
	}
	return nil
}

// Release forgets key so the user can submit again after a rejection.
func (g *IdempotencyGuard) Release(ctx context.Context, userID, key string) error {
	redisKey := fmt.Sprintf(IdempotencyKey, userID, key)
	if err := g.redis.Del(ctx, redisKey).Err(); err != nil {
		return fmt.Errorf("release submission key: %w", err)
	}
	return nil
}
