package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("caregiver run lock not acquired")
)

// Locker guards one caregiver's entire load-match-commit-retire sequence.
// Two overlapping runs (nightly trigger plus an on-demand run for the same
// date) must not process the same caregiver's availability concurrently.
type Locker interface {
	WithCaregiverLock(ctx context.Context, caregiverID uuid.UUID, fn func(ctx context.Context) error) error
}

type redisRunLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRunLocker creates a locker that uses a per caregiver Redis key
func NewRedisRunLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisRunLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisRunLocker) WithCaregiverLock(ctx context.Context, caregiverID uuid.UUID, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:matchrun:%s", caregiverID.String())
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisRunLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release run lock: %w", err)
	}
	return nil
}
