package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/medora/clinic-scheduling/internal/schedule"
)

var (
	ErrLockNotAcquired = errors.New("reservation lock not acquired")
)

// Locker guards the critical section of reserving one (doctor, date, start)
// triple so that concurrent booking requests cannot both commit.
type Locker interface {
	WithReservationLock(ctx context.Context, doctorID uuid.UUID, date time.Time, start schedule.TimeOfDay, fn func(ctx context.Context) error) error
}

type redisReservationLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisReservationLocker creates a locker that uses one Redis key per
// reservation triple.
func NewRedisReservationLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisReservationLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisReservationLocker) WithReservationLock(ctx context.Context, doctorID uuid.UUID, date time.Time, start schedule.TimeOfDay, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:reservation:%s:%s:%s", doctorID.String(), date.Format("2006-01-02"), start.String())
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire reservation lock: %w", err)
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

func (l *redisReservationLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release reservation lock: %w", err)
	}
	return nil
}
