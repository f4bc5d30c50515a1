package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Config controls lock lifetime and the acquisition retry budget.
type Config struct {
	TTL        time.Duration
	Retries    int
	RetryDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		TTL:        5 * time.Second,
		Retries:    3,
		RetryDelay: 200 * time.Millisecond,
	}
}

type redisLocker struct {
	client *redis.Client
	cfg    Config
}

// NewRedisLocker creates a Locker backed by a per-key Redis SETNX lock.
// The key carries a random token so a holder can only delete its own lock,
// and the TTL bounds how long a crashed holder can block others.
func NewRedisLocker(client *redis.Client, cfg Config) Locker {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	if cfg.Retries <= 0 {
		cfg.Retries = DefaultConfig().Retries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultConfig().RetryDelay
	}
	return &redisLocker{client: client, cfg: cfg}
}

func (l *redisLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	token := uuid.NewString()

	acquired := false
	for attempt := 0; attempt < l.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(l.cfg.RetryDelay):
			}
		}

		ok, err := l.client.SetNX(ctx, key, token, l.cfg.TTL).Result()
		if err != nil {
			return fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			acquired = true
			break
		}
	}
	if !acquired {
		return ErrNotAcquired
	}

	defer func() {
		_ = l.release(context.WithoutCancel(ctx), key, token)
	}()

	// The critical section must finish inside the TTL or mutual exclusion
	// is lost to the next contender.
	lockCtx, cancel := context.WithTimeout(ctx, l.cfg.TTL)
	defer cancel()

	return fn(lockCtx)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	return nil
}
