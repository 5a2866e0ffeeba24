package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still carries our token, so an
// expired lock that was re-acquired by someone else is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every API instance pointing at the same
// Redis. Locks expire after ttl in case the holder dies.
type RedisLocker struct {
	client      *redis.Client
	prefix      string
	ttl         time.Duration
	minInterval time.Duration
	maxInterval time.Duration
}

type RedisOption func(*RedisLocker)

// WithPrefix namespaces lock keys, default "lock:"
func WithPrefix(prefix string) RedisOption {
	return func(l *RedisLocker) {
		l.prefix = prefix
	}
}

// WithTTL sets how long a lock survives without being released
func WithTTL(ttl time.Duration) RedisOption {
	return func(l *RedisLocker) {
		l.ttl = ttl
	}
}

// WithBackoff sets the polling interval bounds while waiting for a held lock
func WithBackoff(min, max time.Duration) RedisOption {
	return func(l *RedisLocker) {
		l.minInterval = min
		l.maxInterval = max
	}
}

func NewRedisLocker(client *redis.Client, opts ...RedisOption) *RedisLocker {
	l := &RedisLocker{
		client:      client,
		prefix:      "lock:",
		ttl:         30 * time.Second,
		minInterval: 5 * time.Millisecond,
		maxInterval: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire implements Locker
func (l *RedisLocker) Acquire(ctx context.Context, key string) (Unlock, error) {
	redisKey := l.prefix + key
	token := uuid.NewString()
	interval := l.minInterval

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: key=%s: %v", ErrLockTimeout, key, ctx.Err())
			}
			return nil, fmt.Errorf("acquire redis lock %s: %w", key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: key=%s: %v", ErrLockTimeout, key, ctx.Err())
		case <-timer.C:
		}

		interval *= 2
		if interval > l.maxInterval {
			interval = l.maxInterval
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// ctx may already be cancelled by the caller
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err()
		})
	}, nil
}
