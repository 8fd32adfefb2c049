package escalation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lock elects which replica runs a scheduler tick. Acquire returns a release function
// when the lock was obtained and ok=false when another holder has it.
type Lock interface {
	Acquire(ctx context.Context) (release func(context.Context) error, ok bool, err error)
}

// NoopLock always grants the lock. Used when a single process owns the scheduler.
type NoopLock struct{}

func (NoopLock) Acquire(context.Context) (func(context.Context) error, bool, error) {
	return func(context.Context) error { return nil }, true, nil
}

// Scripter is the subset of the go-redis client the lock needs.
type Scripter interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	redis.Scripter
}

// releaseScript deletes the key only if it still holds our token, so a holder whose TTL
// expired cannot release a lock a newer tick acquired.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is a single-instance Redis lock taken with SET NX PX.
type RedisLock struct {
	client Scripter
	key    string
	ttl    time.Duration
}

// NewRedisLock builds a lock on key. ttl should be shorter than the tick interval so a
// crashed holder never blocks more than one tick.
func NewRedisLock(client Scripter, key string, ttl time.Duration) *RedisLock {
	return &RedisLock{client: client, key: key, ttl: ttl}
}

func (l *RedisLock) Acquire(ctx context.Context) (func(context.Context) error, bool, error) {
	token, err := newToken()
	if err != nil {
		return nil, false, err
	}
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire scheduler lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) error {
		err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("release scheduler lock: %w", err)
		}
		return nil
	}
	return release, true, nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
